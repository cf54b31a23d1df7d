package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/config"
	"github.com/sagarc03/davgate/database"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired attempt records",
	Long: `Delete expired failed-attempt records from the ledger.

SQL backends keep expired rows until they are purged; expired rows are
never read back, so this only reclaims space. Badger runs value log
garbage collection. Memory and redis expire entries on their own.

Run this periodically, for example from cron.`,
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	_, kv, closeLedger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()

	purger, ok := kv.(database.Purger)
	if !ok {
		slog.Info("ledger backend expires entries itself", "type", cfg.Ledger.Type)
		return nil
	}

	removed, err := purger.Purge(ctx)
	if err != nil {
		return fmt.Errorf("purge: %w", err)
	}

	slog.Info("purge complete", "type", cfg.Ledger.Type, "removed", removed)
	return nil
}
