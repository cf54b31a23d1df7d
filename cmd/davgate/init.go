package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/config"
	"github.com/sagarc03/davgate/database"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the attempt ledger table",
	Long: `Create the attempts table used by the sqlite and postgres ledger
backends. Running it again is harmless. Other backends need no schema and
the command does nothing for them.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if !cfg.Ledger.IsSQL() {
		slog.Info("ledger backend needs no migration", "type", cfg.Ledger.Type)
		return nil
	}

	if err := database.Migrate(cmd.Context(), cfg.Ledger); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}

	slog.Info("ledger migration complete", "type", cfg.Ledger.Type, "table", cfg.Ledger.Table)
	return nil
}
