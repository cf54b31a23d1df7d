package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/config"
)

var attemptsCmd = &cobra.Command{
	Use:   "attempts --identity <ip> --username <name>",
	Short: "Show the failed-attempt record for a client",
	Long: `Print the failed-attempt record for a client identity and username
as JSON. A client with no record prints a zero failure count.`,
	RunE: runAttempts,
}

var (
	attemptsIdentity string
	attemptsUsername string
)

func init() {
	attemptsCmd.Flags().StringVar(&attemptsIdentity, "identity", "", "client identity (IP address or \"unknown\")")
	attemptsCmd.Flags().StringVar(&attemptsUsername, "username", "", "attempted username")
	_ = attemptsCmd.MarkFlagRequired("identity")
	_ = attemptsCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(attemptsCmd)
}

// attemptsOutput is what the attempts command prints.
type attemptsOutput struct {
	Identity     string     `json:"identity"`
	Username     string     `json:"username"`
	FailureCount int        `json:"failure_count"`
	BannedUntil  *time.Time `json:"banned_until,omitempty"`
	Banned       bool       `json:"banned"`
}

func runAttempts(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	ledger, _, closeLedger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()

	identity, username := attemptsIdentity, attemptsUsername
	rec, err := ledger.Lookup(ctx, identity, username)
	if err != nil {
		return fmt.Errorf("lookup %s %s: %w", identity, username, err)
	}

	out := attemptsOutput{
		Identity:     identity,
		Username:     username,
		FailureCount: rec.FailureCount,
		BannedUntil:  rec.BannedUntil,
		Banned:       rec.IsBanned(ledger.Now()),
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
