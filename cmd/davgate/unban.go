package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/config"
)

var unbanCmd = &cobra.Command{
	Use:   "unban --identity <ip> --username <name>",
	Short: "Clear failed attempts for a client",
	Long: `Remove the failed-attempt record for a client identity and username,
lifting any ban immediately.

The identity is the client address as the server sees it: the first
address of the trusted client IP header, or the peer IP.

Examples:
  davgate unban --identity 203.0.113.7 --username alice
  davgate unban --config prod.yaml --identity 2001:db8::1 --username unknown`,
	RunE: runUnban,
}

var (
	unbanIdentity string
	unbanUsername string
)

func init() {
	unbanCmd.Flags().StringVar(&unbanIdentity, "identity", "", "client identity (IP address or \"unknown\")")
	unbanCmd.Flags().StringVar(&unbanUsername, "username", "", "attempted username")
	_ = unbanCmd.MarkFlagRequired("identity")
	_ = unbanCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(unbanCmd)
}

func runUnban(cmd *cobra.Command, args []string) error {
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

	identity, username := unbanIdentity, unbanUsername
	if err := ledger.Clear(ctx, identity, username); err != nil {
		return fmt.Errorf("unban %s %s: %w", identity, username, err)
	}

	slog.Info("attempts cleared", "identity", identity, "username", username)
	return nil
}
