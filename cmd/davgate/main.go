package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "davgate",
	Short:   "WebDAV gateway for object storage buckets",
	Long: `Davgate serves one or more object storage buckets over WebDAV.
Buckets can live on the local filesystem, in S3 or in memory. Basic
authentication is guarded by a failed-attempt ledger that bans a client
after repeated wrong passwords.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log, cfg.Env)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeat to merge (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("ledger-type", "", "attempt ledger backend: memory, badger, redis, sqlite, postgres (env: DAVGATE_LEDGER_TYPE)")
	rootCmd.PersistentFlags().String("ledger-dsn", "", "attempt ledger connection string (env: DAVGATE_LEDGER_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: DAVGATE_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
