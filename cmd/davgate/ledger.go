package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/database"
)

// openLedger connects the configured ledger backend. The returned cleanup
// closes the backend connection.
func openLedger(ctx context.Context, cfg database.Config) (*davgate.AttemptLedger, davgate.KVStore, func(), error) {
	kv, closeKV, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect ledger: %w", err)
	}

	var opts []davgate.LedgerOption
	if cfg.KeyPrefix != "" {
		opts = append(opts, davgate.WithKeyPrefix(cfg.KeyPrefix))
	}

	ledger, err := davgate.NewAttemptLedger(kv, opts...)
	if err != nil {
		closeKV()
		return nil, nil, nil, fmt.Errorf("create ledger: %w", err)
	}

	slog.Debug("connected to ledger", "type", cfg.Type)
	return ledger, kv, closeKV, nil
}
