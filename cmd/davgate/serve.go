package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/config"
	"github.com/sagarc03/davgate/credential"
	davhttp "github.com/sagarc03/davgate/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebDAV server",
	Long: `Start the davgate WebDAV server.

Every configured bucket is served under <base_path>/<bucket>/. The
attempt ledger backend is migrated on connect when it is a SQL database.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 5708, "HTTP server port")
	serveCmd.Flags().String("base-path", "/", "URL prefix the buckets are served under")
	serveCmd.Flags().Bool("public-read", false, "allow unauthenticated read-only requests")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	buckets, closeBuckets, err := openBuckets(ctx, cfg.Buckets)
	if err != nil {
		return fmt.Errorf("open buckets: %w", err)
	}
	defer closeBuckets()

	resolver, err := davhttp.NewResolver(cfg.Server.BasePath, buckets)
	if err != nil {
		return fmt.Errorf("create resolver: %w", err)
	}

	ledger, _, closeLedger, err := openLedger(ctx, cfg.Ledger)
	if err != nil {
		return err
	}
	defer closeLedger()
	slog.Info("connected to ledger", "type", cfg.Ledger.Type)

	logger := slog.Default()

	creds := credential.NewStore(cfg.Auth.Config, logger)
	if cred, ok := creds.Credential(ctx); !ok || !cred.IsSet() {
		slog.Warn("no credential configured, authenticated requests will be refused")
	}

	guard, err := davgate.NewGuard(creds, ledger, logger)
	if err != nil {
		return fmt.Errorf("create guard: %w", err)
	}

	handlerConfig := davhttp.HandlerConfig{
		MaxUploadSize: cfg.Server.MaxUploadSize,
		RateLimit:     cfg.Server.RateLimit,
		Identity:      cfg.Auth.Identity(),
		CORS:          cfg.CORS,
		Logger:        logger,
	}

	handler, err := davhttp.NewHandler(&handlerConfig, guard, resolver)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		slog.Info("shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "err", err)
		}
		cancel()
	}()

	slog.Info("starting server",
		"addr", addr,
		"base_path", resolver.BasePath(),
		"buckets", len(buckets),
		"public_read", cfg.Auth.PublicRead,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
