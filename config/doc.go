// Package config provides configuration loading and validation for davgate.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (DAVGATE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with DAVGATE_ prefix:
//   - server.port → DAVGATE_SERVER_PORT
//   - auth.password → DAVGATE_AUTH_PASSWORD
//   - auth.password_bcrypt → DAVGATE_AUTH_PASSWORD_BCRYPT
//   - ledger.dsn → DAVGATE_LEDGER_DSN
//
// Buckets are a list and can only be set from a file.
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, base_path, max_upload_size, rate_limit and timeouts
//   - Auth: username with password or password_bcrypt, or credentials_file, public_read, client_ip_header
//   - Ledger: attempt ledger backend (memory, badger, redis, sqlite, postgres)
//   - Buckets: name plus backend (filesystem, s3, memory) per bucket
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//   - Env: dev (colored text logs) or prod (JSON logs)
//
// A missing credential is not a configuration error: the gateway starts and
// answers every authenticated request with 403 until one is provided.
package config
