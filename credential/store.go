// Package credential provides davgate.CredentialStore implementations.
//
// The gateway guards all buckets with one username/password pair. It comes
// either inline from configuration or from a JSON file that is re-read when
// its modification time changes. An unset or unreadable credential leaves
// authentication disabled but never stops the server from starting.
package credential

import (
	"log/slog"

	"github.com/sagarc03/davgate"
)

// Config holds configuration for locating the credential.
type Config struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// PasswordBcrypt is a bcrypt hash used instead of Password
	PasswordBcrypt string `mapstructure:"password_bcrypt"`
	File           string `mapstructure:"credentials_file"` // Path to JSON file holding the pair
	PublicRead     bool   `mapstructure:"public_read"`
}

// NewStore creates a CredentialStore from the given configuration.
// A file takes precedence over the inline pair.
func NewStore(cfg Config, logger *slog.Logger) davgate.CredentialStore {
	if cfg.File != "" {
		return NewFileStore(cfg.File, cfg.PublicRead, logger)
	}

	return NewStaticStore(davgate.Credential{
		Username:       cfg.Username,
		Password:       cfg.Password,
		PasswordBcrypt: cfg.PasswordBcrypt,
	}, cfg.PublicRead)
}
