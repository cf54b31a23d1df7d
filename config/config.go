package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/davgate"
	"github.com/sagarc03/davgate/credential"
	"github.com/sagarc03/davgate/database"
	davhttp "github.com/sagarc03/davgate/http"
	"github.com/sagarc03/davgate/storage"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for davgate.
type Config struct {
	Server  ServerConfig       `mapstructure:"server"`
	Auth    AuthConfig         `mapstructure:"auth"`
	Ledger  database.Config    `mapstructure:"ledger"`
	Buckets []BucketConfig     `mapstructure:"buckets" validate:"required,min=1,unique=Name,dive"`
	CORS    davhttp.CORSConfig `mapstructure:"cors"`
	Log     LogConfig          `mapstructure:"log"`
	Env     string             `mapstructure:"env" validate:"required,oneof=dev prod"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port          int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	BasePath      string `mapstructure:"base_path" validate:"required,startswith=/"`
	MaxUploadSize int64  `mapstructure:"max_upload_size" validate:"min=0"`
	RateLimit     int    `mapstructure:"rate_limit" validate:"min=0"`
	ReadTimeout   int    `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout  int    `mapstructure:"write_timeout" validate:"min=0"`
}

// AuthConfig holds the credential source and client identity policy.
type AuthConfig struct {
	credential.Config `mapstructure:",squash"`
	// ClientIPHeader is the trusted proxy header. Empty uses the peer address.
	ClientIPHeader string `mapstructure:"client_ip_header"`
}

// Identity returns the identity policy for the attempt ledger.
func (a AuthConfig) Identity() davgate.IdentityPolicy {
	return davgate.IdentityPolicy{TrustedHeader: a.ClientIPHeader}
}

// BucketConfig names one bucket and its backend.
type BucketConfig struct {
	Name           string `mapstructure:"name" validate:"required,excludesall=/\\"`
	storage.Config `mapstructure:",squash"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":        "server.port",
	"base-path":   "server.base_path",
	"ledger-type": "ledger.type",
	"ledger-dsn":  "ledger.dsn",
	"log-level":   "log.level",
	"public-read": "auth.public_read",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5708)
	v.SetDefault("server.base_path", "/")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.rate_limit", 0)      // requests per minute, 0 disables
	v.SetDefault("server.read_timeout", 0)    // seconds, 0 means none
	v.SetDefault("server.write_timeout", 0)

	// Registered so DAVGATE_AUTH_* environment variables are picked up.
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.password_bcrypt", "")
	v.SetDefault("auth.credentials_file", "")
	v.SetDefault("auth.public_read", false)
	v.SetDefault("auth.client_ip_header", "X-Forwarded-For")

	v.SetDefault("ledger.type", "sqlite")
	v.SetDefault("ledger.dsn", "davgate.db")
	v.SetDefault("ledger.path", "")
	v.SetDefault("ledger.table", "davgate_attempts")
	v.SetDefault("ledger.key_prefix", davgate.DefaultKeyPrefix)

	v.SetDefault("buckets", []map[string]any{
		{"name": "files", "type": "filesystem", "path": "./data"},
	})

	v.SetDefault("cors.enabled", false)
	v.SetDefault("cors.allowed_methods", strings.Split(davhttp.AllowedMethods(), ", "))
	v.SetDefault("cors.allowed_headers", []string{
		"Authorization", "Content-Type", "Depth", "Destination", "Overwrite", "If-Match", "If-None-Match", "Range",
	})
	v.SetDefault("cors.exposed_headers", []string{"DAV", "ETag", "Content-Length", "Retry-After"})

	v.SetDefault("log.level", "info")
	v.SetDefault("env", "dev")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("DAVGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if cfg.Ledger.IsSQL() {
		if err := (davgate.Tables{Attempts: cfg.Ledger.Table}).Validate(); err != nil {
			return nil, fmt.Errorf("validate config: ledger: %w", err)
		}
	}

	return &cfg, nil
}
