package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the access service's environment configuration.
type Config struct {
	Env       string `env:"ENV"        envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT"       envDefault:"8080"`

	// DatabaseFile is the path to the SQLite database file.
	DatabaseFile string `env:"ACCESS_DATABASE_FILE" envDefault:"access.db"`

	// BaseURL is the portal origin used to build emailed redemption links.
	BaseURL string `env:"ACCESS_BASE_URL" envDefault:"http://localhost:8080"`

	// IdentityIssuer is the expected iss claim on session tokens.
	IdentityIssuer string `env:"ACCESS_IDENTITY_ISSUER" envDefault:"haulstack-identity"`

	// IdentityKeyFile is the PEM file holding the identity provider's Ed25519
	// verification key. Empty outside prod means an ephemeral dev keypair.
	IdentityKeyFile string `env:"ACCESS_IDENTITY_KEY_FILE"`

	// IdentitySignOutURL is the provider endpoint forced sign-outs POST to.
	// Empty means sign-out is local only (dev).
	IdentitySignOutURL string `env:"ACCESS_IDENTITY_SIGNOUT_URL"`

	// IdleTimeout is how long a session may sit without a qualifying
	// interaction before it is force-terminated.
	IdleTimeout time.Duration `env:"ACCESS_IDLE_TIMEOUT" envDefault:"3h"`

	// InviteTTL bounds how long an emailed redemption link stays live.
	InviteTTL time.Duration `env:"ACCESS_INVITE_TTL" envDefault:"336h"`

	// SMTP relay settings. An empty SMTPAddr selects the log-only mailer.
	SMTPAddr     string `env:"ACCESS_SMTP_ADDR"`
	SMTPFrom     string `env:"ACCESS_SMTP_FROM"     envDefault:"no-reply@haulstack.example"`
	SMTPUsername string `env:"ACCESS_SMTP_USERNAME"`
	SMTPPassword string `env:"ACCESS_SMTP_PASSWORD"`

	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Env == "prod" && cfg.IdentityKeyFile == "" {
		return Config{}, fmt.Errorf("ACCESS_IDENTITY_KEY_FILE is required in prod")
	}

	return cfg, nil
}
