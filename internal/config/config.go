// Package config defines the immutable process configuration for the
// MeetPoint API. Values come from the OS environment (optionally seeded by
// a .env file for local development), are parsed via envconfig struct
// tags, and are validated fail-fast at startup. Sub-components receive
// only the config subsets they need.
package config

import (
	"time"

	"meetpoint/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret
// type used to keep sensitive values out of logs and config dumps.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Populated once during
// process initialization and never modified.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server   ServerConfig
	Database DatabaseConfig
	Webhook  WebhookConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds connection and pool tuning parameters.
type DatabaseConfig struct {
	URL             SecretString  `envconfig:"DATABASE_URL" validate:"required"`
	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
}

// WebhookConfig holds settings for outbound webhook delivery.
type WebhookConfig struct {
	UserAgent       string        `envconfig:"WEBHOOK_USER_AGENT" default:"MeetPoint-Webhook/1.0"`
	DeliveryTimeout time.Duration `envconfig:"WEBHOOK_TIMEOUT" default:"10s"`
	MaxRedirects    int           `envconfig:"WEBHOOK_MAX_REDIRECTS" default:"3"`
	MaxParallel     int           `envconfig:"WEBHOOK_MAX_PARALLEL" default:"16"`
	JournalSize     int           `envconfig:"WEBHOOK_JOURNAL_SIZE" default:"512"`

	// MirrorURL, when set, receives every event envelope with the
	// sentinel signature in addition to subscriber deliveries.
	MirrorURL string `envconfig:"WEBHOOK_MIRROR_URL" validate:"omitempty,url"`
}
