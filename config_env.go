package goAuthSync

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type configEnv struct {
	APIBaseURL          string        `env:"GOAUTHSYNC_API_BASE_URL"`
	APITimeout          time.Duration `env:"GOAUTHSYNC_API_TIMEOUT"`
	TokenKey            string        `env:"GOAUTHSYNC_TOKEN_KEY"              envDefault:"authToken"`
	UserKey             string        `env:"GOAUTHSYNC_USER_KEY"               envDefault:"authUser"`
	DefaultPath         string        `env:"GOAUTHSYNC_DEFAULT_PATH"           envDefault:"/"`
	ConfirmEmailPath    string        `env:"GOAUTHSYNC_CONFIRM_EMAIL_PATH"     envDefault:"/confirm-email"`
	RejectExpiredTokens bool          `env:"GOAUTHSYNC_REJECT_EXPIRED_TOKENS"`
	ExpiryLeeway        time.Duration `env:"GOAUTHSYNC_EXPIRY_LEEWAY"          envDefault:"30s"`
	EventsEnabled       bool          `env:"GOAUTHSYNC_EVENTS_ENABLED"`
	EventsBufferSize    int           `env:"GOAUTHSYNC_EVENTS_BUFFER_SIZE"     envDefault:"64"`
	EventsDropIfFull    bool          `env:"GOAUTHSYNC_EVENTS_DROP_IF_FULL"    envDefault:"true"`
	MetricsEnabled      bool          `env:"GOAUTHSYNC_METRICS_ENABLED"        envDefault:"true"`
	LatencyHistograms   bool          `env:"GOAUTHSYNC_METRICS_LATENCY"`
}

// LoadConfigFromEnv builds a Config from GOAUTHSYNC_* environment variables.
// Unset variables keep the [DefaultConfig] values. The result is validated.
func LoadConfigFromEnv() (Config, error) {
	var raw configEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := DefaultConfig()
	cfg.API.BaseURL = raw.APIBaseURL
	cfg.API.Timeout = raw.APITimeout
	cfg.Storage.TokenKey = raw.TokenKey
	cfg.Storage.UserKey = raw.UserKey
	cfg.Navigation.DefaultPath = raw.DefaultPath
	cfg.Navigation.ConfirmEmailPath = raw.ConfirmEmailPath
	cfg.Session.RejectExpiredTokens = raw.RejectExpiredTokens
	cfg.Session.ExpiryLeeway = raw.ExpiryLeeway
	cfg.Events.Enabled = raw.EventsEnabled
	cfg.Events.BufferSize = raw.EventsBufferSize
	cfg.Events.DropIfFull = raw.EventsDropIfFull
	cfg.Metrics.Enabled = raw.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = raw.LatencyHistograms

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid env config: %w", err)
	}
	return cfg, nil
}
