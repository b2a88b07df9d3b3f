package goAuthSync

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goAuthSync/session"
)

// Config controls a [Synchronizer]. Obtain a baseline from [DefaultConfig]
// and override fields before handing it to [Builder.WithConfig].
type Config struct {
	API        APIConfig
	Storage    StorageConfig
	Navigation NavigationConfig
	Session    SessionConfig
	Events     EventsConfig
	Metrics    MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the account API. BaseURL is used only when no
// [AccountAPI] is supplied to the builder.
type APIConfig struct {
	BaseURL string
	// Timeout bounds each account request when positive. The default of
	// zero leaves cancellation to the caller's context.
	Timeout time.Duration
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the two durable slots that hold a session.
type StorageConfig struct {
	TokenKey string
	UserKey  string
}

/*
====================================
NAVIGATION CONFIG
====================================
*/

// NavigationConfig holds the routes the synchronizer sends the host to.
type NavigationConfig struct {
	// DefaultPath is used after login when no redirect is given, and after
	// logout.
	DefaultPath string
	// ConfirmEmailPath receives the registered email as the "email" query
	// parameter.
	ConfirmEmailPath string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls how persisted sessions are accepted.
type SessionConfig struct {
	// RejectExpiredTokens discards stored sessions whose token is a JWT with
	// an exp claim in the past. Opaque tokens are always accepted.
	RejectExpiredTokens bool
	// ExpiryLeeway is subtracted from the clock before comparing exp.
	ExpiryLeeway time.Duration
}

/*
====================================
EVENTS CONFIG
====================================
*/

// EventsConfig controls session event delivery.
type EventsConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			TokenKey: session.DefaultTokenKey,
			UserKey:  session.DefaultUserKey,
		},
		Navigation: NavigationConfig{
			DefaultPath:      "/",
			ConfirmEmailPath: "/confirm-email",
		},
		Session: SessionConfig{
			RejectExpiredTokens: false,
			ExpiryLeeway:        30 * time.Second,
		},
		Events: EventsConfig{
			Enabled:    false,
			BufferSize: 64,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field in c.
func (c *Config) Validate() error {
	// Storage
	if strings.TrimSpace(c.Storage.TokenKey) == "" {
		return errors.New("Storage TokenKey must not be empty")
	}
	if strings.TrimSpace(c.Storage.UserKey) == "" {
		return errors.New("Storage UserKey must not be empty")
	}
	if c.Storage.TokenKey == c.Storage.UserKey {
		return errors.New("Storage TokenKey and UserKey must differ")
	}

	// Navigation
	if !strings.HasPrefix(c.Navigation.DefaultPath, "/") {
		return errors.New("Navigation DefaultPath must start with /")
	}
	if !strings.HasPrefix(c.Navigation.ConfirmEmailPath, "/") {
		return errors.New("Navigation ConfirmEmailPath must start with /")
	}
	if strings.Contains(c.Navigation.ConfirmEmailPath, "?") {
		return errors.New("Navigation ConfirmEmailPath must not carry a query")
	}

	// API
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return errors.New("API BaseURL must be an http or https URL")
	}

	// Session
	if c.Session.ExpiryLeeway < 0 {
		return errors.New("Session ExpiryLeeway must be >= 0")
	}
	if c.Session.ExpiryLeeway > 10*time.Minute {
		return errors.New("Session ExpiryLeeway must be <= 10m")
	}

	// Events
	if c.Events.Enabled && c.Events.BufferSize <= 0 {
		return errors.New("Events BufferSize must be > 0 when Events are enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
