package goAuthSync

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/MrEthical07/goAuthSync/account"
	internalevents "github.com/MrEthical07/goAuthSync/internal/events"
	"github.com/MrEthical07/goAuthSync/session"
	"github.com/MrEthical07/goAuthSync/storage"
)

// Builder assembles a [Synchronizer]. A Builder can be used once.
type Builder struct {
	config    Config
	substrate storage.Substrate
	api       AccountAPI
	navigator Navigator
	eventSink EventSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStorage sets the durable storage shared with other execution contexts.
// It is required.
func (b *Builder) WithStorage(sub storage.Substrate) *Builder {
	b.substrate = sub
	return b
}

// WithAccountAPI sets the account service. When omitted, Build creates an
// [account.Client] from Config.API.
func (b *Builder) WithAccountAPI(api AccountAPI) *Builder {
	b.api = api
	return b
}

// WithNavigator sets the host router. When omitted, navigation requests are
// dropped.
func (b *Builder) WithNavigator(nav Navigator) *Builder {
	b.navigator = nav
	return b
}

// WithEventSink sets the event receiver and enables event delivery.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.eventSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards output.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the account API latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) withClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and returns an uninitialized
// synchronizer. Call [Synchronizer.Boot], or InitFromStorage followed by
// Start, before use.
func (b *Builder) Build() (*Synchronizer, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if b.eventSink != nil {
		cfg.Events.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.substrate == nil {
		return nil, errors.New("storage substrate required")
	}

	api := b.api
	if api == nil {
		if cfg.API.BaseURL == "" {
			return nil, errors.New("account API or API BaseURL required")
		}
		client, err := account.NewClient(account.Config{
			BaseURL: cfg.API.BaseURL,
			Timeout: cfg.API.Timeout,
		})
		if err != nil {
			return nil, err
		}
		api = client
	}

	nav := b.navigator
	if nav == nil {
		nav = noopNavigator{}
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	s := &Synchronizer{
		config:    cfg,
		substrate: b.substrate,
		store:     session.NewStore(b.substrate, cfg.Storage.TokenKey, cfg.Storage.UserKey),
		api:       api,
		navigator: nav,
		logger:    logger.With("component", "goauthsync"),
		metrics:   NewMetrics(cfg.Metrics),
		now:       clock,
		state:     session.Cleared(),
	}
	s.events = internalevents.NewDispatcher(internalevents.Config{
		Enabled:    cfg.Events.Enabled,
		BufferSize: cfg.Events.BufferSize,
		DropIfFull: cfg.Events.DropIfFull,
	}, b.eventSink)

	b.built = true
	return s, nil
}
