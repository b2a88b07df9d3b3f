package goAuthSync

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/MrEthical07/goAuthSync/account"
	internalevents "github.com/MrEthical07/goAuthSync/internal/events"
	"github.com/MrEthical07/goAuthSync/session"
	"github.com/MrEthical07/goAuthSync/storage"
	"github.com/MrEthical07/goAuthSync/token"
)

var errTokenExpired = errors.New("stored token expired")

// Synchronizer owns the session of one execution context and keeps it in
// agreement with durable storage shared by other contexts.
//
// The zero value is not usable; construct one with [New].
type Synchronizer struct {
	config    Config
	substrate storage.Substrate
	store     *session.Store
	api       AccountAPI
	navigator Navigator
	events    *internalevents.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time

	// mu guards state and is never held across a storage write.
	mu    sync.RWMutex
	state session.Session

	// writeMu serializes this context's own storage writes.
	writeMu sync.Mutex

	lifeMu      sync.Mutex
	unsubscribe func()
	stopListen  context.CancelFunc
	closed      bool
}

// Boot restores the persisted session and then starts listening for foreign
// changes. A storage read failure is returned after the listener has been
// started, so the context still converges once storage recovers.
func (s *Synchronizer) Boot(ctx context.Context) error {
	initErr := s.InitFromStorage(ctx)
	if err := s.Start(ctx); err != nil {
		return err
	}
	return initErr
}

// Start registers the foreign-change listener. It is idempotent.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.closed {
		return ErrSynchronizerClosed
	}
	if s.unsubscribe != nil {
		return nil
	}

	listenCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	cancel, err := s.substrate.Subscribe(func(change storage.Change) {
		s.HandleStorageChange(listenCtx, change)
	})
	if err != nil {
		stop()
		s.logger.Error("subscribe to storage changes failed", "error", err)
		return err
	}

	s.unsubscribe = cancel
	s.stopListen = stop
	s.logger.Debug("listening for storage changes")
	return nil
}

// Close stops the listener and flushes pending events. It does not close the
// storage substrate. Close is idempotent.
func (s *Synchronizer) Close() {
	s.lifeMu.Lock()
	if s.closed {
		s.lifeMu.Unlock()
		return
	}
	s.closed = true
	unsubscribe, stop := s.unsubscribe, s.stopListen
	s.unsubscribe, s.stopListen = nil, nil
	s.lifeMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if stop != nil {
		stop()
	}
	s.events.Close()
}

// Snapshot returns a copy of the current session.
func (s *Synchronizer) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// IsAuthenticated reports whether the context holds a session.
func (s *Synchronizer) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Authenticated
}

// Token returns the bearer token, or "" when logged out.
func (s *Synchronizer) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns a copy of the profile, or nil when logged out.
func (s *Synchronizer) User() *Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return nil
	}
	p := *s.state.User
	return &p
}

// Config returns the configuration the synchronizer was built with.
func (s *Synchronizer) Config() Config {
	return s.config
}

// MetricsSnapshot returns a copy of the in-process counters.
func (s *Synchronizer) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// EventsDropped returns the number of events discarded because the event
// buffer was full.
func (s *Synchronizer) EventsDropped() uint64 {
	return s.events.Dropped()
}

func (s *Synchronizer) acceptRecord(rec session.Record) error {
	if !s.config.Session.RejectExpiredTokens {
		return nil
	}
	if token.Expired(rec.Token, s.now(), s.config.Session.ExpiryLeeway) {
		return errTokenExpired
	}
	return nil
}

// swap replaces the in-memory session and returns the previous and new
// values.
func (s *Synchronizer) swap(next session.Session) (prev, cur session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.state
	s.state = next.Normalize()
	return prev.Clone(), s.state.Clone()
}

func (s *Synchronizer) deleteRecord(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Delete(ctx); err != nil {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("delete session record failed", "error", err)
		return err
	}
	return nil
}

func (s *Synchronizer) navigate(path string) {
	s.metrics.Inc(MetricNavigation)
	s.logger.Debug("navigate", "path", path)
	s.navigator.Navigate(path)
}

func (s *Synchronizer) emit(ctx context.Context, typ, origin string, err error, snap session.Session, metadata map[string]string) {
	if s.events == nil {
		return
	}
	ev := internalevents.Event{
		Timestamp: s.now(),
		Type:      typ,
		Origin:    origin,
		Success:   err == nil,
		Session:   snap,
		Metadata:  metadata,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if snap.User != nil {
		ev.Username = snap.User.Username
	}
	s.events.Emit(ctx, ev)
}

func (s *Synchronizer) observeAPI(start time.Time) {
	s.metrics.Observe(MetricAPILatency, time.Since(start))
}

// asAccountError converts any account API failure into *account.Error so
// callers always see a status code and message.
func asAccountError(err error, fallback string) *account.Error {
	var apiErr *account.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, account.ErrInvalidRequest) {
		return &account.Error{StatusCode: http.StatusBadRequest, Message: err.Error(), Err: err}
	}
	return &account.Error{StatusCode: http.StatusInternalServerError, Message: fallback, Err: err}
}
