package goAuthSync

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goAuthSync/account"
	"github.com/MrEthical07/goAuthSync/session"
)

// Login authenticates creds against the account API, persists the session,
// commits it to memory and then navigates to redirect, or to the default
// path when redirect is empty.
//
// On rejection the error is an *account.Error carrying the status code and
// the server message, and nothing changes. If the session cannot be
// persisted the error wraps [ErrSessionPersistFailed], memory is left as it
// was and no navigation happens. An empty username or password is rejected
// with a 400 wrapping [account.ErrInvalidRequest] before the API is called.
func (s *Synchronizer) Login(ctx context.Context, creds Credentials, redirect string) (Session, error) {
	var (
		res *account.LoginResponse
		err error
	)
	if creds.Username == "" || creds.Password == "" {
		err = account.InvalidRequest("username and password are required")
	} else {
		start := time.Now()
		res, err = s.api.Login(ctx, account.LoginRequest{
			Username: creds.Username,
			Password: creds.Password,
		})
		s.observeAPI(start)
	}
	if err != nil {
		apiErr := asAccountError(err, account.FallbackLogin)
		s.metrics.Inc(MetricLoginFailure)
		s.logger.Info("login rejected", "username", creds.Username, "status", apiErr.StatusCode, "error", apiErr.Message)
		s.emit(ctx, EventLoginFailed, OriginLocal, apiErr, s.Snapshot(), map[string]string{"username": creds.Username})
		return Session{}, apiErr
	}

	rec := session.Record{
		Token: res.JWTToken,
		Profile: session.Profile{
			Username: res.UserName,
			Email:    res.Email,
			Role:     res.Role,
		},
	}
	if !rec.Valid() {
		apiErr := &account.Error{StatusCode: http.StatusBadGateway, Message: account.FallbackLogin, Err: account.ErrMalformedResponse}
		s.metrics.Inc(MetricLoginFailure)
		s.logger.Warn("login response missing token or username")
		s.emit(ctx, EventLoginFailed, OriginLocal, apiErr, s.Snapshot(), nil)
		return Session{}, apiErr
	}

	snap, err := s.establish(ctx, rec)
	if err != nil {
		s.metrics.Inc(MetricLoginFailure)
		s.emit(ctx, EventLoginFailed, OriginLocal, err, s.Snapshot(), map[string]string{"username": rec.Profile.Username})
		return Session{}, err
	}

	s.metrics.Inc(MetricLoginSuccess)
	s.logger.Info("login succeeded", "username", rec.Profile.Username)
	s.emit(ctx, EventLogin, OriginLocal, nil, snap, nil)
	s.navigate(s.redirectTarget(redirect))
	return snap, nil
}

// AutoLogin adopts a session obtained elsewhere without calling the account
// API, persists it and navigates like [Synchronizer.Login].
func (s *Synchronizer) AutoLogin(ctx context.Context, payload AutoLoginPayload, redirect string) (Session, error) {
	rec := session.Record{Token: payload.Token, Profile: payload.User}
	if !rec.Valid() {
		return Session{}, ErrAutoLoginInvalid
	}

	snap, err := s.establish(ctx, rec)
	if err != nil {
		s.emit(ctx, EventAutoLogin, OriginLocal, err, s.Snapshot(), nil)
		return Session{}, err
	}

	s.metrics.Inc(MetricAutoLogin)
	s.logger.Info("auto-login adopted", "username", rec.Profile.Username)
	s.emit(ctx, EventAutoLogin, OriginLocal, nil, snap, nil)
	s.navigate(s.redirectTarget(redirect))
	return snap, nil
}

// Logout clears the session and navigates to the default path.
func (s *Synchronizer) Logout(ctx context.Context) error {
	err := s.clear(ctx, EventLogout)
	s.metrics.Inc(MetricLogout)
	s.navigate(s.config.Navigation.DefaultPath)
	return err
}

// Clear resets memory and deletes both storage slots. Other contexts observe
// the deletion and clear themselves. Memory is cleared even if the delete
// fails.
func (s *Synchronizer) Clear(ctx context.Context) error {
	err := s.clear(ctx, EventCleared)
	s.metrics.Inc(MetricClear)
	return err
}

func (s *Synchronizer) clear(ctx context.Context, typ string) error {
	prev, cur := s.swap(session.Cleared())
	err := s.deleteRecord(ctx)

	username := ""
	if prev.User != nil {
		username = prev.User.Username
	}
	s.logger.Info("session cleared", "username", username, "reason", typ)
	s.emit(ctx, typ, OriginLocal, err, cur, map[string]string{"username": username})
	return err
}

// establish persists rec and then commits it to memory. If persisting fails
// the storage slots are rolled back to the current in-memory session.
func (s *Synchronizer) establish(ctx context.Context, rec session.Record) (Session, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.Save(ctx, rec); err != nil {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Error("persist session failed", "username", rec.Profile.Username, "error", err)
		s.rollbackLocked(ctx)
		return Session{}, fmt.Errorf("%w: %w", ErrSessionPersistFailed, err)
	}

	_, cur := s.swap(session.FromRecord(rec))
	return cur, nil
}

// rollbackLocked restores storage to match memory. writeMu must be held.
func (s *Synchronizer) rollbackLocked(ctx context.Context) {
	prev := s.Snapshot()

	var err error
	if prev.Authenticated {
		err = s.store.Save(ctx, session.Record{Token: prev.Token, Profile: *prev.User})
	} else {
		err = s.store.Delete(ctx)
	}
	if err != nil {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("roll back session record failed", "error", err)
	}
}

func (s *Synchronizer) redirectTarget(redirect string) string {
	if redirect == "" {
		return s.config.Navigation.DefaultPath
	}
	return redirect
}
