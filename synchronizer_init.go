package goAuthSync

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthSync/session"
)

// InitFromStorage restores the session persisted by this or another context.
//
// When both slots are present and the profile decodes, the session is
// restored. Otherwise memory is cleared and both slots are deleted so that a
// half-written record does not survive. The state lock is held while storage
// is read, so readers never observe the pre-restore default once this call
// has begun.
//
// A storage read failure clears memory, leaves storage alone and returns an
// error wrapping [ErrStorageUnavailable].
func (s *Synchronizer) InitFromStorage(ctx context.Context) error {
	s.mu.Lock()
	rec, err := s.store.Load(ctx)
	if err == nil {
		err = s.acceptRecord(rec)
	}
	if err == nil {
		s.state = session.FromRecord(rec)
		snap := s.state.Clone()
		s.mu.Unlock()

		s.metrics.Inc(MetricInitRestored)
		s.logger.Info("session restored", "username", rec.Profile.Username)
		s.emit(ctx, EventInitRestored, OriginStorage, nil, snap, nil)
		return nil
	}
	s.state = session.Cleared()
	s.mu.Unlock()

	s.metrics.Inc(MetricInitCleared)

	if errors.Is(err, session.ErrStorageUnavailable) {
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("read session record failed", "error", err)
		s.emit(ctx, EventInitCleared, OriginStorage, err, session.Cleared(), map[string]string{"reason": "storage_unavailable"})
		return err
	}

	reason := initClearReason(err)
	s.logger.Debug("no usable session in storage", "reason", reason)
	if derr := s.deleteRecord(ctx); derr != nil {
		s.emit(ctx, EventInitCleared, OriginStorage, derr, session.Cleared(), map[string]string{"reason": reason})
		return derr
	}
	s.emit(ctx, EventInitCleared, OriginStorage, nil, session.Cleared(), map[string]string{"reason": reason})
	return nil
}

func initClearReason(err error) string {
	switch {
	case errors.Is(err, session.ErrRecordAbsent):
		return "absent"
	case errors.Is(err, session.ErrRecordCorrupt):
		return "corrupt"
	case errors.Is(err, errTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
