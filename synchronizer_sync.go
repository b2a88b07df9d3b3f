package goAuthSync

import (
	"context"
	"errors"

	"github.com/MrEthical07/goAuthSync/session"
	"github.com/MrEthical07/goAuthSync/storage"
)

// HandleStorageChange reconciles memory with a change written by another
// context. Start wires it to the substrate; hosts that deliver notifications
// themselves may call it directly.
//
// Changes to keys other than the two session slots are ignored. Otherwise
// both slots are re-read: a complete record is adopted, a missing slot
// clears memory, and an undecodable profile is ignored. Storage is never
// written from here, so contexts cannot echo each other.
func (s *Synchronizer) HandleStorageChange(ctx context.Context, change storage.Change) {
	if !s.store.IsSlot(change.Key) {
		return
	}

	rec, err := s.store.Load(ctx)
	if err == nil {
		err = s.acceptRecord(rec)
	}

	switch {
	case err == nil:
		s.adoptForeign(ctx, change.Key, session.FromRecord(rec))

	case errors.Is(err, session.ErrRecordAbsent), errors.Is(err, errTokenExpired):
		s.clearForeign(ctx, change.Key)

	case errors.Is(err, session.ErrRecordCorrupt):
		s.metrics.Inc(MetricSyncIgnored)
		s.logger.Debug("ignored foreign session change", "key", change.Key, "error", err)
		s.emit(ctx, EventSyncIgnored, OriginForeign, err, s.Snapshot(), map[string]string{"key": change.Key})

	default:
		s.metrics.Inc(MetricStorageFailure)
		s.logger.Warn("read foreign session change failed", "key", change.Key, "error", err)
		s.emit(ctx, EventSyncIgnored, OriginForeign, err, s.Snapshot(), map[string]string{"key": change.Key})
	}
}

func (s *Synchronizer) adoptForeign(ctx context.Context, key string, next session.Session) {
	prev, cur := s.swap(next)
	if prev.Equal(cur) {
		s.metrics.Inc(MetricSyncIgnored)
		return
	}
	s.metrics.Inc(MetricSyncAdopted)
	s.logger.Info("adopted foreign session", "key", key, "username", cur.User.Username)
	s.emit(ctx, EventSyncAdopted, OriginForeign, nil, cur, map[string]string{"key": key})
}

func (s *Synchronizer) clearForeign(ctx context.Context, key string) {
	prev, cur := s.swap(session.Cleared())
	if !prev.Authenticated {
		s.metrics.Inc(MetricSyncIgnored)
		return
	}
	s.metrics.Inc(MetricSyncCleared)
	s.logger.Info("mirrored foreign logout", "key", key, "username", prev.User.Username)
	s.emit(ctx, EventSyncCleared, OriginForeign, nil, cur, map[string]string{"key": key, "username": prev.User.Username})
}
