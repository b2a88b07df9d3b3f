package goAuthSync

import "context"

type ctxKey struct{}

var synchronizerContextKey ctxKey

// WithSynchronizer returns a copy of ctx carrying s.
func WithSynchronizer(ctx context.Context, s *Synchronizer) context.Context {
	return context.WithValue(ctx, synchronizerContextKey, s)
}

// SynchronizerFromContext returns the synchronizer stored by
// [WithSynchronizer], or nil.
func SynchronizerFromContext(ctx context.Context) *Synchronizer {
	s, _ := ctx.Value(synchronizerContextKey).(*Synchronizer)
	return s
}
