package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by substrate operations after Close.
var ErrClosed = errors.New("storage substrate closed")

// Change describes a single mutation of a storage slot.
// Present is false when the slot was deleted.
type Change struct {
	Key     string
	Value   string
	Present bool
}

// Handler receives foreign changes. Implementations must not block for long;
// backends deliver changes sequentially.
type Handler func(Change)

// Substrate is a string-keyed durable store with a change-notification side
// channel for writes made by other views of the same store.
type Substrate interface {
	// Get returns the value of key; ok is false when the slot is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Read returns the values of the present keys among keys, all taken at
	// the same instant. Absent keys are omitted from the map.
	Read(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Apply commits changes as one unit. Other views never observe part of
	// the batch: by the time any of their handlers runs for one change,
	// every change of the batch is visible to Get and Read.
	Apply(ctx context.Context, changes ...Change) error
	// Subscribe registers h for foreign changes. The returned cancel func is
	// idempotent.
	Subscribe(h Handler) (cancel func(), err error)
	Close() error
}

// Put is the change that stores value under key.
func Put(key, value string) Change {
	return Change{Key: key, Value: value, Present: true}
}

// Remove is the change that deletes key.
func Remove(key string) Change {
	return Change{Key: key}
}
