// Package memory provides an in-process [storage.Substrate] shared by any
// number of views. It is the deterministic fake used to simulate several
// execution contexts in tests: a write through one view is delivered to the
// handlers of every other view synchronously, before the write returns.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/MrEthical07/goAuthSync/storage"
)

// Hub owns the shared key space.
type Hub struct {
	mu    sync.Mutex
	data  map[string]string
	views map[*View]struct{}
}

// NewHub creates an empty shared store.
func NewHub() *Hub {
	return &Hub{
		data:  make(map[string]string),
		views: make(map[*View]struct{}),
	}
}

// View returns a new execution-context view of the hub.
func (h *Hub) View() *View {
	v := &View{
		hub:      h,
		handlers: make(map[uint64]storage.Handler),
	}
	h.mu.Lock()
	h.views[v] = struct{}{}
	h.mu.Unlock()
	return v
}

// ForeignSet writes key as if an unknown context did it; every view is
// notified.
func (h *Hub) ForeignSet(key, value string) {
	h.write(nil, storage.Put(key, value))
}

// ForeignDelete deletes key as if an unknown context did it; every view is
// notified.
func (h *Hub) ForeignDelete(key string) {
	h.write(nil, storage.Remove(key))
}

// ForeignApply commits changes as one batch from an unknown context.
func (h *Hub) ForeignApply(changes ...storage.Change) {
	h.write(nil, changes...)
}

// Peek reads key without going through a view.
func (h *Hub) Peek(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.data[key]
	return v, ok
}

// Keys returns the sorted list of present keys.
func (h *Hub) Keys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	keys := make([]string, 0, len(h.data))
	for k := range h.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (h *Hub) read(keys []string) map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := h.data[k]; ok {
			out[k] = v
		}
	}
	return out
}

// write applies the whole batch under the hub lock and notifies only after
// releasing it, so handlers see every change of the batch.
func (h *Hub) write(origin *View, changes ...storage.Change) {
	if len(changes) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range changes {
		if c.Present {
			h.data[c.Key] = c.Value
		} else {
			delete(h.data, c.Key)
		}
	}
	targets := make([]storage.Handler, 0, len(h.views))
	for v := range h.views {
		if v == origin {
			continue
		}
		targets = append(targets, v.snapshotHandlers()...)
	}
	h.mu.Unlock()

	for _, c := range changes {
		for _, fn := range targets {
			fn(c)
		}
	}
}

func (h *Hub) detach(v *View) {
	h.mu.Lock()
	delete(h.views, v)
	h.mu.Unlock()
}

// View is one execution context's handle on a [Hub].
type View struct {
	hub *Hub

	mu       sync.Mutex
	handlers map[uint64]storage.Handler
	nextID   uint64
	closed   bool
}

var _ storage.Substrate = (*View)(nil)

func (v *View) Get(_ context.Context, key string) (string, bool, error) {
	if v.isClosed() {
		return "", false, storage.ErrClosed
	}
	val, ok := v.hub.Peek(key)
	return val, ok, nil
}

func (v *View) Read(_ context.Context, keys ...string) (map[string]string, error) {
	if v.isClosed() {
		return nil, storage.ErrClosed
	}
	return v.hub.read(keys), nil
}

func (v *View) Set(ctx context.Context, key, value string) error {
	return v.Apply(ctx, storage.Put(key, value))
}

func (v *View) Delete(ctx context.Context, key string) error {
	return v.Apply(ctx, storage.Remove(key))
}

func (v *View) Apply(_ context.Context, changes ...storage.Change) error {
	if v.isClosed() {
		return storage.ErrClosed
	}
	v.hub.write(v, changes...)
	return nil
}

func (v *View) Subscribe(h storage.Handler) (func(), error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil, storage.ErrClosed
	}
	id := v.nextID
	v.nextID++
	v.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.handlers, id)
			v.mu.Unlock()
		})
	}, nil
}

// Close detaches the view from the hub. Shared data is left intact.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.handlers = map[uint64]storage.Handler{}
	v.mu.Unlock()

	v.hub.detach(v)
	return nil
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *View) snapshotHandlers() []storage.Handler {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]storage.Handler, 0, len(v.handlers))
	for _, h := range v.handlers {
		out = append(out, h)
	}
	return out
}
