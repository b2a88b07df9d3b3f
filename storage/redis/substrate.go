package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MrEthical07/goAuthSync/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures from the Redis client.
var ErrRedisUnavailable = errors.New("redis unavailable")

// envelope is published once per committed batch.
type envelope struct {
	Origin  string         `json:"origin"`
	Changes []changeRecord `json:"changes"`
}

type changeRecord struct {
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Present bool   `json:"present"`
}

// Substrate is one execution context's view of a Redis key space.
type Substrate struct {
	client redis.UniversalClient
	prefix string
	origin string

	mu       sync.Mutex
	handlers map[uint64]storage.Handler
	nextID   uint64
	pubsub   *redis.PubSub
	done     chan struct{}
	closed   bool
}

var _ storage.Substrate = (*Substrate)(nil)

// New creates a substrate view over client. prefix namespaces both the slot
// keys and the change channel; views that should see each other's writes
// must share it.
func New(client redis.UniversalClient, prefix string) *Substrate {
	if prefix == "" {
		prefix = "gas"
	}
	return &Substrate{
		client:   client,
		prefix:   prefix,
		origin:   uuid.NewString(),
		handlers: make(map[uint64]storage.Handler),
	}
}

// Origin returns the random identifier stamped on this view's envelopes.
func (s *Substrate) Origin() string {
	return s.origin
}

func (s *Substrate) key(slot string) string {
	return s.prefix + ":" + slot
}

func (s *Substrate) channel() string {
	return s.prefix + ":changes"
}

func (s *Substrate) Get(ctx context.Context, key string) (string, bool, error) {
	if s.isClosed() {
		return "", false, storage.ErrClosed
	}
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return val, true, nil
}

// Read fetches keys with a single MGET, which Redis executes atomically.
func (s *Substrate) Read(ctx context.Context, keys ...string) (map[string]string, error) {
	if s.isClosed() {
		return nil, storage.ErrClosed
	}
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	vals, err := s.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	for i, v := range vals {
		if str, ok := v.(string); ok {
			out[keys[i]] = str
		}
	}
	return out, nil
}

func (s *Substrate) Set(ctx context.Context, key, value string) error {
	return s.Apply(ctx, storage.Put(key, value))
}

func (s *Substrate) Delete(ctx context.Context, key string) error {
	return s.Apply(ctx, storage.Remove(key))
}

// Apply writes every change and publishes one envelope describing the batch
// inside a single MULTI/EXEC, so subscribers are told only after the whole
// batch is committed.
func (s *Substrate) Apply(ctx context.Context, changes ...storage.Change) error {
	if s.isClosed() {
		return storage.ErrClosed
	}
	if len(changes) == 0 {
		return nil
	}
	env := envelope{Origin: s.origin, Changes: make([]changeRecord, len(changes))}
	for i, c := range changes {
		env.Changes[i] = changeRecord{Key: c.Key, Value: c.Value, Present: c.Present}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range changes {
			if c.Present {
				pipe.Set(ctx, s.key(c.Key), c.Value, 0)
			} else {
				pipe.Del(ctx, s.key(c.Key))
			}
		}
		pipe.Publish(ctx, s.channel(), payload)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Subscribe registers h. The first subscription opens the Redis PUBLISH
// channel and waits for the server to confirm it, so changes published after
// Subscribe returns are never missed.
func (s *Substrate) Subscribe(h storage.Handler) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}

	if s.pubsub == nil {
		ps := s.client.Subscribe(context.Background(), s.channel())
		if _, err := ps.Receive(context.Background()); err != nil {
			_ = ps.Close()
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		s.pubsub = ps
		s.done = make(chan struct{})
		go s.listen(ps.Channel(), s.done)
	}

	id := s.nextID
	s.nextID++
	s.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.handlers, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Substrate) listen(ch <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range ch {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			continue
		}
		if env.Origin == s.origin {
			continue
		}
		handlers := s.snapshotHandlers()
		for _, c := range env.Changes {
			change := storage.Change{Key: c.Key, Value: c.Value, Present: c.Present}
			for _, h := range handlers {
				h(change)
			}
		}
	}
}

func (s *Substrate) snapshotHandlers() []storage.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.Handler, 0, len(s.handlers))
	for _, h := range s.handlers {
		out = append(out, h)
	}
	return out
}

// Close stops change delivery. The Redis client is owned by the caller and
// is left open.
func (s *Substrate) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ps, done := s.pubsub, s.done
	s.handlers = map[uint64]storage.Handler{}
	s.mu.Unlock()

	if ps == nil {
		return nil
	}
	err := ps.Close()
	<-done
	return err
}

func (s *Substrate) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
