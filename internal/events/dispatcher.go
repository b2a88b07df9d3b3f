package events

import (
	"context"
	"sync"
)

// Config controls dispatcher queueing.
type Config struct {
	Enabled bool
	// BufferSize bounds the number of undelivered events.
	BufferSize int
	// DropIfFull makes Emit discard the oldest queued event when the queue
	// is full. Otherwise Emit waits for room until its context ends.
	DropIfFull bool
}

// Dispatcher hands events to a sink from one worker goroutine, in the order
// Emit accepted them, stamping each with a sequence number.
//
// Discarding always removes the oldest queued event, never the newest. Every
// event carries the session after it, so whatever is lost the sink still
// ends on the current state.
type Dispatcher struct {
	sink       Sink
	limit      int
	dropOldest bool

	mu      sync.Mutex
	queue   []Event
	seq     uint64
	dropped uint64
	closed  bool

	wake    chan struct{}
	room    chan struct{}
	closing chan struct{}
	exited  chan struct{}
	once    sync.Once
}

// NewDispatcher returns nil when cfg is disabled; a nil *Dispatcher is safe
// to use and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:       sink,
		limit:      cfg.BufferSize,
		dropOldest: cfg.DropIfFull,
		queue:      make([]Event, 0, cfg.BufferSize),
		wake:       make(chan struct{}, 1),
		room:       make(chan struct{}, 1),
		closing:    make(chan struct{}),
		exited:     make(chan struct{}),
	}
	go d.deliver()
	return d
}

// Emit queues event. It returns immediately in drop-oldest mode; otherwise
// it waits for room, counting the event as dropped if ctx ends first.
// Events emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		d.mu.Lock()
		if d.closed {
			d.mu.Unlock()
			return
		}
		if len(d.queue) >= d.limit && d.dropOldest {
			d.queue = d.queue[1:]
			d.dropped++
		}
		if len(d.queue) < d.limit {
			d.seq++
			event.Seq = d.seq
			d.queue = append(d.queue, event)
			d.mu.Unlock()
			signal(d.wake)
			return
		}
		d.mu.Unlock()

		select {
		case <-d.room:
		case <-ctx.Done():
			d.mu.Lock()
			d.dropped++
			d.mu.Unlock()
			return
		case <-d.closing:
			return
		}
	}
}

func (d *Dispatcher) deliver() {
	defer close(d.exited)
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			closed := d.closed
			d.mu.Unlock()
			if closed {
				return
			}
			<-d.wake
			continue
		}
		event := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		signal(d.room)
		d.sink.Emit(context.Background(), event)
	}
}

// Close stops accepting events and returns once every queued event has been
// delivered. It is idempotent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		close(d.closing)
		signal(d.wake)
		<-d.exited
	})
}

// Dropped returns the number of events discarded or abandoned.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
