package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// FuncSink adapts a function to [Sink].
type FuncSink func(ctx context.Context, event Event)

func (f FuncSink) Emit(ctx context.Context, event Event) {
	if f != nil {
		f(ctx, event)
	}
}

// ChannelSink feeds a UI loop through a buffered channel. It never blocks:
// when the reader falls behind, the oldest unread event is replaced by the
// newest, so a reader that catches up still ends on the current session.
type ChannelSink struct {
	mu       sync.Mutex
	events   chan Event
	replaced uint64
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(_ context.Context, event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		select {
		case s.events <- event:
			return
		default:
		}
		select {
		case <-s.events:
			s.replaced++
		default:
		}
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Replaced returns how many unread events were discarded to make room.
func (s *ChannelSink) Replaced() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaced
}

// logLine is the JSON shape written by [JSONWriterSink]. It carries the
// username and authentication flag but never the token.
type logLine struct {
	Seq           uint64            `json:"seq"`
	Time          string            `json:"time"`
	Type          string            `json:"type"`
	Origin        string            `json:"origin"`
	Success       bool              `json:"success"`
	Error         string            `json:"error,omitempty"`
	Username      string            `json:"username,omitempty"`
	Authenticated bool              `json:"authenticated"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// JSONWriterSink writes one JSON object per event, newline separated.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	line := logLine{
		Seq:           event.Seq,
		Time:          event.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:          event.Type,
		Origin:        event.Origin,
		Success:       event.Success,
		Error:         event.Error,
		Username:      event.Username,
		Authenticated: event.Session.Authenticated,
		Metadata:      event.Metadata,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.enc.Encode(line)
}
