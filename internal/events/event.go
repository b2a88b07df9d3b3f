package events

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthSync/session"
)

// Event describes one session state transition or failed attempt.
//
// Session is the state after the event, so the last delivered event always
// describes the current session. Seq increases by one per event accepted by
// a [Dispatcher] and gives delivery order.
type Event struct {
	Seq       uint64
	Timestamp time.Time
	Type      string
	Origin    string
	Success   bool
	Error     string
	Session   session.Session
	Username  string
	Metadata  map[string]string
}

// Sink receives emitted events. A Dispatcher calls Emit from a single
// goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}
