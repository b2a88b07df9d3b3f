package goAuthSync

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthSync/storage/memory"
)

func collectEvents(t *testing.T, sink *ChannelSink, n int) []SessionEvent {
	t.Helper()
	out := make([]SessionEvent, 0, n)
	for len(out) < n {
		select {
		case ev := <-sink.Events():
			out = append(out, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestEventsForLocalLifecycle(t *testing.T) {
	hub := memory.NewHub()
	sink := NewChannelSink(16)
	tb := bootedTab(t, hub, nil, func(b *Builder) { b.WithEventSink(sink) })
	ctx := context.Background()

	if _, err := tb.sync.Login(ctx, Credentials{Username: "alice", Password: "nope"}, ""); err == nil {
		t.Fatal("expected login failure")
	}
	if _, err := tb.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := tb.sync.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	events := collectEvents(t, sink, 4)
	wantTypes := []string{EventInitCleared, EventLoginFailed, EventLogin, EventLogout}
	for i, ev := range events {
		if ev.Type != wantTypes[i] {
			t.Fatalf("event %d: expected %s, got %s", i, wantTypes[i], ev.Type)
		}
	}

	if events[0].Metadata["reason"] != "absent" || events[0].Origin != OriginStorage {
		t.Fatalf("unexpected init event %+v", events[0])
	}
	if events[1].Success || events[1].Error != "Invalid username or password." {
		t.Fatalf("unexpected failure event %+v", events[1])
	}
	if !events[2].Success || events[2].Username != "alice" || !events[2].Session.Authenticated {
		t.Fatalf("unexpected login event %+v", events[2])
	}
	if events[3].Session.Authenticated || events[3].Metadata["username"] != "alice" {
		t.Fatalf("unexpected logout event %+v", events[3])
	}
}

func TestEventsForForeignChanges(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	sink := NewChannelSink(16)
	bootedTab(t, hub, nil, func(b *Builder) { b.WithEventSink(sink) })
	ctx := context.Background()

	if _, err := a.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := a.sync.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	events := collectEvents(t, sink, 3)
	if events[0].Type != EventInitCleared {
		t.Fatalf("expected init event first, got %s", events[0].Type)
	}
	if events[1].Type != EventSyncAdopted || events[1].Origin != OriginForeign || events[1].Username != "alice" {
		t.Fatalf("unexpected adopt event %+v", events[1])
	}
	if events[2].Type != EventSyncCleared || events[2].Metadata["username"] != "alice" {
		t.Fatalf("unexpected clear event %+v", events[2])
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.String()
}

func TestJSONWriterSinkOmitsToken(t *testing.T) {
	var out lockedBuffer
	tb := bootedTab(t, memory.NewHub(), nil, func(b *Builder) { b.WithEventSink(NewJSONWriterSink(&out)) })

	if _, err := tb.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	tb.sync.Close()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", out.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if ev["type"] != EventLogin || ev["username"] != "alice" {
		t.Fatalf("unexpected event %v", ev)
	}
	if strings.Contains(out.String(), "abc123") {
		t.Fatal("token leaked into the event log")
	}
}

func TestEventsDisabledByDefault(t *testing.T) {
	tb := bootedTab(t, memory.NewHub(), nil)
	if _, err := tb.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if tb.sync.EventsDropped() != 0 {
		t.Fatal("disabled events must not count drops")
	}
}
