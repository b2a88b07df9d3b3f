package goAuthSync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/goAuthSync/session"
	"github.com/MrEthical07/goAuthSync/storage"
	"github.com/MrEthical07/goAuthSync/storage/memory"
)

func TestForeignLoginAdopted(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	b := bootedTab(t, hub, nil)

	if _, err := a.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	got := b.sync.Snapshot()
	if !got.Equal(a.sync.Snapshot()) {
		t.Fatalf("tab b did not adopt the session: %+v", got)
	}
	if got.User.Email != "a@x.com" || got.User.Role != "user" || got.Token != "abc123" {
		t.Fatalf("unexpected adopted session %+v user=%+v", got, got.User)
	}
	if w := b.sub.writes.Load(); w != 0 {
		t.Fatalf("adopting tab must not write storage, wrote %d", w)
	}
	if len(b.nav.Paths()) != 0 {
		t.Fatal("adopting tab must not navigate")
	}
	if got := b.sync.MetricsSnapshot().Counters[MetricSyncAdopted]; got == 0 {
		t.Fatal("expected sync adopted counter")
	}
}

func TestForeignLogoutCleared(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	b := bootedTab(t, hub, nil)
	ctx := context.Background()

	if _, err := a.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !b.sync.IsAuthenticated() {
		t.Fatal("tab b should be logged in")
	}

	if err := a.sync.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	assertCleared(t, b.sync.Snapshot())
	if w := b.sub.writes.Load(); w != 0 {
		t.Fatalf("clearing tab must not write storage, wrote %d", w)
	}
	if got := b.sync.MetricsSnapshot().Counters[MetricSyncCleared]; got != 1 {
		t.Fatalf("expected one sync clear, got %d", got)
	}
}

func TestForeignSingleSlotRemovalClears(t *testing.T) {
	for _, key := range []string{session.DefaultTokenKey, session.DefaultUserKey} {
		hub := memory.NewHub()
		seedRecord(t, hub, "abc123", session.Profile{Username: "alice"})
		tb := bootedTab(t, hub, nil)
		if !tb.sync.IsAuthenticated() {
			t.Fatal("expected restored session")
		}

		hub.ForeignDelete(key)

		assertCleared(t, tb.sync.Snapshot())
		if tb.sub.writes.Load() != 0 {
			t.Fatalf("%s: reconciliation must not write storage", key)
		}
	}
}

func TestForeignCorruptProfileIgnored(t *testing.T) {
	hub := memory.NewHub()
	tb := bootedTab(t, hub, nil)
	if _, err := tb.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	before := tb.sync.Snapshot()

	for _, raw := range []string{`{"username":`, `[1,2]`, `{"email":"x@y.z"}`, `42`} {
		hub.ForeignSet(session.DefaultUserKey, raw)
		if after := tb.sync.Snapshot(); !after.Equal(before) {
			t.Fatalf("malformed profile %q changed session to %+v", raw, after)
		}
	}
	if got := tb.sync.MetricsSnapshot().Counters[MetricSyncIgnored]; got != 4 {
		t.Fatalf("expected 4 ignored notifications, got %d", got)
	}
}

func TestForeignUnrelatedKeyIgnored(t *testing.T) {
	hub := memory.NewHub()
	booted := bootedTab(t, hub, nil)
	hub.ForeignSet("theme", "dark")
	hub.ForeignDelete("theme")
	assertCleared(t, booted.sync.Snapshot())
	if got := booted.sync.MetricsSnapshot().Counters[MetricSyncIgnored]; got != 0 {
		t.Fatalf("unrelated keys must not reach reconciliation, got %d", got)
	}

	// Storage holds a full record the tab has not loaded; only a slot
	// notification may cause it to be read.
	seedRecord(t, hub, "abc123", session.Profile{Username: "alice"})
	tb := newTab(t, hub.View(), nil)
	ctx := context.Background()

	tb.sync.HandleStorageChange(ctx, storage.Change{Key: "theme", Value: "light", Present: true})
	assertCleared(t, tb.sync.Snapshot())

	tb.sync.HandleStorageChange(ctx, storage.Change{Key: session.DefaultTokenKey, Value: "abc123", Present: true})
	if !tb.sync.IsAuthenticated() {
		t.Fatal("a slot notification should adopt the stored record")
	}
}

func TestOwnWritesDoNotSelfNotify(t *testing.T) {
	hub := memory.NewHub()
	tb := bootedTab(t, hub, nil)
	ctx := context.Background()

	if _, err := tb.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := tb.sync.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	counters := tb.sync.MetricsSnapshot().Counters
	if counters[MetricSyncAdopted] != 0 || counters[MetricSyncCleared] != 0 || counters[MetricSyncIgnored] != 0 {
		t.Fatalf("own writes reached the listener: %v", counters)
	}
}

func TestSwitchingUserAcrossTabs(t *testing.T) {
	hub := memory.NewHub()
	var (
		mu   sync.Mutex
		seen []SessionEvent
	)
	record := EventSinkFunc(func(_ context.Context, ev SessionEvent) {
		mu.Lock()
		seen = append(seen, ev)
		mu.Unlock()
	})
	a := bootedTab(t, hub, nil, func(b *Builder) { b.WithEventSink(record) })
	b := bootedTab(t, hub, nil)
	ctx := context.Background()

	if _, err := a.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login alice: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := b.sync.Login(ctx, Credentials{Username: "bob", Password: "hunter2"}, ""); err != nil {
			t.Fatalf("login bob: %v", err)
		}
		if _, err := b.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
			t.Fatalf("login alice from b: %v", err)
		}
	}
	if _, err := b.sync.Login(ctx, Credentials{Username: "bob", Password: "hunter2"}, ""); err != nil {
		t.Fatalf("login bob: %v", err)
	}

	got := a.sync.Snapshot()
	if got.Token != "bob-token" || got.User.Username != "bob" || got.User.Role != "" {
		t.Fatalf("tab a did not converge on bob: %+v user=%+v", got, got.User)
	}

	a.sync.Close()
	wantToken := map[string]string{"alice": "abc123", "bob": "bob-token"}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 2 {
		t.Fatalf("expected tab a to report its adoptions, got %d events", len(seen))
	}
	for i, ev := range seen {
		if !ev.Session.Authenticated {
			continue
		}
		user := ev.Session.User.Username
		if ev.Session.Token != wantToken[user] {
			t.Fatalf("event %d (%s) paired %s with token %q", i, ev.Type, user, ev.Session.Token)
		}
	}
}

func TestClosedSynchronizerStopsListening(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	b := bootedTab(t, hub, nil)

	b.sync.Close()
	b.sync.Close()

	if _, err := a.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	assertCleared(t, b.sync.Snapshot())

	if err := b.sync.Start(context.Background()); !errors.Is(err, ErrSynchronizerClosed) {
		t.Fatalf("expected ErrSynchronizerClosed, got %v", err)
	}
}

func TestStartIdempotent(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	b := bootedTab(t, hub, nil)

	if err := b.sync.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if _, err := a.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	// one notification per slot, one registration.
	counters := b.sync.MetricsSnapshot().Counters
	if got := counters[MetricSyncAdopted] + counters[MetricSyncIgnored]; got != 2 {
		t.Fatalf("expected 2 handled notifications, got %d", got)
	}
}

func TestForeignExpiredTokenClearsWhenRejecting(t *testing.T) {
	hub := memory.NewHub()
	reject := func(b *Builder) {
		cfg := DefaultConfig()
		cfg.Session.RejectExpiredTokens = true
		b.WithConfig(cfg)
	}
	tb := bootedTab(t, hub, nil, reject)
	if _, err := tb.sync.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}

	expired := signedTokenAt(t, -1)
	hub.ForeignSet(session.DefaultTokenKey, expired)

	assertCleared(t, tb.sync.Snapshot())
	if v, _ := hub.Peek(session.DefaultTokenKey); v != expired {
		t.Fatal("reconciliation must leave storage untouched")
	}
}

func TestConcurrentReadersDuringSync(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	b := bootedTab(t, hub, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := b.sync.Snapshot()
				if s.Authenticated && (s.Token == "" || s.User == nil || s.User.Username == "") {
					t.Error("observed inconsistent session")
					return
				}
				_ = b.sync.User()
				_ = b.sync.Token()
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if _, err := a.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
			t.Fatalf("login: %v", err)
		}
		if err := a.sync.Logout(ctx); err != nil {
			t.Fatalf("logout: %v", err)
		}
	}
	close(stop)
	wg.Wait()

	assertCleared(t, b.sync.Snapshot())
}

func TestConcurrentLoginsAcrossTabsDoNotDeadlock(t *testing.T) {
	hub := memory.NewHub()
	a := bootedTab(t, hub, nil)
	b := bootedTab(t, hub, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, tb := range []*tab{a, b} {
		wg.Add(1)
		go func(tb *tab) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := tb.sync.Login(ctx, Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
					t.Errorf("login: %v", err)
					return
				}
				if err := tb.sync.Clear(ctx); err != nil {
					t.Errorf("clear: %v", err)
					return
				}
			}
		}(tb)
	}
	wg.Wait()
}
