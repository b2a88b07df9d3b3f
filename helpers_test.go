package goAuthSync

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MrEthical07/goAuthSync/account"
	"github.com/MrEthical07/goAuthSync/session"
	"github.com/MrEthical07/goAuthSync/storage"
	"github.com/MrEthical07/goAuthSync/storage/memory"
)

type fakeAPI struct {
	login          func(ctx context.Context, req account.LoginRequest) (*account.LoginResponse, error)
	register       func(ctx context.Context, req account.RegisterRequest) (json.RawMessage, error)
	forgotUsername func(ctx context.Context, email string) (*account.MessageResponse, error)
	forgotPassword func(ctx context.Context, email string) (*account.MessageResponse, error)
	calls          atomic.Int64
}

func (f *fakeAPI) Login(ctx context.Context, req account.LoginRequest) (*account.LoginResponse, error) {
	f.calls.Add(1)
	if f.login == nil {
		return nil, errors.New("login not configured")
	}
	return f.login(ctx, req)
}

func (f *fakeAPI) Register(ctx context.Context, req account.RegisterRequest) (json.RawMessage, error) {
	f.calls.Add(1)
	if f.register == nil {
		return nil, errors.New("register not configured")
	}
	return f.register(ctx, req)
}

func (f *fakeAPI) ForgotUsername(ctx context.Context, email string) (*account.MessageResponse, error) {
	f.calls.Add(1)
	if f.forgotUsername == nil {
		return nil, errors.New("forgot username not configured")
	}
	return f.forgotUsername(ctx, email)
}

func (f *fakeAPI) ForgotPassword(ctx context.Context, email string) (*account.MessageResponse, error) {
	f.calls.Add(1)
	if f.forgotPassword == nil {
		return nil, errors.New("forgot password not configured")
	}
	return f.forgotPassword(ctx, email)
}

// aliceAPI accepts alice/secret and rejects everything else with a 401.
func aliceAPI() *fakeAPI {
	return &fakeAPI{
		login: func(_ context.Context, req account.LoginRequest) (*account.LoginResponse, error) {
			if req.Username == "alice" && req.Password == "secret" {
				return &account.LoginResponse{UserName: "alice", Email: "a@x.com", Role: "user", JWTToken: "abc123"}, nil
			}
			if req.Username == "bob" && req.Password == "hunter2" {
				return &account.LoginResponse{UserName: "bob", Email: "b@x.com", JWTToken: "bob-token"}, nil
			}
			return nil, account.NormalizeError(401, []byte(`{"message":"Invalid username or password."}`), account.FallbackLogin)
		},
	}
}

type recordingNavigator struct {
	mu     sync.Mutex
	paths  []string
	before func(path string)
}

func (n *recordingNavigator) Navigate(path string) {
	if n.before != nil {
		n.before(path)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.paths))
	copy(out, n.paths)
	return out
}

// faultySubstrate wraps a substrate with switchable failures and counts this
// context's writes.
type faultySubstrate struct {
	storage.Substrate
	failGet    atomic.Bool
	failSet    atomic.Bool
	failDelete atomic.Bool
	writes     atomic.Int64
}

var errInjected = errors.New("injected storage failure")

func (f *faultySubstrate) Read(ctx context.Context, keys ...string) (map[string]string, error) {
	if f.failGet.Load() {
		return nil, errInjected
	}
	return f.Substrate.Read(ctx, keys...)
}

func (f *faultySubstrate) Apply(ctx context.Context, changes ...storage.Change) error {
	f.writes.Add(1)
	for _, c := range changes {
		if c.Present && f.failSet.Load() {
			return errInjected
		}
		if !c.Present && f.failDelete.Load() {
			return errInjected
		}
	}
	return f.Substrate.Apply(ctx, changes...)
}

type tab struct {
	sync *Synchronizer
	sub  *faultySubstrate
	nav  *recordingNavigator
	api  *fakeAPI
}

func newTab(t *testing.T, sub storage.Substrate, api *fakeAPI, configure ...func(*Builder)) *tab {
	t.Helper()
	if api == nil {
		api = aliceAPI()
	}
	fs := &faultySubstrate{Substrate: sub}
	nav := &recordingNavigator{}

	b := New().WithStorage(fs).WithAccountAPI(api).WithNavigator(nav)
	for _, fn := range configure {
		fn(b)
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build synchronizer: %v", err)
	}
	t.Cleanup(s.Close)
	return &tab{sync: s, sub: fs, nav: nav, api: api}
}

// bootedTab opens a hub view, restores and starts listening.
func bootedTab(t *testing.T, hub *memory.Hub, api *fakeAPI, configure ...func(*Builder)) *tab {
	t.Helper()
	tb := newTab(t, hub.View(), api, configure...)
	if err := tb.sync.Boot(context.Background()); err != nil {
		t.Fatalf("boot: %v", err)
	}
	return tb
}

func seedRecord(t *testing.T, hub *memory.Hub, tok string, p session.Profile) {
	t.Helper()
	data, err := session.EncodeProfile(&p)
	if err != nil {
		t.Fatalf("encode profile: %v", err)
	}
	hub.ForeignSet(session.DefaultUserKey, string(data))
	hub.ForeignSet(session.DefaultTokenKey, tok)
}

func assertSlotsAbsent(t *testing.T, hub *memory.Hub) {
	t.Helper()
	if v, ok := hub.Peek(session.DefaultTokenKey); ok {
		t.Fatalf("expected token slot absent, got %q", v)
	}
	if v, ok := hub.Peek(session.DefaultUserKey); ok {
		t.Fatalf("expected user slot absent, got %q", v)
	}
}

func assertCleared(t *testing.T, s Session) {
	t.Helper()
	if !s.Equal(session.Cleared()) {
		t.Fatalf("expected cleared session, got %+v user=%+v", s, s.User)
	}
}
