package goAuthSync

import (
	"context"
	"testing"

	"github.com/MrEthical07/goAuthSync/account"
	"github.com/MrEthical07/goAuthSync/storage/memory"
)

func TestBuilderRequiresStorage(t *testing.T) {
	if _, err := New().WithAccountAPI(aliceAPI()).Build(); err == nil {
		t.Fatal("expected error without storage")
	}
}

func TestBuilderRequiresAccountAPI(t *testing.T) {
	if _, err := New().WithStorage(memory.NewHub().View()).Build(); err == nil {
		t.Fatal("expected error without account API or base URL")
	}
}

func TestBuilderCreatesHTTPClientFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://api.example.test"

	s, err := New().WithConfig(cfg).WithStorage(memory.NewHub().View()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()
	if _, ok := s.api.(*account.Client); !ok {
		t.Fatalf("expected *account.Client, got %T", s.api)
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.UserKey = cfg.Storage.TokenKey

	if _, err := New().WithConfig(cfg).WithStorage(memory.NewHub().View()).WithAccountAPI(aliceAPI()).Build(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithStorage(memory.NewHub().View()).WithAccountAPI(aliceAPI())
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second build")
	}
}

func TestBuilderCustomSlots(t *testing.T) {
	hub := memory.NewHub()
	cfg := DefaultConfig()
	cfg.Storage.TokenKey = "app.token"
	cfg.Storage.UserKey = "app.user"

	s, err := New().WithConfig(cfg).WithStorage(hub.View()).WithAccountAPI(aliceAPI()).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if _, err := s.Login(context.Background(), Credentials{Username: "alice", Password: "secret"}, ""); err != nil {
		t.Fatalf("login: %v", err)
	}
	if v, _ := hub.Peek("app.token"); v != "abc123" {
		t.Fatalf("expected custom token slot, got %q", v)
	}
	if _, ok := hub.Peek("authToken"); ok {
		t.Fatal("default slot must be unused")
	}
}

func TestBuilderMetricsToggle(t *testing.T) {
	s, err := New().WithStorage(memory.NewHub().View()).WithAccountAPI(aliceAPI()).WithMetricsEnabled(false).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer s.Close()

	if err := s.Boot(context.Background()); err != nil {
		t.Fatalf("boot: %v", err)
	}
	if len(s.MetricsSnapshot().Counters) != 0 {
		t.Fatal("metrics must be empty when disabled")
	}
}
