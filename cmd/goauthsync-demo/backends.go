package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrEthical07/goAuthSync/storage"
	"github.com/MrEthical07/goAuthSync/storage/memory"
	redisstore "github.com/MrEthical07/goAuthSync/storage/redis"
	"github.com/MrEthical07/goAuthSync/storage/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// backend hands out one substrate per simulated tab, all sharing the same
// durable slots.
type backend struct {
	name    string
	open    func(ctx context.Context) (storage.Substrate, error)
	cleanup func()
}

func openBackend(kind, redisAddr, prefix, sqlitePath string) (*backend, error) {
	switch kind {
	case "memory":
		hub := memory.NewHub()
		return &backend{
			name:    "memory",
			open:    func(context.Context) (storage.Substrate, error) { return hub.View(), nil },
			cleanup: func() {},
		}, nil

	case "redis", "miniredis":
		addr := redisAddr
		if addr == "" {
			addr = os.Getenv("REDIS_ADDR")
		}
		cleanup := func() {}
		if kind == "miniredis" || addr == "" {
			mr, err := miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			cleanup = mr.Close
			kind = "miniredis"
		}
		var clients []redis.UniversalClient
		return &backend{
			name: fmt.Sprintf("%s at %s", kind, addr),
			open: func(context.Context) (storage.Substrate, error) {
				client := redis.NewUniversalClient(&redis.UniversalOptions{
					Addrs: []string{addr},
				})
				clients = append(clients, client)
				return redisstore.New(client, prefix), nil
			},
			cleanup: func() {
				for _, c := range clients {
					_ = c.Close()
				}
				cleanup()
			},
		}, nil

	case "sqlite":
		path := sqlitePath
		cleanup := func() {}
		if path == "" {
			dir, err := os.MkdirTemp("", "goauthsync-demo-")
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "slots.db")
			cleanup = func() { _ = os.RemoveAll(dir) }
		}
		return &backend{
			name: "sqlite at " + path,
			open: func(ctx context.Context) (storage.Substrate, error) {
				return sqlite.Open(ctx, path, sqlite.Options{})
			},
			cleanup: cleanup,
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q (want memory, redis, miniredis or sqlite)", kind)
}
