// Command goauthsync-demo drives two simulated tabs over a shared storage
// backend and reports how quickly session changes propagate between them.
//
// Without -api-url an in-process account API is started with a single user,
// alice/correct-horse.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goAuthSync "github.com/MrEthical07/goAuthSync"
	"github.com/MrEthical07/goAuthSync/internal/accountstub"
	"github.com/MrEthical07/goAuthSync/metrics/export/prometheus"
	"github.com/MrEthical07/goAuthSync/storage"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config overlay")
		backendKind = flag.String("backend", "memory", "storage backend: memory, redis, miniredis, sqlite")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "tabs", "redis key prefix")
		sqlitePath  = flag.String("sqlite-path", "", "sqlite file; a temp file is used when empty")
		apiURL      = flag.String("api-url", "", "account API base URL; an in-process stub is used when empty")
		username    = flag.String("username", "alice", "login username")
		passwd      = flag.String("password", "correct-horse", "login password")
		rounds      = flag.Int("rounds", 50, "login/logout rounds in the propagation phase")
		concurrency = flag.Int("concurrency", 4, "concurrent logins in the contention phase")
		ops         = flag.Int("ops", 200, "logins in the contention phase")
		wait        = flag.Duration("wait", 5*time.Second, "maximum time to wait for one propagation")
		metricsAddr = flag.String("metrics-addr", "", "serve Prometheus metrics for tab A and wait for a signal")
		verbose     = flag.Bool("v", false, "print session events")
	)
	flag.Parse()

	if *rounds <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "rounds, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	if *apiURL != "" {
		cfg.API.BaseURL = *apiURL
	} else if cfg.API.BaseURL == "" {
		base, shutdown, err := startStub(logger, *username, *passwd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "account stub: %v\n", err)
			os.Exit(1)
		}
		defer shutdown()
		cfg.API.BaseURL = base
		fmt.Printf("using account stub at %s\n", base)
	}

	be, err := openBackend(*backendKind, *redisAddr, *prefix, *sqlitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(2)
	}
	defer be.cleanup()
	fmt.Printf("using %s\n", be.name)

	a, err := openTab(ctx, "tab-a", cfg, be, logger, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tab-a: %v\n", err)
		os.Exit(1)
	}
	defer a.close()
	b, err := openTab(ctx, "tab-b", cfg, be, logger, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tab-b: %v\n", err)
		os.Exit(1)
	}
	defer b.close()

	creds := goAuthSync.Credentials{Username: *username, Password: *passwd}

	propagation, err := runPropagationPhase(ctx, a, b, creds, *rounds, *wait)
	if err != nil {
		fmt.Fprintf(os.Stderr, "propagation: %v\n", err)
		os.Exit(1)
	}
	contention := runContentionPhase(ctx, a, b, creds, *ops, *concurrency)
	converged := awaitAgreement(ctx, a, b, *wait)

	fmt.Println("---- results ----")
	printStats("login->adopt", propagation.adopt)
	printStats("logout->clear", propagation.clear)
	printStats("contended login", contention)
	fmt.Printf("tabs agree after contention: %t (authenticated=%t)\n", converged, a.sync.IsAuthenticated())
	printMetrics("tab-a", a.sync.MetricsSnapshot())
	printMetrics("tab-b", b.sync.MetricsSnapshot())

	if *metricsAddr == "" {
		return
	}
	if err := serveMetrics(ctx, *metricsAddr, a.sync); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
		os.Exit(1)
	}
}

type tab struct {
	name      string
	sync      *goAuthSync.Synchronizer
	substrate storage.Substrate
}

func openTab(ctx context.Context, name string, cfg goAuthSync.Config, be *backend, logger *slog.Logger, verbose bool) (*tab, error) {
	sub, err := be.open(ctx)
	if err != nil {
		return nil, err
	}
	builder := goAuthSync.New().
		WithConfig(cfg).
		WithStorage(sub).
		WithLogger(logger.With("tab", name)).
		WithLatencyHistograms(cfg.Metrics.Enabled)
	if verbose {
		builder = builder.WithEventSink(goAuthSync.EventSinkFunc(func(_ context.Context, e goAuthSync.SessionEvent) {
			fmt.Printf("[%s] %s origin=%s success=%t user=%s\n", name, e.Type, e.Origin, e.Success, e.Username)
		}))
	}
	s, err := builder.Build()
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	if err := s.Boot(ctx); err != nil {
		s.Close()
		_ = sub.Close()
		return nil, err
	}
	return &tab{name: name, sync: s, substrate: sub}, nil
}

func (t *tab) close() {
	t.sync.Close()
	_ = t.substrate.Close()
}

func startStub(logger *slog.Logger, username, password string) (string, func(), error) {
	stub, err := accountstub.NewServer(accountstub.Config{
		Secret: []byte("goauthsync-demo"),
		Logger: logger,
	})
	if err != nil {
		return "", nil, err
	}
	if err := stub.AddUser(username, username+"@example.com", password, "user"); err != nil {
		return "", nil, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: stub.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return "http://" + ln.Addr().String(), shutdown, nil
}

func serveMetrics(ctx context.Context, addr string, s *goAuthSync.Synchronizer) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(s).Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("serving metrics on %s/metrics (ctrl-c to stop)\n", addr)
	return srv.ListenAndServe()
}

func printMetrics(name string, snap goAuthSync.MetricsSnapshot) {
	c := snap.Counters
	fmt.Printf("%s: logins=%d logouts=%d adopted=%d cleared=%d ignored=%d storage_failures=%d\n",
		name,
		c[goAuthSync.MetricLoginSuccess],
		c[goAuthSync.MetricLogout],
		c[goAuthSync.MetricSyncAdopted],
		c[goAuthSync.MetricSyncCleared],
		c[goAuthSync.MetricSyncIgnored],
		c[goAuthSync.MetricStorageFailure],
	)
}
