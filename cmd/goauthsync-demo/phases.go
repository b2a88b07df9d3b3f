package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goAuthSync "github.com/MrEthical07/goAuthSync"
)

type propagationStats struct {
	adopt phaseStats
	clear phaseStats
}

// runPropagationPhase alternates the writing tab and measures how long the
// other tab takes to observe each login and logout.
func runPropagationPhase(ctx context.Context, a, b *tab, creds goAuthSync.Credentials, rounds int, wait time.Duration) (propagationStats, error) {
	var (
		adopt   = make([]time.Duration, 0, rounds)
		cleared = make([]time.Duration, 0, rounds)
		misses  int64
	)

	start := time.Now()
	for i := 0; i < rounds; i++ {
		writer, reader := a, b
		if i%2 == 1 {
			writer, reader = b, a
		}

		t0 := time.Now()
		sess, err := writer.sync.Login(ctx, creds, "")
		if err != nil {
			return propagationStats{}, fmt.Errorf("%s login: %w", writer.name, err)
		}
		if waitUntil(ctx, wait, func() bool { return reader.sync.Token() == sess.Token }) {
			adopt = append(adopt, time.Since(t0))
		} else {
			misses++
		}

		t0 = time.Now()
		if err := writer.sync.Logout(ctx); err != nil {
			return propagationStats{}, fmt.Errorf("%s logout: %w", writer.name, err)
		}
		if waitUntil(ctx, wait, func() bool { return !reader.sync.IsAuthenticated() }) {
			cleared = append(cleared, time.Since(t0))
		} else {
			misses++
		}
	}
	total := time.Since(start)

	return propagationStats{
		adopt: computeStats(total, adopt, misses),
		clear: computeStats(total, cleared, misses),
	}, nil
}

// runContentionPhase logs in from both tabs at once. Failures count logins
// that returned an error, not disagreements between tabs.
func runContentionPhase(ctx context.Context, a, b *tab, creds goAuthSync.Credentials, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			t := a
			if worker%2 == 1 {
				t = b
			}
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := t.sync.Login(ctx, creds, "")
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func awaitAgreement(ctx context.Context, a, b *tab, wait time.Duration) bool {
	return waitUntil(ctx, wait, func() bool { return a.sync.Snapshot().Equal(b.sync.Snapshot()) })
}

func waitUntil(ctx context.Context, wait time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(wait)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		time.Sleep(200 * time.Microsecond)
	}
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
