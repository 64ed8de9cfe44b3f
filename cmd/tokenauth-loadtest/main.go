// Command tokenauth-loadtest measures Authenticate and Reissue latency against
// Redis or an in-process miniredis.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/identity"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type subjectState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func main() {
	var (
		subjects    = flag.Int("subjects", 10000, "number of subjects to log in")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (authenticate + reissue)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, TOKENAUTH_REDIS_ADDR env or miniredis is used")
		cas         = flag.Bool("cas", false, "use compare-and-swap refresh rotation")
	)
	flag.Parse()

	if *subjects <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "subjects, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("TOKENAUTH_REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := tokenauth.DefaultConfig()
	cfg.JWT.Secret = []byte(strings.Repeat("l", 32))
	cfg.DevLogin.Enabled = true
	cfg.Store.CompareAndSwapRotation = *cas
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := tokenauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithIdentityStore(identity.NewMemoryStore()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]subjectState, *subjects)
	fmt.Printf("logging in %d subjects...\n", *subjects)
	startSeed := time.Now()
	for i := range states {
		res, err := engine.DevLogin(ctx, fmt.Sprintf("load-%d@example.com", i))
		if err != nil {
			fmt.Fprintf(os.Stderr, "dev login failed: %v\n", err)
			os.Exit(1)
		}
		states[i].access = res.Tokens.AccessToken
		states[i].refresh = res.Tokens.RefreshToken
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		token := s.access
		s.mu.Unlock()
		_, err := engine.Authenticate(ctx, token)
		return err
	})

	reissueStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand) error {
		s := &states[r.Intn(len(states))]
		s.mu.Lock()
		defer s.mu.Unlock()
		pair, err := engine.Reissue(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access = pair.AccessToken
		s.refresh = pair.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("reissue", reissueStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("reuse_detected=%d store_unavailable=%d\n",
		snap.Counters[tokenauth.MetricRefreshReuseDetected],
		snap.Counters[tokenauth.MetricStoreUnavailable],
	)
}

func runPhase(ops, concurrency int, seed int64, op func(*rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				if int(atomic.AddInt64(&cursor, 1)) > ops {
					return
				}
				t0 := time.Now()
				err := op(r)
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
	return computeStats(time.Since(start), latencies, failures)
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
		return phaseStats{total: total}
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
	switch {
	case len(samples) == 0:
		return 0
	case p <= 0:
		return samples[0]
	case p >= 100:
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
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
