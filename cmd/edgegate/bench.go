package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/devcollab/edgegate"
	"github.com/devcollab/edgegate/profile"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var benchPaths = []string{
	"/", "/login", "/register", "/home", "/projects/42/tasks", "/members",
	"/admin/login", "/admin/dashboard", "/admin/userManagement", "/callback?code=x",
	"/api/auth/refresh", "/demo",
}

type benchOptions struct {
	ops         int
	concurrency int
	sessions    int
	redisAddr   string
	skipCache   bool
}

func benchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure decision and profile cache throughput",
		Long: `Bench runs concurrent workers over a fixed mix of paths and credential
states, then a profile cache phase against Redis. Without --redis-addr
(or REDIS_ADDR) an in-process miniredis is used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.ops <= 0 || opts.concurrency <= 0 || opts.sessions <= 0 {
				return fmt.Errorf("ops, concurrency, and sessions must be > 0")
			}
			return runBench(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.ops, "ops", 200000, "Operations per phase")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 64, "Concurrent workers")
	cmd.Flags().IntVar(&opts.sessions, "sessions", 1000, "Distinct sessions for the cache phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the cache phase")
	cmd.Flags().BoolVar(&opts.skipCache, "skip-cache", false, "Run the decision phase only")

	return cmd
}

func runBench(ctx context.Context, out io.Writer, opts benchOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := edgegate.New().WithLatencyHistograms(true).Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	creds, err := benchCredentials()
	if err != nil {
		return err
	}

	decideStats, verdicts := runDecidePhase(ctx, engine, creds, opts.ops, opts.concurrency)

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "decide", decideStats)
	keys := make([]string, 0, len(verdicts))
	for k := range verdicts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-28s %d\n", k, verdicts[k])
	}

	if opts.skipCache {
		return nil
	}

	client, cleanup, err := benchRedis(out, opts.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	cache := profile.NewCache(client, "egbench", time.Minute)
	cacheStats := runCachePhase(ctx, cache, opts.sessions, opts.ops, opts.concurrency)
	printStats(out, "profile-cache", cacheStats)
	return nil
}

func benchCredentials() ([]edgegate.CredentialPair, error) {
	var out []edgegate.CredentialPair
	out = append(out, edgegate.CredentialPair{}, edgegate.CredentialPair{Access: "malformed"})
	for _, role := range []string{"admin", "contributor"} {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "bench", "role": role}).
			SignedString([]byte("bench"))
		if err != nil {
			return nil, err
		}
		out = append(out, edgegate.CredentialPair{Access: tok}, edgegate.CredentialPair{Refresh: tok})
	}
	return out, nil
}

func benchRedis(out io.Writer, addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Fprintf(out, "using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func runDecidePhase(ctx context.Context, engine *edgegate.Engine, creds []edgegate.CredentialPair, ops, concurrency int) (phaseStats, map[string]int64) {
	var (
		wg        sync.WaitGroup
		cursor    int64
		latencies = make([]time.Duration, 0, ops)
		counts    = map[string]int64{}
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := map[string]int64{}
			samples := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				path := benchPaths[r.Intn(len(benchPaths))]
				c := creds[r.Intn(len(creds))]
				t0 := time.Now()
				d := engine.Evaluate(ctx, path, c)
				samples = append(samples, time.Since(t0))
				local[d.Verdict.String()]++
			}
			mu.Lock()
			latencies = append(latencies, samples...)
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, 0), counts
}

func runCachePhase(ctx context.Context, cache *profile.Cache, sessions, ops, concurrency int) phaseStats {
	keys := make([]string, sessions)
	for i := range keys {
		keys[i] = profile.SessionKey(fmt.Sprintf("bench-session-%d", i))
	}
	fetch := func(context.Context) (profile.Profile, error) {
		return profile.Profile{ID: "bench", Role: "contributor"}, nil
	}

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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*6151))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				key := keys[r.Intn(len(keys))]
				t0 := time.Now()
				_, _, err := cache.Lookup(ctx, key, fetch)
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

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
