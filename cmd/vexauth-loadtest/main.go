// Command vexauth-loadtest measures verify and refresh throughput of a
// vexauth engine against a real or embedded Redis.
//
// With no -redis-addr flag and no REDIS_ADDR env it starts miniredis, so
// the tool runs self-contained.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	vexauth "github.com/vexenlabs/vexauth"
	"github.com/vexenlabs/vexauth/store"
)

func main() {
	var (
		sessions    = flag.Int("sessions", 1000, "number of logged-in sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (verify + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "va", "cache key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
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

	cfg := vexauth.Config{
		JWT: vexauth.JWTConfig{
			Secret:     []byte("loadtest-secret-loadtest-secret!"),
			Issuer:     "vexauth-loadtest",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
		Cache: vexauth.CacheConfig{Prefix: *prefix},
	}

	dir := newLoadDirectory(*sessions)
	engine, err := vexauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithTokenStore(store.NewMemory()).
		WithCredentialStore(loadCreds{dir}).
		WithUserDirectory(dir).
		WithPasswordVerifier(plaintextVerifier{}).
		Build(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	pairs := make([]*vexauth.LoginResult, *sessions)
	for i := range pairs {
		res, err := engine.Login(ctx, dir.email(i), "load")
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed login failed: %v\n", err)
			os.Exit(1)
		}
		pairs[i] = res
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	verifyStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Verify(ctx, pairs[r.Intn(len(pairs))].AccessToken)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, func(r *rand.Rand) error {
		_, err := engine.Refresh(ctx, pairs[r.Intn(len(pairs))].RefreshToken)
		return err
	})

	fmt.Println("---- results ----")
	printStats("verify", verifyStats)
	printStats("refresh", refreshStats)
}

func runPhase(ops, concurrency int, op func(*rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
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

// loadDirectory is a fixed set of accounts, one per seeded session.
type loadDirectory struct {
	n int
}

func newLoadDirectory(n int) *loadDirectory { return &loadDirectory{n: n} }

func (d *loadDirectory) email(i int) string { return fmt.Sprintf("user-%d@load.test", i) }

func (d *loadDirectory) GetByEmail(_ context.Context, email string) (*vexauth.User, error) {
	var i int
	if _, err := fmt.Sscanf(email, "user-%d@load.test", &i); err != nil || i < 0 || i >= d.n {
		return nil, nil
	}
	return &vexauth.User{Subject: fmt.Sprintf("u-%d", i), Email: email, Provider: "local"}, nil
}

// loadCreds exposes the same accounts as a CredentialStore. A separate
// type because both interfaces name a GetByEmail method.
type loadCreds struct{ dir *loadDirectory }

func (c loadCreds) GetByEmail(_ context.Context, email string) (*vexauth.Credential, error) {
	var i int
	if _, err := fmt.Sscanf(email, "user-%d@load.test", &i); err != nil || i < 0 || i >= c.dir.n {
		return nil, nil
	}
	return &vexauth.Credential{
		Subject:      fmt.Sprintf("u-%d", i),
		PasswordHash: "load",
	}, nil
}

func (d *loadDirectory) GetByID(_ context.Context, subject string) (*vexauth.User, error) {
	var i int
	if _, err := fmt.Sscanf(subject, "u-%d", &i); err != nil || i < 0 || i >= d.n {
		return nil, nil
	}
	return &vexauth.User{Subject: subject, Email: d.email(i), Provider: "local"}, nil
}

func (d *loadDirectory) Create(_ context.Context, _ *vexauth.User) (*vexauth.User, error) {
	return nil, fmt.Errorf("loadtest directory is fixed")
}

func (d *loadDirectory) UpdateLastLogin(context.Context, string, time.Time) error { return nil }

// plaintextVerifier skips argon2 so seeding is not hash-bound.
type plaintextVerifier struct{}

func (plaintextVerifier) Verify(password, hash string) (bool, error) { return password == hash, nil }
func (plaintextVerifier) DummyHash() string                          { return "decoy" }
