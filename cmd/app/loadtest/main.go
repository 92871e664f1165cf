package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/pvzzle/taptracker/internal/api"
	"github.com/pvzzle/taptracker/internal/tg"
)

type opType int

const (
	opReward opType = iota
	opHealth
)

type target struct {
	base      string
	addresses []string
	token     string
	initData  string
	users     int
	client    *http.Client
}

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "tracker base URL")
		addrList   = flag.String("addresses", "", "comma-separated account addresses to query")
		token      = flag.String("token", "", "bot token used to sign init data (test bots only)")
		initData   = flag.String("init-data", "", "fixed init data, overrides -token")
		users      = flag.Int("users", 1000, "distinct simulated Telegram users when signing")
		dur        = flag.Duration("dur", 60*time.Second, "test duration")
		warmup     = flag.Duration("warmup", 5*time.Second, "warmup duration (not counted)")
		avgRPS     = flag.Int("avg-rps", 20, "avg RPS")
		peakRPS    = flag.Int("peak-rps", 100, "peak RPS (during ramp)")
		ramp       = flag.Duration("ramp", 10*time.Second, "ramp-up duration to peak")
		ratio      = flag.Int("ratio", 10, "reward requests per 1 healthz request")
		workers    = flag.Int("workers", 32, "concurrent workers")
		reqTimeout = flag.Duration("timeout", 60*time.Second, "per-request timeout")
	)
	flag.Parse()

	addrs := splitList(*addrList)
	if len(addrs) == 0 {
		panic("addresses required")
	}
	if *token == "" && *initData == "" {
		panic("token or init-data required")
	}

	t := &target{
		base:      strings.TrimRight(*baseURL, "/"),
		addresses: addrs,
		token:     *token,
		initData:  *initData,
		users:     max(*users, 1),
		client: &http.Client{
			Timeout: *reqTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        *workers,
				MaxIdleConnsPerHost: *workers,
			},
		},
	}

	ctx := context.Background()

	fmt.Println("starting warmup:", *warmup)
	runPhase(ctx, t, *workers, *avgRPS, *avgRPS, 0, *warmup, *ratio, false)

	fmt.Println("starting measured test:", *dur)
	res := runPhase(ctx, t, *workers, *avgRPS, *peakRPS, *ramp, *dur, *ratio, true)

	printReport(res)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type results struct {
	totalOps   uint64
	rewardOps  uint64
	healthOps  uint64
	errOps     uint64
	statuses   map[int]uint64
	latencies  []time.Duration // measured reward ops only
	startedAt  time.Time
	finishedAt time.Time
}

func runPhase(
	ctx context.Context,
	t *target,
	workers int,
	avgRPS int,
	peakRPS int,
	ramp time.Duration,
	dur time.Duration,
	ratio int,
	collect bool,
) *results {
	ctx, cancel := context.WithTimeout(ctx, dur)
	defer cancel()

	// If ramp == 0 => constant avgRPS
	lim := rate.NewLimiter(rate.Limit(avgRPS), max(avgRPS, 1))

	type job struct {
		op opType
	}

	jobs := make(chan job, 1024)

	var (
		res = &results{statuses: map[int]uint64{}}
		mu  sync.Mutex
	)

	res.startedAt = time.Now()

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano()))
			for j := range jobs {
				t0 := time.Now()
				code, err := doOp(ctx, t, j.op, r)
				dt := time.Since(t0)

				atomic.AddUint64(&res.totalOps, 1)
				if j.op == opReward {
					atomic.AddUint64(&res.rewardOps, 1)
				} else {
					atomic.AddUint64(&res.healthOps, 1)
				}

				mu.Lock()
				if code != 0 {
					res.statuses[code]++
				}
				if collect && err == nil && j.op == opReward {
					res.latencies = append(res.latencies, dt)
				}
				mu.Unlock()

				if err != nil {
					atomic.AddUint64(&res.errOps, 1)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)

		// ratio reward requests then 1 healthz
		pattern := make([]opType, 0, ratio+1)
		for i := 0; i < ratio; i++ {
			pattern = append(pattern, opReward)
		}
		pattern = append(pattern, opHealth)
		idx := 0

		rampStart := time.Now()

		for {
			if err := lim.Wait(ctx); err != nil {
				return
			}

			if ramp > 0 {
				el := time.Since(rampStart)
				if el < ramp {
					// linear from avgRPS -> peakRPS
					cur := float64(avgRPS) + (float64(peakRPS-avgRPS) * (float64(el) / float64(ramp)))
					lim.SetLimit(rate.Limit(cur))
				} else {
					lim.SetLimit(rate.Limit(peakRPS))
				}
			}

			select {
			case jobs <- job{op: pattern[idx]}:
			case <-ctx.Done():
				return
			}
			idx++
			if idx == len(pattern) {
				idx = 0
			}
		}
	}()

	wg.Wait()
	res.finishedAt = time.Now()
	return res
}

func doOp(ctx context.Context, t *target, op opType, r *rand.Rand) (int, error) {
	var req *http.Request
	var err error

	switch op {
	case opHealth:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, t.base+"/healthz", nil)
	default:
		addr := t.addresses[r.Intn(len(t.addresses))]
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, t.base+"/reward?address="+url.QueryEscape(addr), nil)
		if err == nil {
			req.Header.Set(api.InitDataHeader, t.initDataFor(int64(1+r.Intn(t.users))))
		}
	}
	if err != nil {
		return 0, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

func (t *target) initDataFor(userID int64) string {
	if t.initData != "" {
		return t.initData
	}
	return tg.SignInitData(t.token, map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"user":      `{"id":` + strconv.FormatInt(userID, 10) + `,"first_name":"load"}`,
	})
}

func printReport(res *results) {
	d := res.finishedAt.Sub(res.startedAt)
	total := atomic.LoadUint64(&res.totalOps)
	errs := atomic.LoadUint64(&res.errOps)
	rewards := atomic.LoadUint64(&res.rewardOps)
	health := atomic.LoadUint64(&res.healthOps)

	fmt.Printf("\n== REPORT ==\n")
	fmt.Printf("duration: %s\n", d)
	fmt.Printf("ops: total=%d reward=%d healthz=%d errors=%d\n", total, rewards, health, errs)
	if d > 0 {
		fmt.Printf("throughput: %.2f ops/s\n", float64(total)/d.Seconds())
	}

	codes := make([]int, 0, len(res.statuses))
	for c := range res.statuses {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		fmt.Printf("status %d: %d\n", c, res.statuses[c])
	}

	if len(res.latencies) == 0 {
		fmt.Println("no latency samples")
		return
	}
	sort.Slice(res.latencies, func(i, j int) bool { return res.latencies[i] < res.latencies[j] })
	p := func(q float64) time.Duration {
		i := int(q * float64(len(res.latencies)-1))
		return res.latencies[i]
	}
	fmt.Printf("reward latency p50=%s p95=%s p99=%s max=%s\n",
		p(0.50), p(0.95), p(0.99), res.latencies[len(res.latencies)-1],
	)
}
