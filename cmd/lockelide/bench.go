package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/kolkov/lockelide/elide"
)

type benchConfig struct {
	goroutines  int
	ops         int
	keys        int
	lock        string
	unit        string
	maxRetries  int
	name        string
	metricsAddr string
	linger      time.Duration
}

func newBenchCmd(logger func(*cobra.Command) logr.Logger) *cobra.Command {
	cfg := benchConfig{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "run a contended counter workload through elided scopes",
		Long: `
Run a workload in which every goroutine increments counters under one shared
fallback lock. Each increment is one elided scope. With --keys greater than
one the goroutines mostly touch different counters, which transactions run in
parallel. The final counter sum is checked against the number of operations.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), logger(cmd), cfg)
		},
	}
	addBenchFlags(cmd.Flags(), &cfg)
	return cmd
}

func addBenchFlags(f *pflag.FlagSet, cfg *benchConfig) {
	f.IntVarP(&cfg.goroutines, "goroutines", "g", runtime.GOMAXPROCS(0), "concurrent goroutines")
	f.IntVarP(&cfg.ops, "ops", "n", 100000, "operations per goroutine")
	f.IntVar(&cfg.keys, "keys", 64, "number of counters; 1 makes every scope conflict")
	f.StringVar(&cfg.lock, "lock", "mutex", "fallback lock: mutex, spin or ticket")
	f.StringVar(&cfg.unit, "unit", "auto", "transactional unit: auto, rtm or none")
	f.IntVar(&cfg.maxRetries, "max-retries", -1, "retries after the first attempt (-1 keeps the default)")
	f.StringVar(&cfg.name, "name", "bench", "scope name used in statistics")
	f.StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.DurationVar(&cfg.linger, "linger", 0, "keep serving metrics this long after the run")
}

func newLock(kind string) (elide.Lock, error) {
	switch kind {
	case "mutex":
		return &elide.Mutex{}, nil
	case "spin":
		return &elide.SpinLock{}, nil
	case "ticket":
		return &elide.TicketLock{}, nil
	default:
		return nil, errors.Newf("unknown lock %q: want mutex, spin or ticket", kind)
	}
}

func benchOptions(cfg benchConfig, log logr.Logger) ([]elide.Option, error) {
	opts := []elide.Option{elide.WithName(cfg.name), elide.WithLogger(log)}
	switch cfg.unit {
	case "auto":
	case "rtm":
		if ok, err := elide.Available(); !ok {
			return nil, errors.Wrap(err, "--unit=rtm")
		}
	case "none":
		opts = append(opts, elide.WithoutElision())
	default:
		return nil, errors.Newf("unknown unit %q: want auto, rtm or none", cfg.unit)
	}
	if cfg.maxRetries >= 0 {
		opts = append(opts, elide.WithMaxRetries(cfg.maxRetries))
	}
	return opts, nil
}

func runBench(ctx context.Context, w io.Writer, log logr.Logger, cfg benchConfig) error {
	if cfg.goroutines < 1 || cfg.ops < 1 || cfg.keys < 1 {
		return errors.Newf("--goroutines, --ops and --keys must be positive")
	}
	lock, err := newLock(cfg.lock)
	if err != nil {
		return err
	}
	opts, err := benchOptions(cfg, log)
	if err != nil {
		return err
	}
	e, err := elide.New(opts...)
	if err != nil {
		return err
	}

	if cfg.metricsAddr != "" {
		stop, err := serveMetrics(cfg.metricsAddr, log)
		if err != nil {
			return err
		}
		defer func() {
			if cfg.linger > 0 {
				log.Info("serving metrics after the run", "addr", cfg.metricsAddr, "linger", cfg.linger)
				time.Sleep(cfg.linger)
			}
			stop()
		}()
	}

	before := elide.Stats(cfg.name)
	counters := make([]uint64, cfg.keys)

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.goroutines; i++ {
		g.Go(func() error {
			for n := 0; n < cfg.ops; n++ {
				if n%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				k := (i*cfg.ops + n) % cfg.keys
				e.Run(lock, func(*elide.Scope) {
					counters[k]++
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "bench interrupted")
	}
	took := time.Since(start)

	var sum uint64
	for _, c := range counters {
		sum += c
	}
	total := uint64(cfg.goroutines) * uint64(cfg.ops)
	if sum != total {
		return errors.AssertionFailedf("lost updates: counted %d of %d", sum, total)
	}

	printReport(w, cfg, total, took, diff(elide.Stats(cfg.name), before))
	return nil
}

// diff subtracts an earlier snapshot of the same name.
func diff(after, before elide.Snapshot) elide.Snapshot {
	after.Commits -= before.Commits
	after.Fences -= before.Fences
	for k, v := range before.Aborts {
		after.Aborts[k] -= v
	}
	for k, v := range before.Fallbacks {
		after.Fallbacks[k] -= v
	}
	return after
}

func printReport(w io.Writer, cfg benchConfig, total uint64, took time.Duration, s elide.Snapshot) {
	var rate float64
	if took > 0 {
		rate = float64(total) / took.Seconds()
	}
	fmt.Fprintf(w, "workload:     %d goroutines x %s ops on %d keys, %s lock\n",
		cfg.goroutines, humanize.Comma(int64(cfg.ops)), cfg.keys, cfg.lock)
	fmt.Fprintf(w, "elapsed:      %s (%s ops/s)\n", took.Round(time.Microsecond), humanize.Comma(int64(rate)))
	fmt.Fprintf(w, "scopes:       %s\n", humanize.Comma(int64(s.Scopes())))
	fmt.Fprintf(w, "commits:      %s (%.1f%% elided)\n", humanize.Comma(int64(s.Commits)), 100*s.ElisionRate())
	fmt.Fprintf(w, "fallbacks:    %s\n", humanize.Comma(int64(s.TotalFallbacks())))
	reasons := make([]elide.FallbackReason, 0, len(s.Fallbacks))
	for r, n := range s.Fallbacks {
		if n > 0 {
			reasons = append(reasons, r)
		}
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, r := range reasons {
		fmt.Fprintf(w, "  %-12s%s\n", string(r)+":", humanize.Comma(int64(s.Fallbacks[r])))
	}
	fmt.Fprintf(w, "fence waits:  %s\n", humanize.Comma(int64(s.Fences)))
	fmt.Fprintf(w, "aborts:       %s\n", humanize.Comma(int64(s.TotalAborts())))
	var causes []string
	for cause, n := range s.Aborts {
		if n > 0 {
			causes = append(causes, cause)
		}
	}
	sort.Strings(causes)
	for _, cause := range causes {
		fmt.Fprintf(w, "  %-12s%s\n", cause+":", humanize.Comma(int64(s.Aborts[cause])))
	}
}

// serveMetrics serves the elision counters on addr until stop is called.
func serveMetrics(addr string, log logr.Logger) (stop func(), _ error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(elide.Collector()); err != nil {
		return nil, errors.Wrap(err, "registering collector")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listening on %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "metrics server failed")
		}
	}()
	log.V(1).Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
