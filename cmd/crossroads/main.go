// Command crossroads runs a four-way intersection over a schedule of vehicles
// and prints one "<in> <out> <id>" line per crossing.
//
// Usage:
//
//	crossroads [flags] [schedule]
//
// The schedule is read from stdin when no file is given or the file is "-".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/anggasct/crossroads"
	"github.com/anggasct/crossroads/pkg/dashboard"
	"github.com/anggasct/crossroads/pkg/observers"
	"github.com/anggasct/crossroads/pkg/schedule"
	"github.com/anggasct/crossroads/pkg/stream"
	"github.com/anggasct/crossroads/visualization"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type options struct {
	capacity int
	policy   string
	level    zapcore.Level
	logger   *zap.Logger
	dot      string
	ui       bool
	listen   string
	validate bool
	metrics  bool
	schedule string
}

func main() {
	var opts options
	flag.IntVar(&opts.capacity, "capacity", crossroads.DefaultLaneCapacity, "capacity of each lane buffer")
	flag.StringVar(&opts.policy, "policy", "halt", "what an invalid route does: halt or skip")
	level := zap.LevelFlag("v", zap.WarnLevel, "log level: error, warn, info or debug")
	flag.StringVar(&opts.dot, "dot", "", "write the route table as Graphviz DOT to this file (- for stdout) and exit")
	flag.BoolVar(&opts.ui, "ui", false, "show a live terminal dashboard instead of printing crossings")
	flag.StringVar(&opts.listen, "listen", "", "serve crossings as server-sent events on this address, e.g. :8080")
	flag.BoolVar(&opts.validate, "validate", false, "check crossing order and quadrant exclusion while running")
	flag.BoolVar(&opts.metrics, "metrics", false, "print quadrant metrics when the run ends")
	flag.Parse()
	opts.schedule = flag.Arg(0)
	opts.level = *level

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(*level)
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "crossroads: build logger: %v\n", err)
		os.Exit(1)
	}
	opts.logger = logger.Named("crossroads")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		opts.logger.Sugar().Error(err)
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	if opts.dot != "" {
		return writeDOT(opts.dot, stdout)
	}

	policy, err := crossroads.ParseRoutePolicy(opts.policy)
	if err != nil {
		return err
	}

	base := opts.logger
	if base == nil || opts.ui {
		base = zap.NewNop()
	}
	sugar := base.Sugar()
	logger := observers.NewLoggingObserverWithLogger(base, observers.LevelFromZap(opts.level))

	ix, err := crossroads.New(
		crossroads.WithLaneCapacity(opts.capacity),
		crossroads.WithRoutePolicy(policy),
		crossroads.WithObserver(logger),
	)
	if err != nil {
		return err
	}

	vehicles, err := readSchedule(opts.schedule, stdin)
	if err != nil {
		return err
	}
	if err := ix.Load(vehicles); err != nil {
		return err
	}

	var validator *observers.ValidationObserver
	if opts.validate {
		validator = observers.NewValidationObserver()
		validator.Expect(vehicles)
		ix.AddObserver(validator)
	}

	var metrics *observers.MetricsObserver
	if opts.metrics {
		metrics = observers.NewMetricsObserver()
		ix.AddObserver(metrics)
	}

	var srv *http.Server
	if opts.listen != "" {
		pub := stream.NewPublisher()
		defer pub.Close()
		ix.AddObserver(pub)

		mux := http.NewServeMux()
		mux.Handle("/events", pub)
		srv = &http.Server{Addr: opts.listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				sugar.Errorw("serve events", zap.Error(err))
			}
		}()
	}

	var runErr error
	if opts.ui {
		runErr = runDashboard(ctx, ix)
	} else {
		ix.AddObserver(observers.NewConsoleReporter(stdout))
		runErr = ix.Run(ctx)
	}

	if metrics != nil {
		printMetrics(stderr, metrics)
	}
	if validator != nil {
		for _, v := range validator.GetViolations() {
			fmt.Fprintf(stderr, "violation: %s\n", v)
		}
		if runErr == nil && validator.HasViolations() {
			runErr = errors.New("run violated intersection rules")
		}
	}

	if srv != nil {
		fmt.Fprintf(stderr, "serving events on %s/events, interrupt to stop\n", opts.listen)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("shutdown", zap.Error(err))
		}
	}

	return runErr
}

func readSchedule(path string, stdin io.Reader) ([]*crossroads.Vehicle, error) {
	if path == "" || path == "-" {
		return schedule.Parse(stdin)
	}
	return schedule.ParseFile(path)
}

// runDashboard runs the intersection behind the terminal dashboard. Quitting
// the dashboard cancels the run.
func runDashboard(ctx context.Context, ix *crossroads.Intersection) error {
	model := dashboard.NewModel(dashboard.DefaultHistory)
	ix.AddObserver(model)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- ix.Run(runCtx)
	}()

	if err := dashboard.New(model).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cancel()
		<-done
		return err
	}
	cancel()
	return <-done
}

func writeDOT(path string, stdout io.Writer) error {
	generator := visualization.NewDOTGenerator()
	if path != "-" {
		return generator.GenerateToFile(path)
	}
	content, err := generator.Generate()
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, content)
	return err
}

func printMetrics(w io.Writer, m *observers.MetricsObserver) {
	fmt.Fprintf(w, "crossings: %d, max concurrent: %d\n", m.GetTotalCrossings(), m.GetMaxConcurrent())
	counts := m.GetQuadrantCounts()
	for _, q := range crossroads.Quadrants() {
		fmt.Fprintf(w, "%s: %d crossings, avg hold %s, p95 %s, max %s\n",
			q, counts[q], m.GetAverageHold(q), m.GetHoldPercentile(q, 95), m.GetMaxHold(q))
	}
}
