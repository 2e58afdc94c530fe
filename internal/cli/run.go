package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/demo"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/journal"
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/metrics"
	"github.com/roach88/reflux/internal/services"
	"github.com/roach88/reflux/internal/store"
)

// CounterNamespace is the KV namespace the counter persists into when the
// journal database doubles as its storage backend.
const CounterNamespace = "counter"

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database     string
	Redis        string
	Target       int
	Interval     time.Duration
	MaxSteps     int
	Restore      bool
	AsyncStorage bool
	Continue     string
	MetricsAddr  string

	// RunGenerator allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunGenerator engine.RunTokenGenerator

	// Registry receives the run's metrics. If nil, a fresh registry is used.
	Registry *prometheus.Registry

	// metricsReady is called with the metrics listener address once it
	// accepts connections.
	metricsReady func(net.Addr)
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID    string `json:"run_id"`
	Count    int    `json:"count"`
	Ticks    int    `json:"ticks"`
	Done     bool   `json:"done"`
	Journal  string `json:"journal,omitempty"`
	Records  int64  `json:"records"`
	Failures int64  `json:"journal_failures,omitempty"`
}

func (r RunResult) String() string {
	s := fmt.Sprintf("Run %s finished: count=%d ticks=%d", r.RunID, r.Count, r.Ticks)
	if r.Journal != "" {
		s += fmt.Sprintf(" (%d records journaled to %s)", r.Records, r.Journal)
	}
	return s
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the counter demo",
		Long: `Run the counter demo on the engine.

The counter ticks once per interval and stops once it reaches the target
(a target of 0 runs until interrupted). With --db every update of the run is
journaled to a SQLite database, which also stores the count unless --redis
names a Redis server to store it in instead. --continue appends the run's
updates to an existing journaled run, numbering them after its last record.
--metrics-addr serves the run's Prometheus metrics while it is running.

Examples:
  reflux run --target 5 --interval 200ms
  reflux run --db ./reflux.db --target 10
  reflux run --db ./reflux.db --restore --target 20
  reflux run --db ./reflux.db --continue <run-id> --restore --target 30
  reflux run --target 0 --metrics-addr 127.0.0.1:9100
  reflux run --redis localhost:6379 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCounter(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal database")
	cmd.Flags().StringVar(&opts.Redis, "redis", "", "Redis address used to store the count")
	cmd.Flags().IntVar(&opts.Target, "target", 10, "stop once the count reaches this value (0 = never)")
	cmd.Flags().DurationVar(&opts.Interval, "interval", demo.DefaultInterval, "time between ticks")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "maximum actions per run")
	cmd.Flags().BoolVar(&opts.Restore, "restore", false, "start from the stored count")
	cmd.Flags().BoolVar(&opts.AsyncStorage, "async-storage", false, "perform storage calls in the background")
	cmd.Flags().StringVar(&opts.Continue, "continue", "", "append to an existing journaled run (requires --db)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

func runCounter(opts *RunOptions, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	if opts.Interval <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid interval %s: must be positive", opts.Interval))
	}
	if opts.Continue != "" && opts.Database == "" {
		return NewExitError(ExitCommandError, "--continue requires --db")
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	var (
		st       *store.Store
		recorder *journal.Recorder[demo.State]
		backend  services.Backend
		lastSeq  int64
	)

	if opts.Database != "" {
		logger.Info("opening database", "path", opts.Database)
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		recorder = journal.NewRecorder[demo.State](st, journal.WithLogger(logger))
		backend = st.KV(CounterNamespace)

		if opts.Continue != "" {
			var err error
			lastSeq, err = st.LastSeq(ctx, opts.Continue)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read journal", err)
			}
			if lastSeq == 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("no records found for run: %s", opts.Continue))
			}
			logger.Info("continuing run", "run_id", opts.Continue, "last_seq", lastSeq)
		}
	}

	if opts.Redis != "" {
		rb := services.NewRedisBackend(opts.Redis, "", 0, services.WithRedisPrefix("reflux:"+CounterNamespace+":"))
		defer func() {
			if closeErr := rb.Close(); closeErr != nil {
				logger.Error("error closing redis client", "error", closeErr)
			}
		}()
		backend = rb
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register metrics", err)
	}

	if opts.MetricsAddr != "" {
		shutdown, err := startMetricsServer(opts.MetricsAddr, reg, logger, opts.metricsReady)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
		defer shutdown()
	}

	engineOpts := []engine.EngineOption{
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithLogger(logger),
	}
	switch {
	case opts.Continue != "":
		engineOpts = append(engineOpts,
			engine.WithRunGenerator(engine.NewFixedGenerator(opts.Continue)),
			engine.WithClock(engine.NewClockAt(lastSeq)),
		)
	case opts.RunGenerator != nil:
		engineOpts = append(engineOpts, engine.WithRunGenerator(opts.RunGenerator))
	}
	eng := engine.New(engineOpts...)

	loopOpts := []loop.Option{loop.WithLogger(logger)}
	if opts.Restore {
		loopOpts = append(loopOpts, loop.WithInitAction(demo.Restore))
	}

	// Text output renders the count as it changes; JSON output only reports
	// the summary.
	var renderer loop.Renderer[demo.State]
	if out.JSON() {
		renderer = demo.Renderer(nil)
	} else {
		renderer = demo.Renderer(cmd.OutOrStdout())
	}

	l := loop.New(
		renderer,
		demo.Reducer(),
		demo.Services(eng, eng, demo.ServiceOptions{Backend: backend, AsyncStorage: opts.AsyncStorage}),
		demo.Initial(demo.Config{Target: opts.Target, Interval: opts.Interval, AutoStart: true}),
		loopOpts...,
	)

	var final demo.State
	listener := func(u engine.Stamped[demo.State]) {
		if recorder != nil {
			recorder.Record(u)
		}
		collector.Observe(u.Kind)
		if u.Kind == loop.KindState {
			final = u.State
			if u.State.Done {
				eng.Stop()
			}
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	runID, runErr := engine.RunLoop(ctx, eng, l, listener)
	collector.RecordRun(runErr)
	if runErr != nil {
		collector.Abandon()
	}

	result := RunResult{RunID: runID, Count: final.Count, Ticks: final.Ticks, Done: final.Done}
	if recorder != nil {
		result.Journal = opts.Database
		result.Records = recorder.Written()
		result.Failures = recorder.Failures()
	}

	if runErr != nil {
		logger.Error("run failed", "run_id", runID, "error", runErr)
		if out.JSON() {
			_ = out.Respond(CLIResponse{
				Status: "error",
				Data:   result,
				RunID:  runID,
				Error:  &CLIError{Code: runErrorCode(runErr), Message: runErr.Error()},
			})
		}
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	if out.JSON() {
		return out.Respond(CLIResponse{Status: "ok", Data: result, RunID: runID})
	}
	return out.Success(result)
}

// startMetricsServer serves reg on addr until the returned shutdown function
// is called.
func startMetricsServer(addr string, reg prometheus.Gatherer, logger *slog.Logger, ready func(net.Addr)) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", "error", err)
		}
		<-done
	}, nil
}

func runErrorCode(err error) string {
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return "E_RUN_FAILED"
}
