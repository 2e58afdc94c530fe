package engine

import (
	"context"
	"log/slog"
	"time"
)

// RunTokenGenerator generates unique run tokens.
// Implemented by UUIDv7Generator and FixedGenerator.
type RunTokenGenerator interface {
	Generate() string
}

// DefaultMaxSteps is the default maximum number of actions per run.
const DefaultMaxSteps = 1000

// Engine is the single-writer event loop that hosts render loops.
//
// Thread-safety model:
//   - Post(), AfterFunc(), Stop(), NewRun(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - tasks run one at a time, in the order they were posted
//   - no task runs after Run has returned
type Engine struct {
	clock    *Clock
	queue    *taskQueue
	runGen   RunTokenGenerator
	maxSteps int
	now      func() time.Time
	logger   *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithMaxSteps sets the maximum actions quota per run.
//
// Default: 1000 actions (DefaultMaxSteps)
// Use WithMaxSteps(10) for testing quota enforcement.
func WithMaxSteps(maxSteps int) EngineOption {
	return func(e *Engine) {
		e.maxSteps = maxSteps
	}
}

// WithClock sets the logical clock, e.g. to continue an existing journal.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRunGenerator sets the run token generator.
// Default: UUIDv7Generator.
func WithRunGenerator(g RunTokenGenerator) EngineOption {
	return func(e *Engine) {
		e.runGen = g
	}
}

// WithNow sets the wall-clock source reported to services.
// Default: time.Now.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an idle Engine. Call Run to start processing tasks.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		clock:    NewClock(),
		queue:    newTaskQueue(),
		runGen:   UUIDv7Generator{},
		maxSteps: DefaultMaxSteps,
		now:      time.Now,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Post submits a task for the Run loop.
// Returns false if the engine has been stopped.
func (e *Engine) Post(task func()) bool {
	return e.queue.Enqueue(task)
}

// AfterFunc posts f to the Run loop once d has elapsed. The returned stop
// function prevents the post if the timer has not fired yet; it reports
// whether it did so.
func (e *Engine) AfterFunc(d time.Duration, f func()) (stop func() bool) {
	t := time.AfterFunc(d, func() {
		if !e.Post(f) {
			e.logger.Debug("timer fired after engine stopped", "delay", d)
		}
	})
	return t.Stop
}

// Now returns the current wall-clock time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// NewRun generates a new run token.
func (e *Engine) NewRun() string {
	return e.runGen.Generate()
}

// Clock returns the logical clock used to stamp updates.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// MaxSteps returns the per-run action quota.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// QueueLen returns the number of tasks waiting to run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run starts the single-writer event loop.
// Blocks until the context is cancelled, Stop() is called, or a task panics.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// After Stop(), tasks already queued still run before Run returns nil.
// On context cancellation Run returns ctx.Err() without draining.
// A panicking task stops the loop; Run returns a RuntimeError with
// ErrCodeLoopPanic.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		task, ok := e.queue.TryDequeue()
		if ok {
			if err := e.execute(task); err != nil {
				e.logger.Error("task panicked, stopping engine", "error", err)
				e.queue.Close()
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel is closed along with the queue, so this
			// case keeps firing until the backlog is drained.
			if e.queue.Closed() && e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the task queue. Run returns once queued tasks have run.
func (e *Engine) Stop() {
	e.queue.Close()
}

// execute runs one task, converting a panic into a RuntimeError.
func (e *Engine) execute(task func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewLoopPanicError("", r)
		}
	}()
	task()
	return nil
}
