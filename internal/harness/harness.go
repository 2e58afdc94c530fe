package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/reflux/internal/canonical"
	"github.com/roach88/reflux/internal/engine"
	"github.com/roach88/reflux/internal/services"
	"github.com/roach88/reflux/internal/store"
	"github.com/roach88/reflux/internal/stream"
	"github.com/roach88/reflux/internal/testutil"
)

// Epoch is the fake wall-clock time every scenario starts at.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// AwaitTimeout bounds how long an await step waits for background work.
const AwaitTimeout = 5 * time.Second

// Harness executes one scenario: a fresh in-memory journal, a manual
// scheduler, a fixed run token and a logical clock starting at zero.
type Harness struct {
	store  *store.Store
	sched  *testutil.ManualScheduler
	inbox  *services.Inbox
	app    App
	logger *slog.Logger
}

// Run executes a scenario against the app it names and returns the result.
//
// Execution flow:
//  1. Open a fresh in-memory journal
//  2. Start a session of the app; the session journals every update
//  3. Execute the steps in order, stopping at the first failing step
//  4. Tear the session down and read the trace back from the journal
//  5. Evaluate assertions
//
// A step failure (undecodable action, reducer panic, await timeout) is
// reported in the result. The returned error is for harness failures only.
func Run(reg *Registry, scenario *Scenario) (*Result, error) {
	return RunWithLogger(reg, scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with session and journal logging sent to logger.
func RunWithLogger(reg *Registry, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	a, ok := reg.Lookup(scenario.App)
	if !ok {
		return nil, fmt.Errorf("unknown app %q (registered: %v)", scenario.App, reg.Names())
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		sched:  testutil.NewManualScheduler(Epoch),
		inbox:  services.NewInbox(),
		app:    a,
		logger: logger,
	}
	defer h.sched.Close()

	runID := testutil.NewFixedRunGenerator(scenario.RunID).Generate()
	root := stream.NewSubscription()
	env := &session{
		root:    root,
		runID:   runID,
		clock:   engine.NewClock(),
		sched:   h.sched,
		poster:  h.sched,
		inbox:   h.inbox,
		journal: st,
		logger:  logger,
	}

	result := NewResult()
	var state func() any
	started := func() error {
		state = a.start(env)
		return nil
	}
	if err := capture(started); err != nil {
		result.AddError(fmt.Sprintf("start: %v", err))
	} else {
		h.executeSteps(scenario.Steps, result)
	}

	if err := root.Unsubscribe(); err != nil {
		result.AddError(fmt.Sprintf("teardown: %v", err))
	}
	if env.failures != nil && env.failures() > 0 {
		return nil, fmt.Errorf("journal: %d records could not be written", env.failures())
	}

	ctx := context.Background()
	records, err := st.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, rec := range records {
		result.AddRecord(rec)
	}

	if state != nil {
		data, err := canonical.Marshal(state())
		if err != nil {
			return nil, fmt.Errorf("encode final state: %w", err)
		}
		result.State = json.RawMessage(data)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// executeSteps runs steps in order until one fails.
func (h *Harness) executeSteps(steps []Step, result *Result) {
	for i, step := range steps {
		if err := capture(func() error { return h.executeStep(step) }); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			return
		}
	}
}

func (h *Harness) executeStep(step Step) error {
	switch {
	case step.Dispatch != nil:
		action, err := h.app.DecodeAction(step.Dispatch.Type, step.Dispatch.Args)
		if err != nil {
			return err
		}
		h.logger.Debug("dispatch", "type", action.ActionType())
		h.inbox.Dispatch(action)
		return nil

	case step.Advance != "":
		d, err := step.AdvanceDuration()
		if err != nil {
			return err
		}
		fired := h.sched.Advance(d)
		ran := h.sched.RunPosted()
		h.logger.Debug("advance", "by", d, "timers", fired, "tasks", ran)
		return nil

	case step.Await > 0:
		ran := 0
		deadline := time.Now().Add(AwaitTimeout)
		for ran < step.Await {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return fmt.Errorf("await: %d of %d tasks ran before timeout", ran, step.Await)
			}
			ran += h.sched.WaitPosted(remaining)
		}
		return nil

	default:
		return fmt.Errorf("empty step")
	}
}

// capture runs f, turning a panic into an error.
func capture(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}
