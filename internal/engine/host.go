package engine

import (
	"context"
	"errors"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/stream"
)

// ErrEngineStopped is returned by RunLoop when the engine refuses new work.
var ErrEngineStopped = errors.New("engine stopped")

// Stamped is a trace update tagged with its run and logical sequence number.
type Stamped[S any] struct {
	RunID string
	Seq   int64
	loop.Update[S]
}

// RunLoop starts a session of l on e and runs e until it stops.
//
// The session is started by the first task, so it and everything it later
// dispatches executes on the Run goroutine. Each update is stamped and passed
// to listener. Call e.Stop() (from the listener or elsewhere) to end the run.
//
// Termination:
//   - Stop or context cancellation: clean, returns the teardown error if any
//   - more than MaxSteps actions: session torn down, returns an error that
//     matches both *RuntimeError (ErrCodeQuotaExceeded) and *StepsExceededError
//   - a panic: session torn down, returns a RuntimeError with ErrCodeLoopPanic
//
// RunLoop calls e.Run, so an engine hosts one RunLoop at a time.
func RunLoop[S any](ctx context.Context, e *Engine, l *loop.Loop[S], listener func(Stamped[S])) (string, error) {
	runID := e.NewRun()
	logger := e.logger.With("run_id", runID)
	quota := NewQuotaEnforcer(e.maxSteps)
	root := stream.NewSubscription()

	var errs []error
	halted := false

	teardown := func() {
		if err := root.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}

	accept := func(u loop.Update[S]) {
		if halted {
			return
		}
		if u.Kind == loop.KindAction {
			if err := quota.Check(runID); err != nil {
				var se *StepsExceededError
				errors.As(err, &se)
				halted = true
				logger.Error("max steps quota exceeded",
					"steps", quota.Current(),
					"limit", quota.MaxSteps(),
					"event", "quota_exceeded",
				)
				errs = append(errs, NewQuotaError(se))
				teardown()
				e.Stop()
				return
			}
		}
		listener(Stamped[S]{RunID: runID, Seq: e.clock.Next(), Update: u})
	}

	if !e.Post(func() { l.SubscribeInto(root, accept) }) {
		return runID, ErrEngineStopped
	}

	logger.Info("run starting", "max_steps", e.maxSteps)
	runErr := e.Run(ctx)
	halted = true

	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
	default:
		var re *RuntimeError
		if errors.As(runErr, &re) && re.RunID == "" {
			re.RunID = runID
		}
		errs = append([]error{runErr}, errs...)
	}

	teardown()
	logger.Info("run finished", "actions", quota.Current())

	return runID, errors.Join(errs...)
}
