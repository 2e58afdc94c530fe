package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

const (
	RequestWorkType  = "request-work"
	CancelWorkType   = "cancel-work"
	WorkCompleteType = "work-complete"
	WorkCanceledType = "work-canceled"
)

// ErrUnknownWork is reported when RequestWork names unregistered work.
var ErrUnknownWork = errors.New("unknown work")

// WorkFunc is a unit of background work. It must return promptly once ctx
// is cancelled.
type WorkFunc func(ctx context.Context, data any) (any, error)

// RequestWork starts the work registered under Name with Data. A running
// job of the same name is cancelled and superseded.
type RequestWork struct {
	Name string
	Data any
}

// EffectType implements reduce.SideEffect.
func (RequestWork) EffectType() string { return RequestWorkType }

// CancelWork cancels the running job called Name, if any.
type CancelWork struct {
	Name string
}

// EffectType implements reduce.SideEffect.
func (CancelWork) EffectType() string { return CancelWorkType }

// WorkComplete carries the outcome of a job.
type WorkComplete struct {
	Name   string
	Result any
	Err    error
}

// ActionType implements reduce.Action.
func (WorkComplete) ActionType() string { return WorkCompleteType }

// WorkCanceled confirms a CancelWork that stopped a running job.
type WorkCanceled struct {
	Name string
}

// ActionType implements reduce.Action.
func (WorkCanceled) ActionType() string { return WorkCanceledType }

type job struct {
	id     uint64
	cancel context.CancelFunc
}

// WorkerService runs registered WorkFuncs on background goroutines. Results
// re-enter the loop through p. Teardown cancels every running job and waits
// for it to return.
func WorkerService(p Poster, registry map[string]WorkFunc) loop.Service {
	return service(func(effects stream.Subscriber[reduce.SideEffect], dispatch func(reduce.Message), sub *stream.Subscription) {
		running := make(map[string]*job)
		var lastID uint64
		var wg sync.WaitGroup

		start := func(name string, work WorkFunc, data any) {
			ctx, cancel := context.WithCancel(context.Background())
			lastID++
			j := &job{id: lastID, cancel: cancel}
			running[name] = j

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer cancel()
				result, err := runWork(ctx, work, data)
				p.Post(func() {
					if running[name] != j {
						return
					}
					delete(running, name)
					dispatch(WorkComplete{Name: name, Result: result, Err: err})
				})
			}()
		}

		sub.Add(effects.Subscribe(func(e reduce.SideEffect) {
			switch e := e.(type) {
			case RequestWork:
				if prev, ok := running[e.Name]; ok {
					prev.cancel()
					delete(running, e.Name)
				}

				work, ok := registry[e.Name]
				if !ok {
					dispatch(WorkComplete{Name: e.Name, Err: fmt.Errorf("%w: %s", ErrUnknownWork, e.Name)})
					return
				}
				slog.Debug("starting work", "name", e.Name)
				start(e.Name, work, e.Data)

			case CancelWork:
				j, ok := running[e.Name]
				if !ok {
					return
				}
				j.cancel()
				delete(running, e.Name)
				dispatch(WorkCanceled{Name: e.Name})
			}
		}))

		sub.AddFunc(func() {
			for name, j := range running {
				j.cancel()
				delete(running, name)
			}
			wg.Wait()
		})
	})
}

// runWork calls work, turning a panic into an error.
func runWork(ctx context.Context, work WorkFunc, data any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work panicked: %v", r)
		}
	}()
	return work(ctx, data)
}
