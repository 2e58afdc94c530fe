package services

import (
	"time"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

const (
	DebounceType      = "debounce"
	ClearDebounceType = "clear-debounce"
	FlushDebounceType = "flush-debounce"

	// DefaultDebounceDelay applies when a Debounce carries no delay.
	DefaultDebounceDelay = 300 * time.Millisecond
)

// Debounce dispatches Action once Delay passes without another Debounce of
// the same Name.
type Debounce struct {
	Action reduce.Action
	Name   string
	Delay  time.Duration
}

// EffectType implements reduce.SideEffect.
func (Debounce) EffectType() string { return DebounceType }

// ClearDebounce drops the pending action for Name.
type ClearDebounce struct {
	Name string
}

// EffectType implements reduce.SideEffect.
func (ClearDebounce) EffectType() string { return ClearDebounceType }

// FlushDebounce dispatches the pending action for Name right away.
type FlushDebounce struct {
	Name string
}

// EffectType implements reduce.SideEffect.
func (FlushDebounce) EffectType() string { return FlushDebounceType }

type pendingDebounce struct {
	action reduce.Action
	stop   func() bool
}

// DebounceService implements Debounce, ClearDebounce and FlushDebounce.
func DebounceService(s Scheduler) loop.Service {
	return service(func(effects stream.Subscriber[reduce.SideEffect], dispatch func(reduce.Message), sub *stream.Subscription) {
		timers := make(map[string]*pendingDebounce)

		take := func(name string) *pendingDebounce {
			p, ok := timers[name]
			if !ok {
				return nil
			}
			delete(timers, name)
			p.stop()
			return p
		}

		sub.Add(effects.Subscribe(func(e reduce.SideEffect) {
			switch e := e.(type) {
			case FlushDebounce:
				if p := take(e.Name); p != nil {
					dispatch(p.action)
				}

			case ClearDebounce:
				take(e.Name)

			case Debounce:
				take(e.Name)

				delay := e.Delay
				if delay <= 0 {
					delay = DefaultDebounceDelay
				}

				p := &pendingDebounce{action: e.Action}
				p.stop = s.AfterFunc(delay, func() {
					if timers[e.Name] != p {
						return
					}
					delete(timers, e.Name)
					dispatch(p.action)
				})
				timers[e.Name] = p
			}
		}))

		sub.AddFunc(func() {
			for name := range timers {
				take(name)
			}
		})
	})
}
