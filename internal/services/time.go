package services

import (
	"time"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

const (
	RequestTickType = "request-tick"
	UpdateTimeType  = "update-time"
)

// RequestTick asks for an UpdateTime no later than After from now.
type RequestTick struct {
	After time.Duration
}

// EffectType implements reduce.SideEffect.
func (RequestTick) EffectType() string { return RequestTickType }

// UpdateTime reports the current time. Relative is measured from the moment
// the time service was created.
type UpdateTime struct {
	Absolute time.Time
	Relative time.Duration
}

// ActionType implements reduce.Action.
func (UpdateTime) ActionType() string { return UpdateTimeType }

// TimeState is the slice of application state kept current by ReduceTime.
type TimeState struct {
	Now         time.Time
	RelativeNow time.Duration
}

// ReduceTime applies UpdateTime actions.
func ReduceTime(state TimeState, action reduce.Action) reduce.Reduction[TimeState] {
	if u, ok := action.(UpdateTime); ok {
		return reduce.Reduction[TimeState]{State: TimeState{Now: u.Absolute, RelativeNow: u.Relative}}
	}
	return reduce.Unchanged(state)
}

// TimeService answers RequestTick effects with UpdateTime actions.
//
// One timer is kept pending at a time. A request due earlier than the
// pending one replaces it; a later request is dropped, since the earlier
// tick will prompt the application to ask again. On install the service
// emits RequestTick{0} so the state learns the time immediately.
func TimeService(s Scheduler) loop.Service {
	start := s.Now()

	return service(func(effects stream.Subscriber[reduce.SideEffect], dispatch func(reduce.Message), sub *stream.Subscription) {
		var deadline time.Time
		pending := false
		timer := stream.NewSubscription()
		sub.AddSubscription(timer)

		sub.Add(effects.Subscribe(func(e reduce.SideEffect) {
			req, ok := e.(RequestTick)
			if !ok {
				return
			}

			requested := s.Now().Add(req.After)
			if pending && !deadline.After(requested) {
				return
			}

			_ = timer.Unsubscribe()
			pending = true
			deadline = requested

			stop := s.AfterFunc(req.After, func() {
				pending = false
				now := s.Now()
				dispatch(UpdateTime{Absolute: now, Relative: now.Sub(start)})
			})
			timer.AddFunc(func() { stop() })
		}))

		dispatch(RequestTick{})
	})
}
