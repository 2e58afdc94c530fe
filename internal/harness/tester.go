package harness

import (
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

// TesterUpdate pairs an action with the state it produced.
type TesterUpdate[S any] struct {
	Action reduce.Action
	State  S
}

// Tester runs a reducer and its services without a renderer, holding every
// effect and service output in one inspectable queue.
//
// Nothing is delivered until the test flushes the queue (or Start was given
// autoFlush), so a test can look at exactly what a dispatch asked for:
//
//	tt := harness.NewTester(reducer, initial, svcs)
//	tt.Start(false)
//	tt.Dispatch(Increment{}, true)
//	effects := tt.FindEffects(services.StoreDataType)
type Tester[S any] struct {
	state    S
	reducer  reduce.Reducer[S]
	services []loop.Service
	queued   *stream.BufferedSubject[reduce.Message]
	updates  *stream.Subject[TesterUpdate[S]]
	sub      *stream.Subscription
}

// NewTester creates a Tester. The reducer is wrapped with GuardMutations.
func NewTester[S any](reducer reduce.Reducer[S], initial S, services []loop.Service) *Tester[S] {
	return &Tester[S]{
		state:    initial,
		reducer:  GuardMutations(reducer),
		services: services,
		queued:   stream.NewBufferedSubject[reduce.Message](),
		updates:  stream.NewSubject[TesterUpdate[S]](),
		sub:      stream.NewSubscription(),
	}
}

// Start installs the services.
//
// With autoFlush false, flushing a queued effect hands it to the services
// and their outputs are queued in turn; flushing a queued action dispatches
// it. With autoFlush true the services see no effects at all and every
// action they emit (for instance at install) is dispatched immediately.
func (t *Tester[S]) Start(autoFlush bool) {
	t.sub.Add(t.queued.Subscribe(func(m reduce.Message) {
		if a, ok := m.(reduce.Action); ok && !reduce.IsSideEffect(m) {
			t.Dispatch(a, false)
		}
	}))

	var effects stream.Subscriber[reduce.SideEffect] = stream.SubscriberFunc[reduce.SideEffect](func(listener func(reduce.SideEffect)) stream.Teardown {
		return t.queued.Subscribe(func(m reduce.Message) {
			if e, ok := m.(reduce.SideEffect); ok {
				listener(e)
			}
		})
	})
	output := t.queued.Dispatch
	if autoFlush {
		effects = stream.NewSubject[reduce.SideEffect]()
		output = func(m reduce.Message) {
			if a, ok := m.(reduce.Action); ok && !reduce.IsSideEffect(m) {
				t.Dispatch(a, false)
				return
			}
			t.queued.Dispatch(m)
		}
	}

	t.sub.Add(loop.ServiceOutputs(effects, t.services).Subscribe(output))
}

// Dispatch reduces action against the current state, publishes the update
// and queues the resulting effect. With clearQueue the queue is emptied
// first.
func (t *Tester[S]) Dispatch(action reduce.Action, clearQueue bool) {
	if clearQueue {
		t.queued.Clear()
	}

	r := t.reducer(t.state, action)
	t.state = r.State
	t.updates.Dispatch(TesterUpdate[S]{Action: action, State: t.state})

	if r.Effect != nil {
		t.queued.Dispatch(r.Effect)
	}
}

// State returns the current state.
func (t *Tester[S]) State() S {
	return t.state
}

// Updates emits every (action, state) pair after it is reduced.
func (t *Tester[S]) Updates() stream.Subscriber[TesterUpdate[S]] {
	return t.updates
}

// Queue exposes the pending actions and effects for flushing.
func (t *Tester[S]) Queue() *stream.BufferedSubject[reduce.Message] {
	return t.queued
}

// FindEffects returns the queued effects of type typ, looking inside
// Sequenced effects too.
func (t *Tester[S]) FindEffects(typ string) []reduce.SideEffect {
	var found []reduce.SideEffect
	for _, m := range t.queued.Buffer() {
		if e, ok := m.(reduce.SideEffect); ok {
			found = appendEffects(found, e, typ)
		}
	}
	return found
}

func appendEffects(dst []reduce.SideEffect, e reduce.SideEffect, typ string) []reduce.SideEffect {
	if seq, ok := e.(reduce.Sequenced); ok {
		for _, child := range seq.Effects {
			if child != nil {
				dst = appendEffects(dst, child, typ)
			}
		}
	}
	if e.EffectType() == typ {
		dst = append(dst, e)
	}
	return dst
}

// FindActions returns the queued actions of type typ.
func (t *Tester[S]) FindActions(typ string) []reduce.Action {
	var found []reduce.Action
	for _, m := range t.queued.Buffer() {
		if reduce.IsSideEffect(m) {
			continue
		}
		if a, ok := m.(reduce.Action); ok && a.ActionType() == typ {
			found = append(found, a)
		}
	}
	return found
}

// Close tears down the installed services.
func (t *Tester[S]) Close() error {
	return t.sub.Unsubscribe()
}
