package loop

import (
	"fmt"
	"log/slog"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

// InitAction is dispatched once when a loop session starts.
const InitAction = reduce.Named("@init")

// Renderer is invoked once per processed action with the new state, a
// dispatch function bound to the action stream and a flush function that
// drains the effect queue.
type Renderer[S any] func(state S, dispatch func(reduce.Action), flush func())

// Option configures a Loop.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	initAction reduce.Action
}

// WithLogger sets the logger used for session lifecycle messages.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithInitAction replaces the action dispatched when a session starts.
func WithInitAction(action reduce.Action) Option {
	return func(o *options) {
		o.initAction = action
	}
}

// Loop ties a reducer, a renderer and a set of services into one synchronous
// cycle. Each subscription starts an independent session with its own action
// stream, effect queue and state.
//
// Per action the trace is: action, state, render-start, render-complete.
// Effects are reported as they are flushed from the queue, not as they are
// enqueued. Reducer and renderer panics are not recovered.
type Loop[S any] struct {
	renderer Renderer[S]
	reducer  reduce.Reducer[S]
	services []Service
	initial  S
	opts     options
}

// New creates a Loop starting every session from initial.
func New[S any](renderer Renderer[S], reducer reduce.Reducer[S], services []Service, initial S, opts ...Option) *Loop[S] {
	o := options{
		logger:     slog.Default(),
		initAction: InitAction,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loop[S]{
		renderer: renderer,
		reducer:  reducer,
		services: append([]Service(nil), services...),
		initial:  initial,
		opts:     o,
	}
}

// Subscribe starts a session and returns its teardown.
func (l *Loop[S]) Subscribe(listener func(Update[S])) stream.Teardown {
	root := stream.NewSubscription()
	l.SubscribeInto(root, listener)
	return root.Unsubscribe
}

// SubscribeInto starts a session whose resources are owned by root.
//
// Because root exists before the first cycle runs, listener may unsubscribe
// it while the session is still starting up. The step in progress runs to
// completion; nothing dispatched afterwards is processed.
func (l *Loop[S]) SubscribeInto(root *stream.Subscription, listener func(Update[S])) {
	actions := stream.NewSubject[reduce.Action]()
	effects := stream.NewBufferedSubject[reduce.SideEffect]()
	state := l.initial
	logger := l.opts.logger

	root.Add(effects.Subscribe(func(e reduce.SideEffect) {
		listener(Update[S]{Kind: KindEffect, Effect: e})
	}))

	root.Add(actions.Subscribe(func(a reduce.Action) {
		listener(Update[S]{Kind: KindAction, Action: a})

		r := l.reducer(state, a)
		listener(Update[S]{Kind: KindState, State: r.State})
		state = r.State

		if r.Effect != nil {
			effects.Dispatch(r.Effect)
		}

		listener(Update[S]{Kind: KindRenderStart})
		l.renderer(state, actions.Dispatch, effects.FlushAll)
		listener(Update[S]{Kind: KindRenderComplete})
	}))

	root.Add(ServiceOutputs(effects, l.services).Subscribe(func(m reduce.Message) {
		switch m := m.(type) {
		case reduce.SideEffect:
			effects.Dispatch(m)
		case reduce.Action:
			actions.Dispatch(m)
		default:
			panic(fmt.Sprintf("loop: service emitted %T, which is neither an action nor an effect", m))
		}
	}))

	root.AddFunc(func() {
		logger.Debug("render loop session closed", "pending_effects", effects.Len())
	})

	logger.Debug("render loop session started", "services", len(l.services))
	actions.Dispatch(l.opts.initAction)
}
