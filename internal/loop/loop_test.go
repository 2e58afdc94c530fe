package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/stream"
)

type testEffect string

func (e testEffect) EffectType() string { return string(e) }

func traceOf[S any](updates []Update[S]) []string {
	out := make([]string, len(updates))
	for i, u := range updates {
		out[i] = u.String()
	}
	return out
}

type rendererCall struct {
	state    int
	dispatch func(reduce.Action)
	flush    func()
}

type reducerCall struct {
	state  int
	action reduce.Action
}

// =============================================================================
// Full cycle
// =============================================================================

func TestLoop_RenderCycleWithServices(t *testing.T) {
	var calls []string
	var renders []rendererCall
	var reduces []reducerCall
	var serviceEffects []stream.Subscriber[reduce.SideEffect]
	var serviceDispatch []func(reduce.Message)

	next := reduce.Reduction[int]{State: 1}
	reducer := func(s int, a reduce.Action) reduce.Reduction[int] {
		calls = append(calls, "reducer")
		reduces = append(reduces, reducerCall{s, a})
		return next
	}
	renderer := func(s int, dispatch func(reduce.Action), flush func()) {
		calls = append(calls, "renderer")
		renders = append(renders, rendererCall{s, dispatch, flush})
	}

	makeService := func(name string) Service {
		return func(effects stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
			return stream.SubscriberFunc[reduce.Message](func(dispatch func(reduce.Message)) stream.Teardown {
				calls = append(calls, name)
				serviceEffects = append(serviceEffects, effects)
				serviceDispatch = append(serviceDispatch, dispatch)
				dispatch(reduce.Named(name))

				sub := stream.NewSubscription()
				sub.AddFunc(func() { calls = append(calls, "unsubscribe-"+name) })
				return sub.Unsubscribe
			})
		}
	}

	l := New(renderer, reducer, []Service{makeService("service1"), makeService("service2")}, 0)

	var updates []Update[int]
	unsubscribe := l.Subscribe(func(u Update[int]) { updates = append(updates, u) })

	require.Len(t, serviceEffects, 2)
	assert.True(t, serviceEffects[0] == serviceEffects[1], "services share one effect stream")

	serviceEffects[1].Subscribe(func(e reduce.SideEffect) {
		calls = append(calls, "innerEffect")
	})

	renders[0].flush()

	next = reduce.Reduction[int]{State: 2, Effect: testEffect("test-effect-1")}
	serviceDispatch[0](reduce.Named("service-dispatch"))

	next = reduce.Reduction[int]{State: 3, Effect: testEffect("test-effect-2")}
	renders[0].dispatch(reduce.Named("renderer-dispatch"))

	renders[3].flush()

	assert.Equal(t, []string{
		"action(service2)", "state(1)", "render-start", "render-complete",
		"action(service1)", "state(1)", "render-start", "render-complete",
		"action(@init)", "state(1)", "render-start", "render-complete",
		"action(service-dispatch)", "state(2)", "render-start", "render-complete",
		"action(renderer-dispatch)", "state(3)", "render-start", "render-complete",
		"effect(test-effect-1)",
		"effect(test-effect-2)",
	}, traceOf(updates))

	assert.Equal(t, []reducerCall{
		{0, reduce.Named("service2")},
		{1, reduce.Named("service1")},
		{1, InitAction},
		{1, reduce.Named("service-dispatch")},
		{2, reduce.Named("renderer-dispatch")},
	}, reduces)

	renderedStates := make([]int, len(renders))
	for i, r := range renders {
		renderedStates[i] = r.state
	}
	assert.Equal(t, []int{1, 1, 1, 2, 3}, renderedStates)

	assert.Equal(t, []string{
		"service1",
		"service2",
		"reducer", "renderer",
		"reducer", "renderer",
		"reducer", "renderer",
		"reducer", "renderer",
		"reducer", "renderer",
		"innerEffect",
		"innerEffect",
	}, calls)

	calls = nil
	require.NoError(t, unsubscribe())
	assert.Equal(t, []string{"unsubscribe-service2", "unsubscribe-service1"}, calls)

	calls = nil
	serviceDispatch[0](reduce.Named("service-dispatch"))
	renders[0].dispatch(reduce.Named("renderer-dispatch"))
	assert.Empty(t, calls)
}

func TestLoop_CounterStopsWhenListenerTearsDown(t *testing.T) {
	inc := reduce.Named("inc")
	reducer := func(s int, a reduce.Action) reduce.Reduction[int] {
		if a.ActionType() == "inc" {
			return reduce.Reduction[int]{State: s + 1}
		}
		return reduce.Unchanged(s)
	}
	renderer := func(s int, dispatch func(reduce.Action), flush func()) {
		dispatch(inc)
	}

	l := New(renderer, reducer, nil, 0)

	root := stream.NewSubscription()
	var updates []Update[int]
	states := 0
	l.SubscribeInto(root, func(u Update[int]) {
		updates = append(updates, u)
		if u.Kind == KindState {
			states++
			if states == 3 {
				require.NoError(t, root.Unsubscribe())
			}
		}
	})

	assert.Equal(t, []string{
		"action(@init)", "state(0)", "render-start",
		"action(inc)", "state(1)", "render-start",
		"action(inc)", "state(2)", "render-start",
		"render-complete", "render-complete", "render-complete",
	}, traceOf(updates))
}

func TestLoop_InstallOrderDecidesFirstTransition(t *testing.T) {
	emitting := func(name string) Service {
		return func(stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
			return stream.SubscriberFunc[reduce.Message](func(dispatch func(reduce.Message)) stream.Teardown {
				dispatch(reduce.Named(name))
				return func() error { return nil }
			})
		}
	}

	var seen []string
	reducer := func(s []string, a reduce.Action) reduce.Reduction[[]string] {
		return reduce.Reduction[[]string]{State: append(append([]string(nil), s...), a.ActionType())}
	}
	l := New(func([]string, func(reduce.Action), func()) {}, reducer,
		[]Service{emitting("first"), emitting("second")}, nil)

	teardown := l.Subscribe(func(u Update[[]string]) {
		if u.Kind == KindState {
			seen = u.State
		}
	})
	defer func() { _ = teardown() }()

	assert.Equal(t, []string{"second", "first", "@init"}, seen)
}

func TestLoop_ServiceEffectsAreQueued(t *testing.T) {
	echo := func(effects stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
		return stream.SubscriberFunc[reduce.Message](func(dispatch func(reduce.Message)) stream.Teardown {
			return effects.Subscribe(func(e reduce.SideEffect) {
				if e.EffectType() == "ping" {
					dispatch(testEffect("pong"))
					dispatch(reduce.Named("ponged"))
				}
			})
		})
	}

	reducer := func(s int, a reduce.Action) reduce.Reduction[int] {
		if a == InitAction {
			return reduce.Reduction[int]{State: s, Effect: testEffect("ping")}
		}
		return reduce.Reduction[int]{State: s + 1}
	}

	var flush func()
	renderer := func(_ int, _ func(reduce.Action), f func()) { flush = f }

	l := New(renderer, reducer, []Service{echo}, 0)
	var updates []Update[int]
	teardown := l.Subscribe(func(u Update[int]) { updates = append(updates, u) })
	defer func() { _ = teardown() }()

	assert.Equal(t, []string{"action(@init)", "state(0)", "render-start", "render-complete"}, traceOf(updates))

	updates = nil
	flush()

	assert.Equal(t, []string{
		"effect(ping)",
		"action(ponged)", "state(1)", "render-start", "render-complete",
		"effect(pong)",
	}, traceOf(updates))
}

func TestLoop_WithInitAction(t *testing.T) {
	var first reduce.Action
	reducer := func(s int, a reduce.Action) reduce.Reduction[int] {
		if first == nil {
			first = a
		}
		return reduce.Unchanged(s)
	}

	l := New(func(int, func(reduce.Action), func()) {}, reducer, nil, 0,
		WithInitAction(reduce.Named("boot")))
	teardown := l.Subscribe(func(Update[int]) {})
	defer func() { _ = teardown() }()

	assert.Equal(t, reduce.Named("boot"), first)
}

func TestLoop_ReducerPanicPropagates(t *testing.T) {
	l := New(func(int, func(reduce.Action), func()) {},
		func(int, reduce.Action) reduce.Reduction[int] { panic("bad reducer") },
		nil, 0)

	assert.PanicsWithValue(t, "bad reducer", func() {
		l.Subscribe(func(Update[int]) {})
	})
}

func TestLoop_NonMessageOutputPanics(t *testing.T) {
	bogus := func(stream.Subscriber[reduce.SideEffect]) stream.Subscriber[reduce.Message] {
		return stream.SubscriberFunc[reduce.Message](func(dispatch func(reduce.Message)) stream.Teardown {
			dispatch(42)
			return nil
		})
	}

	l := New(func(int, func(reduce.Action), func()) {},
		func(s int, _ reduce.Action) reduce.Reduction[int] { return reduce.Unchanged(s) },
		[]Service{bogus}, 0)

	assert.Panics(t, func() { l.Subscribe(func(Update[int]) {}) })
}
