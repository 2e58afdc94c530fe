package reduce

// Action is a request to transition state, tagged by its type.
type Action interface {
	ActionType() string
}

// SideEffect describes impure work for a service to perform.
// Effect types live in a namespace disjoint from action types.
type SideEffect interface {
	EffectType() string
}

// Message is anything a service may emit: an Action or a SideEffect.
type Message any

// IsSideEffect reports whether m is a SideEffect.
func IsSideEffect(m Message) bool {
	_, ok := m.(SideEffect)
	return ok
}

// IsAction reports whether m is an Action.
func IsAction(m Message) bool {
	_, ok := m.(Action)
	return ok
}

// Reduction is the output of a reducer: the next state and an optional
// effect. A nil Effect means nothing to do.
type Reduction[S any] struct {
	State  S
	Effect SideEffect
}

// Reducer is a pure state transition. Actions a reducer does not recognise
// must return the input state unchanged with no effect.
type Reducer[S any] func(state S, action Action) Reduction[S]

// Unchanged is the reduction for an action the reducer ignores.
func Unchanged[S any](state S) Reduction[S] {
	return Reduction[S]{State: state}
}

// Combine runs reducers in order against the same action, threading state
// through and sequencing their effects.
func Combine[S any](reducers ...Reducer[S]) Reducer[S] {
	return func(state S, action Action) Reduction[S] {
		c := Chain(state, action, nil)
		for _, r := range reducers {
			c.Apply(r)
		}
		return c.Result()
	}
}

// Named is a payload-free action identified only by its type string.
type Named string

// ActionType implements Action.
func (n Named) ActionType() string { return string(n) }
