package reduce

// ReducerChain accumulates the work of several reducers contributing to one
// logical transition. Each Apply sees the state left by the previous one and
// the same action; effects are combined with Sequence.
type ReducerChain[S any] struct {
	state  S
	action Action
	effect SideEffect
}

// Chain starts a chain from state, carrying a pending effect (may be nil).
func Chain[S any](state S, action Action, effect SideEffect) *ReducerChain[S] {
	return &ReducerChain[S]{state: state, action: action, effect: effect}
}

// Apply runs reducer against the accumulated state.
func (c *ReducerChain[S]) Apply(reducer Reducer[S]) *ReducerChain[S] {
	r := reducer(c.state, c.action)
	c.state = r.State
	c.effect = Sequence(c.effect, r.Effect)
	return c
}

// State returns the accumulated state so far.
func (c *ReducerChain[S]) State() S {
	return c.state
}

// Result returns the accumulated reduction.
func (c *ReducerChain[S]) Result() Reduction[S] {
	return Reduction[S]{State: c.state, Effect: c.effect}
}
