// Package reduce holds the pure half of the runtime: the Action and SideEffect
// data model, reductions, and the combinators that compose them.
//
// Reducers never mutate their input state. Composition helpers in this package
// (SubReducer, Computed, Key) only allocate a new parent value when a child
// value actually changed, as judged by Identical, so untouched sub-state keeps
// its identity across transitions.
package reduce
