package reduce

import "maps"

// Lens focuses on one part V of a state S. Set must not modify its input; it
// returns a new S with the part replaced.
type Lens[S, V any] struct {
	Get func(S) V
	Set func(S, V) S
}

// Key is a copy-on-write lens over one entry of a string-keyed map.
// Set clones the map; sibling values are carried over as-is.
func Key[V any](key string) Lens[map[string]V, V] {
	return Lens[map[string]V, V]{
		Get: func(m map[string]V) V {
			return m[key]
		},
		Set: func(m map[string]V, v V) map[string]V {
			out := make(map[string]V, len(m)+1)
			maps.Copy(out, m)
			out[key] = v
			return out
		},
	}
}

// SubReducer lifts a reducer over the part of the state a lens focuses on.
// The parent state is only rebuilt when the inner reducer returned a value
// that is not Identical to what it was given.
func SubReducer[S, V any](lens Lens[S, V], reducer Reducer[V]) Reducer[S] {
	return func(state S, action Action) Reduction[S] {
		before := lens.Get(state)
		r := reducer(before, action)
		if Identical(before, r.State) {
			return Reduction[S]{State: state, Effect: r.Effect}
		}
		return Reduction[S]{State: lens.Set(state, r.State), Effect: r.Effect}
	}
}

// Computed recomputes a derived part of the state after every action. The
// parent state is only rebuilt when the derived value changed by identity.
func Computed[S, V any](lens Lens[S, V], compute func(S) V) Reducer[S] {
	return func(state S, _ Action) Reduction[S] {
		next := compute(state)
		if Identical(lens.Get(state), next) {
			return Reduction[S]{State: state}
		}
		return Reduction[S]{State: lens.Set(state, next)}
	}
}
