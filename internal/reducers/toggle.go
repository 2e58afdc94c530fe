package reducers

import (
	"maps"

	"github.com/roach88/reflux/internal/reduce"
)

const ToggleType = "toggle"

// Toggle flips Target, or forces it to *On when On is set.
type Toggle struct {
	Target string
	On     *bool
}

// ActionType implements reduce.Action.
func (Toggle) ActionType() string { return ToggleType }

// Flip returns a Toggle that inverts target.
func Flip(target string) Toggle {
	return Toggle{Target: target}
}

// Set returns a Toggle that forces target to on.
func Set(target string, on bool) Toggle {
	return Toggle{Target: target, On: &on}
}

// ReduceToggle applies Toggle actions to a toggle map. The map is copied only
// when the target's value actually changes; a missing key reads as false.
func ReduceToggle(state map[string]bool, action reduce.Action) reduce.Reduction[map[string]bool] {
	t, ok := action.(Toggle)
	if !ok {
		return reduce.Unchanged(state)
	}

	result := !state[t.Target]
	if t.On != nil {
		result = *t.On
	}
	if result == state[t.Target] {
		return reduce.Unchanged(state)
	}

	next := make(map[string]bool, len(state)+1)
	maps.Copy(next, state)
	next[t.Target] = result
	return reduce.Reduction[map[string]bool]{State: next}
}

// MutuallyExclude keeps at most one of exclusions switched on in next.
//
// The first key (in exclusions order) that is on in next wins, unless a
// later key was newly switched on relative to prev; then the first newly
// switched key wins. Every other excluded key is switched off. next is never
// modified: if keys have to be switched off a copy is returned, otherwise
// next itself.
func MutuallyExclude(prev, next map[string]bool, exclusions []string) map[string]bool {
	winner := ""
	for _, k := range exclusions {
		if !next[k] {
			continue
		}
		if winner == "" || (prev[winner] && !prev[k]) {
			winner = k
		}
	}
	if winner == "" {
		return next
	}

	var out map[string]bool
	for _, k := range exclusions {
		if k == winner || !next[k] {
			continue
		}
		if out == nil {
			out = maps.Clone(next)
		}
		out[k] = false
	}
	if out == nil {
		return next
	}
	return out
}

// ExclusiveToggles returns a toggle reducer that keeps the given keys
// mutually exclusive.
func ExclusiveToggles(exclusions ...string) reduce.Reducer[map[string]bool] {
	return func(state map[string]bool, action reduce.Action) reduce.Reduction[map[string]bool] {
		r := ReduceToggle(state, action)
		if reduce.Identical(r.State, state) {
			return r
		}
		r.State = MutuallyExclude(state, r.State, exclusions)
		return r
	}
}
