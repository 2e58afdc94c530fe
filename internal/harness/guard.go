package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/reflux/internal/reduce"
)

// MutationError reports a reducer that modified the state it was given.
type MutationError struct {
	Action string
	Path   []string
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("reducer mutated its input state at %q while handling %s",
		strings.Join(e.Path, "."), e.Action)
}

// GuardMutations wraps reducer so that modifying the input state in place
// panics with a *MutationError naming the first changed path.
//
// The input is snapshotted as JSON before and after the call, so only
// exported, encodable data is watched.
func GuardMutations[S any](reducer reduce.Reducer[S]) reduce.Reducer[S] {
	return func(state S, action reduce.Action) reduce.Reduction[S] {
		before, err := snapshot(state)
		if err != nil {
			return reducer(state, action)
		}

		r := reducer(state, action)

		after, err := snapshot(state)
		if err != nil {
			panic(fmt.Errorf("snapshot state after %s: %w", action.ActionType(), err))
		}
		if path, changed := findMutation(before, after, nil); changed {
			panic(&MutationError{Action: action.ActionType(), Path: path})
		}
		return r
	}
}

func snapshot(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// findMutation returns the first path at which before and after differ.
// Object keys are visited in sorted order.
func findMutation(before, after any, path []string) ([]string, bool) {
	switch b := before.(type) {
	case map[string]any:
		a, ok := after.(map[string]any)
		if !ok {
			return path, true
		}
		keys := make([]string, 0, len(b)+len(a))
		for k := range b {
			keys = append(keys, k)
		}
		for k := range a {
			if _, seen := b[k]; !seen {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			bv, inB := b[k]
			av, inA := a[k]
			next := append(append([]string(nil), path...), k)
			if inB != inA {
				return next, true
			}
			if p, changed := findMutation(bv, av, next); changed {
				return p, true
			}
		}
		return nil, false

	case []any:
		a, ok := after.([]any)
		if !ok || len(a) != len(b) {
			return path, true
		}
		for i := range b {
			next := append(append([]string(nil), path...), strconv.Itoa(i))
			if p, changed := findMutation(b[i], a[i], next); changed {
				return p, true
			}
		}
		return nil, false

	default:
		if !reflect.DeepEqual(before, after) {
			return path, true
		}
		return nil, false
	}
}
