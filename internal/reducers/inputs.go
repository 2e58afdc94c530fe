package reducers

import (
	"maps"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/services"
)

const (
	InputChangeType      = "input-change"
	ApplyInputChangeType = "apply-input-change"
)

// InputChange records a keystroke-level edit. It is not written to state
// directly; instead the matching ApplyInputChange is debounced.
type InputChange struct {
	Target       string
	Text         string
	DebounceName string
	Apply        ApplyInputChange
}

// ActionType implements reduce.Action.
func (InputChange) ActionType() string { return InputChangeType }

// ApplyInputChange writes Text to Target.
type ApplyInputChange struct {
	Target       string
	Text         string
	DebounceName string
}

// ActionType implements reduce.Action.
func (ApplyInputChange) ActionType() string { return ApplyInputChangeType }

// DebounceName is the debounce timer name used for target.
func DebounceName(target string) string {
	return "input-change-" + target
}

// NewApplyInputChange builds an ApplyInputChange for target.
func NewApplyInputChange(target, text string) ApplyInputChange {
	return ApplyInputChange{Target: target, Text: text, DebounceName: DebounceName(target)}
}

// NewInputChange builds an InputChange for target.
func NewInputChange(target, text string) InputChange {
	return InputChange{
		Target:       target,
		Text:         text,
		DebounceName: DebounceName(target),
		Apply:        NewApplyInputChange(target, text),
	}
}

// ReduceInputs applies input actions to a map of input texts.
//
// InputChange leaves state alone and emits a Debounce for its apply action.
// ApplyInputChange clears that debounce and writes the text, copying the map
// only when the text differs from what is stored.
func ReduceInputs(state map[string]string, action reduce.Action) reduce.Reduction[map[string]string] {
	switch a := action.(type) {
	case InputChange:
		return reduce.Reduction[map[string]string]{
			State:  state,
			Effect: services.Debounce{Action: a.Apply, Name: a.DebounceName},
		}

	case ApplyInputChange:
		r := reduce.Reduction[map[string]string]{
			State:  state,
			Effect: services.ClearDebounce{Name: a.DebounceName},
		}
		if cur, ok := state[a.Target]; ok && cur == a.Text {
			return r
		}
		next := make(map[string]string, len(state)+1)
		maps.Copy(next, state)
		next[a.Target] = a.Text
		r.State = next
		return r
	}
	return reduce.Unchanged(state)
}
