package loop

import (
	"fmt"

	"github.com/roach88/reflux/internal/reduce"
)

// UpdateKind tags one step of a render cycle.
type UpdateKind string

const (
	KindAction         UpdateKind = "action"
	KindState          UpdateKind = "state"
	KindRenderStart    UpdateKind = "render-start"
	KindRenderComplete UpdateKind = "render-complete"
	KindEffect         UpdateKind = "effect"
)

// Update is one record of the trace stream. Only the field matching Kind is
// meaningful: Action for KindAction, State for KindState, Effect for
// KindEffect. Render markers carry nothing.
type Update[S any] struct {
	Kind   UpdateKind
	Action reduce.Action
	State  S
	Effect reduce.SideEffect
}

// String renders the update for logs and golden traces.
func (u Update[S]) String() string {
	switch u.Kind {
	case KindAction:
		return fmt.Sprintf("action(%s)", u.Action.ActionType())
	case KindState:
		return fmt.Sprintf("state(%v)", u.State)
	case KindEffect:
		return fmt.Sprintf("effect(%s)", u.Effect.EffectType())
	default:
		return string(u.Kind)
	}
}

// Type returns the action or effect type carried by the update, if any.
func (u Update[S]) Type() string {
	switch u.Kind {
	case KindAction:
		return u.Action.ActionType()
	case KindEffect:
		return u.Effect.EffectType()
	default:
		return ""
	}
}
