package reduce

// SequencedType is the effect type of Sequenced.
const SequencedType = "sequenced"

// Sequenced is a composite effect. The sequenced service re-emits each
// non-nil child in order.
type Sequenced struct {
	Effects []SideEffect
}

// EffectType implements SideEffect.
func (Sequenced) EffectType() string { return SequencedType }

// Sequence combines two effects.
//
// A nil operand yields the other. Composites are flattened one level on either
// side, so Sequence(Sequence(a, b), c) is Sequenced{a, b, c} and a composite
// never contains another composite produced here. Inputs are never modified.
func Sequence(first, next SideEffect) SideEffect {
	if first == nil {
		return next
	}
	if next == nil {
		return first
	}

	effects := make([]SideEffect, 0, countEffects(first)+countEffects(next))
	effects = appendFlat(effects, first)
	effects = appendFlat(effects, next)
	return Sequenced{Effects: effects}
}

// SequenceAll folds Sequence over effects, skipping nils.
func SequenceAll(effects ...SideEffect) SideEffect {
	var out SideEffect
	for _, e := range effects {
		out = Sequence(out, e)
	}
	return out
}

// SequenceReduction folds a pending effect in front of the reduction's own
// effect. The state is returned untouched.
func SequenceReduction[S any](effect SideEffect, r Reduction[S]) Reduction[S] {
	return Reduction[S]{State: r.State, Effect: Sequence(effect, r.Effect)}
}

func countEffects(e SideEffect) int {
	if s, ok := e.(Sequenced); ok {
		return len(s.Effects)
	}
	return 1
}

func appendFlat(dst []SideEffect, e SideEffect) []SideEffect {
	if s, ok := e.(Sequenced); ok {
		return append(dst, s.Effects...)
	}
	return append(dst, e)
}
