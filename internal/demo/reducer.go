package demo

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/reducers"
	"github.com/roach88/reflux/internal/services"
)

// Reducer returns the application reducer. Parts run in order: modes,
// inputs, clock, derived step, counter actions, ticking.
func Reducer() reduce.Reducer[State] {
	return reduce.Combine(
		reduce.SubReducer(modesLens, reducers.ExclusiveToggles(ModeRunning, ModePaused)),
		reduce.SubReducer(inputsLens, reducers.ReduceInputs),
		reduce.SubReducer(clockLens, services.ReduceTime),
		reduce.Computed(stepLens, stepFromInputs),
		reduceCounter,
		reduceTicker,
	)
}

// stepFromInputs parses the step input. Anything but a positive integer
// reads as 1.
func stepFromInputs(s State) int {
	n, err := strconv.Atoi(s.Inputs[StepInput])
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func persist(s State) reduce.SideEffect {
	return services.StoreData{Key: CountKey, Data: s.Count}
}

func amount(by, step int) int {
	if by != 0 {
		return by
	}
	return step
}

func reduceCounter(s State, action reduce.Action) reduce.Reduction[State] {
	switch a := action.(type) {
	case Increment:
		s.Count += amount(a.By, s.Step)
		s.Done = s.reached()
		return reduce.Reduction[State]{State: s, Effect: persist(s)}

	case Decrement:
		s.Count -= amount(a.By, s.Step)
		s.Done = s.reached()
		return reduce.Reduction[State]{State: s, Effect: persist(s)}

	case reduce.Named:
		switch a {
		case Reset:
			s.Count = 0
			s.Ticks = 0
			s.Done = false
			return reduce.Reduction[State]{State: s, Effect: services.ClearData{}}
		case Restore:
			return reduce.Reduction[State]{State: s, Effect: services.RequestData{Key: CountKey}}
		case Double:
			if s.Doubling {
				return reduce.Unchanged(s)
			}
			s.Doubling = true
			return reduce.Reduction[State]{State: s, Effect: services.RequestWork{Name: DoubleWork, Data: s.Count}}
		}

	case services.LoadData:
		if a.Key != CountKey || !a.Found {
			return reduce.Unchanged(s)
		}
		var n int
		if err := a.Decode(&n); err != nil {
			slog.Warn("ignoring stored count", "error", err)
			return reduce.Unchanged(s)
		}
		s.Count = n
		s.Done = s.reached()
		return reduce.Reduction[State]{State: s}

	case services.WorkComplete:
		if a.Name != DoubleWork {
			return reduce.Unchanged(s)
		}
		s.Doubling = false
		n, ok := a.Result.(int)
		if a.Err != nil || !ok {
			slog.Warn("double failed", "error", a.Err)
			return reduce.Reduction[State]{State: s}
		}
		s.Count = n
		s.Done = s.reached()
		return reduce.Reduction[State]{State: s, Effect: persist(s)}
	}

	return reduce.Unchanged(s)
}

// reduceTicker drives automatic counting.
//
// While running and not done, NextTick holds the deadline of the next
// count. It is armed once the clock has been synced, re-requested when a
// time update arrives early, and cleared when counting stops.
func reduceTicker(s State, action reduce.Action) reduce.Reduction[State] {
	_, isTime := action.(services.UpdateTime)
	if _, isToggle := action.(reducers.Toggle); !isTime && !isToggle {
		return reduce.Unchanged(s)
	}

	now := s.Clock.Now
	switch {
	case !s.Modes[ModeRunning] || s.Done:
		if s.NextTick.IsZero() {
			return reduce.Unchanged(s)
		}
		s.NextTick = time.Time{}
		return reduce.Reduction[State]{State: s}

	case now.IsZero():
		return reduce.Unchanged(s)

	case s.NextTick.IsZero():
		s.NextTick = now.Add(s.Interval)
		return reduce.Reduction[State]{State: s, Effect: services.RequestTick{After: s.Interval}}

	case !isTime:
		return reduce.Unchanged(s)

	case now.Before(s.NextTick):
		return reduce.Reduction[State]{State: s, Effect: services.RequestTick{After: s.NextTick.Sub(now)}}
	}

	s.Ticks++
	s.Count += s.Step
	s.Done = s.reached()
	if s.Done {
		s.NextTick = time.Time{}
		return reduce.Reduction[State]{State: s, Effect: persist(s)}
	}
	s.NextTick = now.Add(s.Interval)
	return reduce.Reduction[State]{
		State:  s,
		Effect: reduce.Sequence(persist(s), services.RequestTick{After: s.Interval}),
	}
}
