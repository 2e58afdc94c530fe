package demo

import (
	"time"

	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/services"
)

// Modes. Running and paused are mutually exclusive.
const (
	ModeRunning = "running"
	ModePaused  = "paused"
)

// CountKey is the storage key the count is persisted under.
const CountKey = "count"

// StepInput is the input whose text sets the step size.
const StepInput = "step"

// DefaultInterval is the tick interval used when Config.Interval is unset.
const DefaultInterval = time.Second

// State is the counter application's state. Maps are replaced, never
// modified in place.
type State struct {
	Count    int                `json:"count"`
	Step     int                `json:"step"`
	Target   int                `json:"target"`
	Done     bool               `json:"done"`
	Ticks    int                `json:"ticks"`
	Interval time.Duration      `json:"interval"`
	NextTick time.Time          `json:"next_tick"`
	Doubling bool               `json:"doubling"`
	Clock    services.TimeState `json:"clock"`
	Modes    map[string]bool    `json:"modes"`
	Inputs   map[string]string  `json:"inputs"`
}

// Config sets up the initial state.
type Config struct {
	// Target stops the counter once Count reaches it. Zero means no target.
	Target int

	// Interval between ticks while running. Default: DefaultInterval.
	Interval time.Duration

	// AutoStart switches the running mode on from the start.
	AutoStart bool
}

// Initial returns the starting state for cfg.
func Initial(cfg Config) State {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return State{
		Step:     1,
		Target:   cfg.Target,
		Interval: interval,
		Modes:    map[string]bool{ModeRunning: cfg.AutoStart},
		Inputs:   map[string]string{},
	}
}

func (s State) reached() bool {
	return s.Target > 0 && s.Count >= s.Target
}

var (
	modesLens = reduce.Lens[State, map[string]bool]{
		Get: func(s State) map[string]bool { return s.Modes },
		Set: func(s State, v map[string]bool) State { s.Modes = v; return s },
	}
	inputsLens = reduce.Lens[State, map[string]string]{
		Get: func(s State) map[string]string { return s.Inputs },
		Set: func(s State, v map[string]string) State { s.Inputs = v; return s },
	}
	clockLens = reduce.Lens[State, services.TimeState]{
		Get: func(s State) services.TimeState { return s.Clock },
		Set: func(s State, v services.TimeState) State { s.Clock = v; return s },
	}
	stepLens = reduce.Lens[State, int]{
		Get: func(s State) int { return s.Step },
		Set: func(s State, v int) State { s.Step = v; return s },
	}
)
