package demo

import (
	"time"

	"github.com/roach88/reflux/internal/harness"
	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/reducers"
	"github.com/roach88/reflux/internal/services"
)

// AppName is the name scenarios use for the counter.
const AppName = "counter"

// ScenarioConfig is the configuration scenarios run the counter with.
var ScenarioConfig = Config{Target: 10, Interval: time.Second}

// App returns the counter as a harness application. Every run gets a fresh
// memory backend and synchronous storage.
func App() harness.App {
	return harness.Define(harness.Definition[State]{
		Name:     AppName,
		Initial:  Initial(ScenarioConfig),
		Reducer:  Reducer(),
		Renderer: Renderer(nil),
		Services: func(sched services.Scheduler, poster services.Poster) []loop.Service {
			return Services(sched, poster, ServiceOptions{})
		},
		Actions: map[string]harness.ActionDecoder{
			IncrementType:            harness.ActionOf[Increment](),
			DecrementType:            harness.ActionOf[Decrement](),
			string(Reset):            harness.Named(string(Reset)),
			string(Restore):          harness.Named(string(Restore)),
			string(Double):           harness.Named(string(Double)),
			reducers.ToggleType:      harness.ActionOf[reducers.Toggle](),
			reducers.InputChangeType: decodeInputChange,
		},
	})
}

// decodeInputChange builds a full InputChange, including its debounced
// apply action, from a target and text.
func decodeInputChange(args map[string]any) (reduce.Action, error) {
	var in struct {
		Target string `json:"target"`
		Text   string `json:"text"`
	}
	if err := harness.DecodeArgs(args, &in); err != nil {
		return nil, err
	}
	return reducers.NewInputChange(in.Target, in.Text), nil
}
