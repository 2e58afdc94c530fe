package harness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
	"github.com/roach88/reflux/internal/services"
)

type tally struct {
	Total int `json:"total"`
}

type add struct {
	N int `json:"n"`
}

func (add) ActionType() string { return "add" }

type saved struct {
	Total int `json:"total"`
}

func (saved) EffectType() string { return "saved" }

func reduceTally(s tally, a reduce.Action) reduce.Reduction[tally] {
	switch a := a.(type) {
	case add:
		s.Total += a.N
		return reduce.Reduction[tally]{State: s, Effect: saved{Total: s.Total}}
	case reduce.Named:
		if a == "later" {
			return reduce.Reduction[tally]{
				State:  s,
				Effect: services.Debounce{Action: add{N: 10}, Name: "later", Delay: time.Second},
			}
		}
		if a == "explode" {
			panic("boom")
		}
	}
	return reduce.Unchanged(s)
}

func tallyApp() App {
	return Define(Definition[tally]{
		Name:    "tally",
		Reducer: reduceTally,
		Services: func(sched services.Scheduler, _ services.Poster) []loop.Service {
			return []loop.Service{services.DebounceService(sched)}
		},
		Actions: map[string]ActionDecoder{
			"add":     ActionOf[add](),
			"later":   Named("later"),
			"explode": Named("explode"),
		},
	})
}

func testRegistry() *Registry {
	return NewRegistry(tallyApp())
}

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func mustParse(t *testing.T, body string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(body))
	require.NoError(t, err)
	return s
}
