package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/reflux/internal/canonical"
	"github.com/roach88/reflux/internal/testutil"
)

// GoldenDir is where RunWithGolden keeps golden traces, relative to the
// test's package directory.
const GoldenDir = "testdata/golden"

// TraceSnapshot captures the complete trace for a scenario execution.
// It is serialized as canonical JSON for byte-exact comparison.
type TraceSnapshot struct {
	ScenarioName string          `json:"scenario_name"`
	RunID        string          `json:"run_id"`
	Trace        []TraceEvent    `json:"trace"`
	State        json.RawMessage `json:"state,omitempty"`
}

// Snapshot returns the canonical JSON snapshot of a scenario result.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	snap := TraceSnapshot{
		ScenarioName: scenario.Name,
		RunID:        testutil.NewFixedRunGenerator(scenario.RunID).Generate(),
		Trace:        result.Trace,
		State:        result.State,
	}
	data, err := canonical.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal trace snapshot: %w", err)
	}
	return data, nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
//
// Returns error if scenario execution fails. A trace mismatch fails t.
func RunWithGolden(t *testing.T, reg *Registry, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(reg, scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}

// GoldenPath returns the golden file for a scenario file: a "golden"
// directory next to it holding <file name>.golden.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// CompareGolden reports whether the snapshot in goldenPath equals data.
func CompareGolden(goldenPath string, data []byte) (bool, error) {
	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	return bytes.Equal(want, data), nil
}

// WriteGolden writes data to goldenPath, creating its directory.
func WriteGolden(goldenPath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(goldenPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
