package harness

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Scenario drives a registered application through a sequence of steps and
// asserts on the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// App names the registered application to run.
	App string `yaml:"app"`

	// RunID is a fixed run token for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Golden requires a golden trace to exist for this scenario.
	Golden bool `yaml:"golden,omitempty"`

	// Steps run in order after the session has started.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	// Supported types: trace_contains, trace_order, trace_count, final_state
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scenario step. Exactly one field is set.
type Step struct {
	// Dispatch delivers an action to the running session.
	Dispatch *DispatchStep `yaml:"dispatch,omitempty"`

	// Advance moves the fake clock forward, e.g. "1s" or "250ms", firing
	// due timers, then runs posted tasks.
	Advance string `yaml:"advance,omitempty"`

	// Await blocks until this many tasks have been posted by background
	// work and runs them.
	Await int `yaml:"await,omitempty"`
}

// DispatchStep names an action and its arguments. Args are decoded into the
// application's action type.
type DispatchStep struct {
	Type string         `yaml:"type"`
	Args map[string]any `yaml:"args,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an update with Action type (and Args subset) exists
	// - "trace_order": Actions appear in this order
	// - "trace_count": Action appears exactly Count times
	// - "final_state": the value at Path in the final state matches Expect
	Type string `yaml:"type"`

	// Kind selects which updates trace assertions look at: "action"
	// (default) or "effect".
	Kind string `yaml:"kind,omitempty"`

	// Action is the action or effect type (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are expected payload fields (trace_contains). Subset match; keys
	// compare case-insensitively.
	Args map[string]any `yaml:"args,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Path is a dotted path into the final state (final_state). Empty means
	// the whole state.
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value at Path (final_state). Objects are
	// matched as subsets.
	Expect any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// Kinds a trace assertion may select.
const (
	KindAction = "action"
	KindEffect = "effect"
)

// AdvanceDuration parses Advance. Returns 0 when Advance is empty.
func (s Step) AdvanceDuration() (time.Duration, error) {
	if s.Advance == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Advance)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or violates the scenario schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Schema first: its messages point at the offending path.
	if err := checkSchema(data); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// checkSchema unifies the document with the embedded #Scenario definition.
func checkSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return errors.New("empty document")
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// validateScenario checks what the schema cannot express.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.App == "" {
		return fmt.Errorf("app is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, s Step) error {
	set := 0
	if s.Dispatch != nil {
		set++
		if s.Dispatch.Type == "" {
			return fmt.Errorf("steps[%d].dispatch: type is required", index)
		}
	}
	if s.Advance != "" {
		set++
		d, err := s.AdvanceDuration()
		if err != nil {
			return fmt.Errorf("steps[%d]: invalid advance: %w", index, err)
		}
		if d < 0 {
			return fmt.Errorf("steps[%d]: advance must not be negative", index)
		}
	}
	if s.Await != 0 {
		set++
		if s.Await < 0 {
			return fmt.Errorf("steps[%d]: await must be positive", index)
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of dispatch, advance or await is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Kind {
	case "", KindAction, KindEffect:
	default:
		return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
