package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == "" {
				continue
			}
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", event.Seq, event.Kind, event.Type, event.Payload)
		}
	}

	return buf.String()
}

func assertionKind(a Assertion) string {
	if a.Kind == "" {
		return KindAction
	}
	return a.Kind
}

// assertTraceContains checks if the trace holds an update of the selected
// kind and type whose payload contains args.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	kind := assertionKind(assertion)
	for _, event := range trace {
		if event.Kind != kind || event.Type != assertion.Action {
			continue
		}
		if matchArgs(decodePayload(event.Payload), assertion.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s %s with args %v", kind, assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first occurrences of Actions appear in
// the given order. Intervening updates are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	kind := assertionKind(assertion)
	positions := make(map[string]int)

	for i, event := range trace {
		if event.Kind != kind {
			continue
		}
		for _, expected := range assertion.Actions {
			if event.Type == expected && positions[expected] == 0 {
				positions[expected] = i + 1
			}
		}
	}

	for _, action := range assertion.Actions {
		if positions[action] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all %ss present: %v", kind, assertion.Actions),
				Actual:   fmt.Sprintf("missing %s: %s", kind, action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Actions); i++ {
		prev := assertion.Actions[i-1]
		curr := assertion.Actions[i]

		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("%ss in order: %v", kind, assertion.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}

	return nil
}

// assertTraceCount checks that Action occurs exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	kind := assertionKind(assertion)
	count := 0
	for _, event := range trace {
		if event.Kind == kind && event.Type == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s %s", assertion.Count, kind, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertFinalState resolves Path in the final state and matches it against
// Expect. Objects match as subsets.
func assertFinalState(state json.RawMessage, assertion Assertion) error {
	if len(state) == 0 {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: "a final state",
			Actual:   "no state was produced",
		}
	}

	actual, ok := lookupPath(decodePayload(state), assertion.Path)
	if !ok {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("path %q to exist", assertion.Path),
			Actual:   fmt.Sprintf("path %q not present in %s", assertion.Path, state),
		}
	}

	if !matchValue(actual, normalize(assertion.Expect)) {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s = %v", pathLabel(assertion.Path), assertion.Expect),
			Actual:   fmt.Sprintf("%s = %v", pathLabel(assertion.Path), actual),
		}
	}

	return nil
}

func pathLabel(path string) string {
	if path == "" {
		return "state"
	}
	return path
}

// lookupPath walks a dotted path through decoded JSON objects. Segments
// match keys case-insensitively when there is no exact match.
func lookupPath(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	for _, seg := range strings.Split(path, ".") {
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok = lookupKey(obj, seg)
		if !ok {
			return nil, false
		}
	}
	return v, true
}

func lookupKey(obj map[string]any, key string) (any, bool) {
	if v, ok := obj[key]; ok {
		return v, true
	}
	for k, v := range obj {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// matchArgs checks if actual contains all expected args (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	return matchValue(actual, normalize(expected))
}

// matchValue compares decoded JSON values. Objects in expected match as
// subsets of actual; everything else must be equal.
func matchValue(actual, expected any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, want := range exp {
			got, exists := lookupKey(act, key)
			if !exists || !matchValue(got, want) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(act[i], exp[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

// decodePayload decodes journaled JSON. Numbers decode as float64, which is
// also what normalize produces for YAML values.
func decodePayload(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// normalize round-trips a YAML value through JSON so it compares equal to
// decoded payloads.
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFinalState:
			err = assertFinalState(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
