package harness

import (
	"encoding/json"

	"github.com/roach88/reflux/internal/store"
)

// TraceEvent is one step of a scenario run as read back from the journal.
// Render markers carry no payload.
type TraceEvent struct {
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step ran and every assertion held.
	Pass bool `json:"pass"`

	// Trace holds the journaled updates in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the canonical JSON of the last state the reducer produced.
	State json.RawMessage `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRecord appends a journal record to the trace.
func (r *Result) AddRecord(rec store.Record) {
	ev := TraceEvent{
		Seq:  rec.Seq,
		Kind: rec.Kind,
		Type: rec.Type,
	}
	if string(rec.Payload) != "null" {
		ev.Payload = rec.Payload
	}
	r.Trace = append(r.Trace, ev)
}
