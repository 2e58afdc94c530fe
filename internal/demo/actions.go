package demo

import "github.com/roach88/reflux/internal/reduce"

const (
	IncrementType = "increment"
	DecrementType = "decrement"

	// DoubleWork is the worker job that doubles the count.
	DoubleWork = "double"
)

// Payload-free actions.
const (
	Reset   = reduce.Named("reset")
	Restore = reduce.Named("restore")
	Double  = reduce.Named("double")
)

// Increment adds By to the count, or the current step when By is zero.
type Increment struct {
	By int `json:"by,omitempty"`
}

// ActionType implements reduce.Action.
func (Increment) ActionType() string { return IncrementType }

// Decrement subtracts By from the count, or the current step when By is
// zero.
type Decrement struct {
	By int `json:"by,omitempty"`
}

// ActionType implements reduce.Action.
func (Decrement) ActionType() string { return DecrementType }
