package demo

import (
	"fmt"
	"io"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/reduce"
)

// Renderer prints a line to w whenever the count or the done flag changes,
// then flushes the effect queue. A nil w prints nothing.
func Renderer(w io.Writer) loop.Renderer[State] {
	rendered := false
	var last State

	return func(s State, _ func(reduce.Action), flush func()) {
		if w != nil && (!rendered || s.Count != last.Count || s.Done != last.Done) {
			status := ""
			if s.Done {
				status = " (target reached)"
			}
			fmt.Fprintf(w, "count=%d step=%d ticks=%d%s\n", s.Count, s.Step, s.Ticks, status)
		}
		rendered = true
		last = s
		flush()
	}
}
