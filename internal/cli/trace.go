package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/loop"
	"github.com/roach88/reflux/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kind     string // optional - filter to one record kind
	Type     string // optional - filter to one action or effect type
}

// TraceEntry is a single record in the trace timeline.
type TraceEntry struct {
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalRecords int `json:"total_records"`
	Actions      int `json:"actions"`
	States       int `json:"states"`
	Renders      int `json:"renders"`
	Effects      int `json:"effects"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string       `json:"run_id"`
	Timeline []TraceEntry `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled trace of a run",
		Long: `Show the journaled trace of a run.

Without --run, lists the runs recorded in the database. With --run, prints
the run's records in sequence order: every action, the state it produced,
the render markers and the effects flushed during the render.

Stats always describe the whole run; --kind and --type only filter the
timeline.

Examples:
  reflux trace --db ./reflux.db
  reflux trace --db ./reflux.db --run 0190f3c2-...
  reflux trace --db ./reflux.db --run 0190f3c2-... --kind effect
  reflux trace --db ./reflux.db --run 0190f3c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to show (default: list runs)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter timeline by kind (action|state|render-start|render-complete|effect)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter timeline by action or effect type")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		if out.JSON() {
			return out.Success(runs)
		}
		return outputRunsText(cmd, runs)
	}

	records, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if len(records) == 0 {
		if out.JSON() {
			return out.Success(TraceResult{RunID: opts.RunID, Timeline: []TraceEntry{}})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No records found for run: %s\n", opts.RunID)
		return nil
	}

	result := buildTrace(opts.RunID, records, opts.Kind, opts.Type)
	if out.JSON() {
		return out.Respond(CLIResponse{Status: "ok", Data: result, RunID: opts.RunID})
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// openExisting opens a database that must already exist. store.Open would
// create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// buildTrace converts journal records into a timeline. Filters apply to the
// timeline only.
func buildTrace(runID string, records []store.Record, kind, typ string) TraceResult {
	result := TraceResult{RunID: runID, Timeline: []TraceEntry{}}

	for _, rec := range records {
		result.Stats.TotalRecords++
		switch loop.UpdateKind(rec.Kind) {
		case loop.KindAction:
			result.Stats.Actions++
		case loop.KindState:
			result.Stats.States++
		case loop.KindRenderStart:
			result.Stats.Renders++
		case loop.KindEffect:
			result.Stats.Effects++
		}

		if kind != "" && rec.Kind != kind {
			continue
		}
		if typ != "" && rec.Type != typ {
			continue
		}

		entry := TraceEntry{Seq: rec.Seq, Kind: rec.Kind, Type: rec.Type}
		if string(rec.Payload) != "null" {
			entry.Payload = rec.Payload
		}
		result.Timeline = append(result.Timeline, entry)
	}

	return result
}

func outputRunsText(cmd *cobra.Command, runs []store.RunSummary) error {
	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-40s %8s %8s\n", "RUN", "RECORDS", "ACTIONS")
	for _, r := range runs {
		fmt.Fprintf(w, "%-40s %8d %8d\n", r.RunID, r.Records, r.Actions)
	}
	return nil
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Trace for run: %s\n\n", result.RunID)
	for _, e := range result.Timeline {
		switch {
		case e.Type == "":
			fmt.Fprintf(w, "  [%d] %s", e.Seq, e.Kind)
		default:
			fmt.Fprintf(w, "  [%d] %s %s", e.Seq, e.Kind, e.Type)
		}
		// State payloads are large; only show them when asked.
		if len(e.Payload) > 0 && (verbose || e.Kind != string(loop.KindState)) {
			fmt.Fprintf(w, " %s", e.Payload)
		}
		fmt.Fprintln(w)
	}

	s := result.Stats
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d records, %d actions, %d states, %d renders, %d effects\n",
		s.TotalRecords, s.Actions, s.States, s.Renders, s.Effects)
	return nil
}
