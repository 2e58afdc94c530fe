package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// RunSummary describes one journaled run.
type RunSummary struct {
	RunID    string `json:"run_id"`
	Records  int64  `json:"records"`
	Actions  int64  `json:"actions"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
}

// ReadRun returns every record of a run ordered by seq.
// Returns an empty slice (not nil) if the run has no records.
func (s *Store) ReadRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, type, payload
		FROM records
		WHERE run_id = ?
		ORDER BY seq ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var payload string
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Kind, &rec.Type, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ListRuns summarizes every run in the journal, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id,
		       COUNT(*),
		       SUM(CASE WHEN kind = 'action' THEN 1 ELSE 0 END),
		       MIN(seq),
		       MAX(seq)
		FROM records
		GROUP BY run_id
		ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Records, &r.Actions, &r.FirstSeq, &r.LastSeq); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// CountByKind returns how many records of each kind a run has.
func (s *Store) CountByKind(ctx context.Context, runID string) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*)
		FROM records
		WHERE run_id = ?
		GROUP BY kind
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query kinds: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		counts[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kinds: %w", err)
	}
	return counts, nil
}

// LastSeq returns the highest seq recorded for a run, or 0 if it has none.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM records WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
