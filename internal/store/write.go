package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Record is one journaled trace update.
type Record struct {
	RunID   string          `json:"run_id"`
	Seq     int64           `json:"seq"`
	Kind    string          `json:"kind"`
	Type    string          `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// WriteRecord inserts a record.
// Uses ON CONFLICT(run_id, seq) DO NOTHING for idempotency - rewriting the
// same step is silently ignored.
func (s *Store) WriteRecord(ctx context.Context, rec Record) error {
	if err := insertRecord(ctx, s.db, rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// WriteRecords inserts records in one transaction.
func (s *Store) WriteRecords(ctx context.Context, recs []Record) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if err := insertRecord(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, rec Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if rec.Kind == "" {
		return fmt.Errorf("kind is required (seq %d)", rec.Seq)
	}
	payload := string(rec.Payload)
	if payload == "" {
		payload = "null"
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO records (run_id, seq, kind, type, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, rec.RunID, rec.Seq, rec.Kind, rec.Type, payload)
	return err
}
