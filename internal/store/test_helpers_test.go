package store

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createMemoryStore creates a new in-memory store.
func createMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRecord creates a record with a JSON payload.
func testRecord(runID string, seq int64, kind, typ, payload string) Record {
	return Record{RunID: runID, Seq: seq, Kind: kind, Type: typ, Payload: json.RawMessage(payload)}
}
