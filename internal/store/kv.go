package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// KV is a namespaced key/value view of the store. It satisfies the storage
// service's Backend interface.
type KV struct {
	db        *sql.DB
	namespace string
}

// KV returns the key/value view for namespace.
func (s *Store) KV(namespace string) *KV {
	return &KV{db: s.db, namespace: namespace}
}

// Get returns the value stored under key.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := kv.db.QueryRowContext(ctx, `
		SELECT value FROM kv WHERE namespace = ? AND key = ?
	`, kv.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (kv *KV) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := kv.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value) VALUES (?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value
	`, kv.namespace, key, value)
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// Clear removes every key in the namespace.
func (kv *KV) Clear(ctx context.Context) error {
	if _, err := kv.db.ExecContext(ctx, `DELETE FROM kv WHERE namespace = ?`, kv.namespace); err != nil {
		return fmt.Errorf("kv clear: %w", err)
	}
	return nil
}

// Keys returns the keys in the namespace in byte order.
func (kv *KV) Keys(ctx context.Context) ([]string, error) {
	rows, err := kv.db.QueryContext(ctx, `
		SELECT key FROM kv WHERE namespace = ? ORDER BY key COLLATE BINARY ASC
	`, kv.namespace)
	if err != nil {
		return nil, fmt.Errorf("kv keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("kv scan: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
