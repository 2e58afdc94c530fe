// Package store provides SQLite-backed storage for render-loop traces and
// for the storage service's key/value data.
//
// The journal is append-only:
//   - records: one row per trace update, keyed by (run_id, seq)
//   - kv: namespaced key/value rows, see KV
//
// # Ordering
//
// All ordering uses the seq column (the engine's logical clock), never wall
// time. Queries use ORDER BY seq ASC, id ASC so results are identical across
// reads of the same run.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - one open connection, which also keeps ":memory:" databases alive
package store
