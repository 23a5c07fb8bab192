// Package store persists indexed document snapshots in SQLite.
//
// One row per page key holds the encoded document of the highest
// generation seen for that page. The store is an optimization: a missing
// or corrupt snapshot means the page is re-indexed from source, never that
// an edit is lost.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - Schema version kept in PRAGMA user_version; a mismatch fails Open
package store
