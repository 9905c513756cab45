// Package checkpoint provides durable per-worker progress records.
//
// A Record is an open mapping of field name to integer; workers use the task_count field.
// Load never fails for a worker that has not saved yet: it returns a fresh record with
// task_count 0. Save reads the current record, merges the given fields into it and writes
// the result back. No two saves for the same worker interleave that sequence.
//
// Two backends are available:
//   - FileStore: one JSON file per worker, <dir>/checkpoint_<id>.json, replaced atomically
//     (temp file, fsync, rename). Saves are serialized by a Locker, per worker by default.
//   - BoltStore: one bbolt database, <dir>/checkpoints.db, one key per worker. Every save
//     is a single update transaction.
//
// Files and keys are never removed by the simulation itself; Delete exists for operator
// tooling such as the reset command.
package checkpoint
