// Package queue persists dispatch jobs in SQLite and guarantees race-free
// handoff between producers and consumers.
//
// The Store owns the database connection, schema initialization, and the job
// lifecycle: Enqueue inserts a queued row, ClaimNext transitions the oldest
// queued job to running inside an immediate write transaction, and
// MarkComplete/MarkFailed apply the terminal statuses. Claim correctness
// relies entirely on SQLite transaction isolation; the immediate transaction
// acquires the write lock before reading, so two concurrent claimers can
// never both observe the same queued row.
//
// Jobs are never deleted; completed and failed rows persist for audit.
// Treat this package as the single source of truth for queue semantics; when
// you add statuses or columns, update schema.sql and bump schemaVersion.
package queue
