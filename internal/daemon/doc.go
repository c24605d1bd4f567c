// Package daemon owns the long-running dispatchd process: it enforces
// single-instance execution with a lock file, runs the embedded worker when
// enabled, and serves the read-only HTTP status API.
package daemon
