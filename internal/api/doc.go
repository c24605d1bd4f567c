// Package api defines the transport-facing representations of queue state
// shared by the IPC service, the HTTP status endpoints, and the CLI.
package api
