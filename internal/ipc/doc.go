// Package ipc exposes daemon control over JSON-RPC on a Unix domain socket.
// The CLI and the bridge are its clients; the daemon registers the Dispatch
// service at startup.
package ipc
