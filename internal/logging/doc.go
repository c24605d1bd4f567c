// Package logging builds the slog loggers used across dispatch.
//
// It offers a console handler that renders compact key=value lines with the
// component pulled into the message prefix, a JSON handler for machine
// consumption, and small attr helpers so call sites avoid importing slog
// directly. Construct loggers through New or NewFromConfig so output paths
// and levels stay consistent between the daemon, bridge, and CLI.
package logging
