// Package logging builds slog loggers for the CLI and harness.
//
// Log records go to stderr and an append-only file under the log
// directory; stdout is reserved for structured progress events consumed
// by supervising processes. The console format is meant for humans, the
// json format for log shippers.
package logging
