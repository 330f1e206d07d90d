// Package logging assembles the structured slog loggers used across fidctail.
//
// It owns the console and JSON handlers, level parsing, and output plumbing,
// and exposes helpers so the tail loop can stamp every diagnostic line with
// the source, session, and cursor it concerns. Diagnostics are written to
// stderr by default because stdout carries the tailed payloads. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
