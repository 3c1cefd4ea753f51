// Package logging assembles structured slog loggers and formatting helpers used
// across vidmint.
//
// It owns the console/JSON handlers, mirrors output into a JSON log file under
// the configured log directory, and exposes context-aware helpers so workflow
// code tags log lines with session IDs, steps, video IDs and request IDs. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
