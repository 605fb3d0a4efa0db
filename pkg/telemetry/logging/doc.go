// Package logging configures structured logging for Saturn on top of the
// standard library's log/slog. Components obtain scoped loggers with
// slog.Default().With("component", name).
package logging
