// Package logging configures structured slog output for the dubber CLI and
// daemon. It provides console and JSON handlers, standardized field names for
// job/language/stage context, and helpers for deriving loggers from a
// context.Context.
package logging
