// Package logging provides slog-based structured logging with console and
// JSON handlers shared by the daemon and CLI.
package logging
