// Package logging provides the slog handler used by the mason CLI.
package logging
