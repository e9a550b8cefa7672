package main

import (
	"log/slog"
	"os"

	"github.com/stoneforge/mason/internal"
	"github.com/stoneforge/mason/internal/cli"
	"github.com/stoneforge/mason/internal/logging"
)

// Seeds the default logger, runs the root command, and exits non-zero when
// the selected command fails. Flag parsing reconfigures the logger; anything
// logged before that respects the build-time mode defaults.
func main() {
	handler := logging.NewHandler()
	handler.SetLevel(startupLevel())
	slog.SetDefault(slog.New(handler.WithGroup(internal.Name)))

	slog.Debug("starting",
		"version", internal.VersionString(),
		"pid", os.Getpid(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Level the process logs at before flags are parsed, derived from the
// build-time mode defaults.
func startupLevel() slog.Level {
	switch {
	case internal.IsDebug():
		return slog.LevelDebug
	case internal.IsQuiet():
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
