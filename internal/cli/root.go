package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/stoneforge/mason/internal"
	"github.com/stoneforge/mason/internal/logging"
)

// Represents the root command for the mason CLI.
var RootCmd struct {
	Quiet   bool       `short:"q" help:"Only print warnings and errors."`
	Verbose bool       `short:"v" help:"Timestamp every log record."`
	Debug   bool       `short:"d" help:"Enable debug logging."`
	Build   BuildCmd   `cmd:"" help:"Build packages from a recipe."`
	Fetch   FetchCmd   `cmd:"" help:"Fetch a recipe's upstream sources into the cache."`
	Version VersionCmd `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The stoneforge package builder.\n\nTurns declarative recipes into installable packages."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Commits the merged output modes and reconfigures the global logger.
func configureLogger() {
	handler, ok := slog.Default().Handler().(*logging.Handler)
	if !ok {
		return // Not a logging.Handler, nothing to configure
	}

	// Flags raise modes over their build-time defaults, never lower them.
	internal.SetDebug(RootCmd.Debug || internal.IsDebug())
	internal.SetQuiet(RootCmd.Quiet || internal.IsQuiet())
	internal.SetVerbose(RootCmd.Verbose || internal.IsVerbose())

	switch {
	case internal.IsDebug():
		handler.SetLevel(slog.LevelDebug)
	case internal.IsQuiet():
		handler.SetLevel(slog.LevelWarn)
	default:
		handler.SetLevel(slog.LevelInfo)
	}

	handler.SetVerbose(internal.IsVerbose())
	handler.SetOutput(os.Stderr)
}
