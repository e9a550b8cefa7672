package internal

import (
	"strconv"
	"sync/atomic"
)

// Output modes for the running process.
//
// Each mode seeds from a linker-set default and is committed again once flag
// parsing has settled, so subsystems read one source of truth. Reads are safe
// from any goroutine.
var modes struct {
	quiet   atomic.Bool
	debug   atomic.Bool
	verbose atomic.Bool
}

// Seeds the output modes from the linker flags.
//
// The rawQuiet, rawDebug, and rawVerbose variables should be set via ldflags
// during the build process. Unset or malformed values leave a mode disabled.
func init() {
	modes.quiet.Store(parseMode(rawQuiet))
	modes.debug.Store(parseMode(rawDebug))
	modes.verbose.Store(parseMode(rawVerbose))
}

func parseMode(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// Enables or disables quiet mode.
func SetQuiet(enabled bool) {
	modes.quiet.Store(enabled)
}

// Returns true if quiet mode is enabled.
func IsQuiet() bool {
	return modes.quiet.Load()
}

// Enables or disables debug mode.
func SetDebug(enabled bool) {
	modes.debug.Store(enabled)
}

// Returns true if debug mode is enabled.
func IsDebug() bool {
	return modes.debug.Load()
}

// Enables or disables verbose logging.
func SetVerbose(enabled bool) {
	modes.verbose.Store(enabled)
}

// Returns true if verbose logging is enabled.
func IsVerbose() bool {
	return modes.verbose.Load()
}
