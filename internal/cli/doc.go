// Parses flags and dispatches the mason subcommands.
//
// Three global flags steer log output: -q/--quiet raises the level to
// warnings, -d/--debug lowers it to debug, and -v/--verbose adds timestamps.
// Flags override build-time defaults set via linker flags; after parsing, the
// merged modes are committed back to the internal package and the global
// logger is reconfigured before the selected command runs.
package cli
