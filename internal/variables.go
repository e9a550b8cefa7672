package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name used for the binary, directories, and log grouping.
const Name = "mason"

// Placeholder for identity variables release builds set via linker flags.
const undefined = "(undefined)"

var (
	version   = "" // Release version, e.g. "0.3.1"
	gitCommit = "" // Short commit hash the binary was built from

	rawQuiet   = "false" // Build-time default for quiet mode
	rawDebug   = "false" // Build-time default for debug mode
	rawVerbose = "false" // Build-time default for verbose logging
)

// Returns the release version with any leading "v" stripped, or the
// undefined placeholder for builds that never set one.
func Version() string {
	v := strings.TrimSpace(version)
	if v == "" {
		return undefined
	}
	return strings.TrimPrefix(strings.ToLower(v), "v")
}

// Returns the commit hash this binary was built from, or the undefined
// placeholder.
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return undefined
	}
	return c
}

// Reports whether this is a local development build. Release builds set both
// the version and the commit hash via linker flags; anything less is local.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" || strings.TrimSpace(gitCommit) == ""
}

// Returns the full identity line: "<version> <commit> [<arch>]" for release
// builds, "(local)" otherwise.
func VersionString() string {
	if IsLocal() {
		return "(local)"
	}
	return fmt.Sprintf("%s %s [%s]", Version(), GitCommit(), runtime.GOARCH)
}
