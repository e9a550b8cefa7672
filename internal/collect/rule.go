package collect

import (
	"path"
	"strings"
)

// Maps installed paths to an output package.
//
// Rules apply in registration order; the first match wins.
type Rule struct {
	Pattern string // "*", a path glob, or a directory prefix.
	Package string // Output package receiving matched files.
}

// Reports whether the rule matches an installed path.
//
// The pattern "*" matches every path and backs the mandatory fallback rule.
// Other patterns match as a glob against the full installed path; a pattern
// without a glob hit also claims everything below it as a directory prefix,
// so "/usr/include" takes "/usr/include/curses.h".
func (r Rule) Matches(installed string) bool {
	if r.Pattern == "*" {
		return true
	}
	if ok, err := path.Match(r.Pattern, installed); err == nil && ok {
		return true
	}

	prefix := strings.TrimSuffix(r.Pattern, "/")
	return prefix != "" && strings.HasPrefix(installed, prefix+"/")
}
