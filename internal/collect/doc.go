// Package collect assigns installed files to output packages.
//
// After a build's install stage populates one or more install roots, the
// collector walks each root and matches every file against ordered rules.
// The mandatory "*" fallback rule makes the assignment total: every file
// lands in exactly one package.
package collect
