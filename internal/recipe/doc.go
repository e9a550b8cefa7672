// Package recipe models the stone.yml recipe format: package identity,
// upstream sources, build and check dependencies, per-stage scripts, and
// subpackage path rules.
package recipe
