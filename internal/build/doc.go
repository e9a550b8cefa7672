// Package build orchestrates recipe execution against isolated build roots.
//
// A [Builder] is constructed from a recipe file. It claims an isolated root
// directory for the recipe's name and release, loads the layered macro
// definitions for the detected platform, and registers one [Profile] per
// architecture the recipe supports on this host (the native architecture,
// plus a 32-bit compatibility variant when the platform can run one). Each
// profile is an ordered sequence of [Stage] values whose scripts render
// through the macro layer before they execute.
//
// The pipeline runs in a fixed order: prepare and provision the root,
// validate every profile's scripts, fetch and materialize upstream sources,
// run each profile's stages, collect installed files into package
// assignments, and emit the package archives. The first failure stops the
// run, so a broken stage never leaves a partially emitted package behind.
//
// Example usage:
//
//	b, err := build.New("recipes/nano/stone.yml", build.Options{
//	    Output: "dist",
//	    Jobs:   8,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := b.Build(ctx); err != nil {
//	    return err
//	}
package build
