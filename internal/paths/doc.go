// Provides well-known filesystem locations for the build orchestrator.
//
// Build roots live under the moss tree in the user's home directory so that
// moss-provisioned toolchains and mason-built artefacts share one hierarchy.
// The upstream cache follows XDG conventions. Macro definitions are resolved
// from a directory adjacent to the executable first, falling back to the
// fixed system path, so development trees can carry their own macros.
package paths
