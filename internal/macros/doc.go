// Package macros loads layered definition files and renders stage scripts
// against them.
//
// Definitions are plain key/value substitutions referenced as %(key).
// Actions are named script fragments referenced as %name. Files layer in a
// fixed order (base, then architecture, then an optional 32-bit compatibility
// overlay), with later layers overriding earlier definitions per key and
// action files only ever adding to the action vocabulary.
package macros
