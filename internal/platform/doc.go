// Package platform identifies the build host architecture and its 32-bit
// compatibility capabilities.
package platform
