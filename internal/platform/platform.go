package platform

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Describes the build host.
type Platform struct {
	Name   string // Architecture name as recipes spell it (e.g., "x86_64").
	Emul32 bool   // Whether the host can run 32-bit compatibility builds.
}

// Returns the architecture name of this platform's 32-bit compatibility
// variant (e.g., "emul32/x86_64"). Only meaningful when Emul32 is true.
func (p Platform) Emul32Name() string {
	return "emul32/" + p.Name
}

// Detects the current build host.
//
// The kernel's machine name is preferred because it matches the names
// recipes use. When uname is unavailable the Go architecture is mapped
// instead.
func Detect() Platform {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fromMachine(goArchMachine(runtime.GOARCH))
	}
	return fromMachine(unix.ByteSliceToString(uts.Machine[:]))
}

// Maps a kernel machine name to a platform description.
//
// Unknown machine names pass through verbatim with no emul32 capability, so
// recipes targeting them by exact name still build.
func fromMachine(machine string) Platform {
	switch machine {
	case "x86_64":
		return Platform{Name: "x86_64", Emul32: true}
	case "i686", "i586", "i486", "i386":
		return Platform{Name: "x86"}
	case "aarch64", "arm64":
		return Platform{Name: "aarch64"}
	case "riscv64":
		return Platform{Name: "riscv64"}
	default:
		return Platform{Name: machine}
	}
}

// Translates a Go architecture name into the equivalent machine name.
func goArchMachine(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	default:
		return goarch
	}
}
