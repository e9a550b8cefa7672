package build

import (
	"fmt"
	"strings"
)

// Functional kinds a stage can have. Exactly one applies per stage.
type Kind int

const (

	// Extracts or copies materialized sources into the build directory.
	KindPrepare Kind = iota

	// Configures the source tree for building.
	KindSetup

	// Compiles the configured tree.
	KindBuild

	// Installs build results into the install root.
	KindInstall

	// Runs the upstream test suite.
	KindCheck

	// Exercises an instrumented build to gather profile data.
	KindWorkload
)

// Returns the kind's base name as used in stage names.
func (k Kind) String() string {
	switch k {
	case KindPrepare:
		return "prepare"
	case KindSetup:
		return "setup"
	case KindBuild:
		return "build"
	case KindInstall:
		return "install"
	case KindCheck:
		return "check"
	case KindWorkload:
		return "workload"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Profile-guided-optimization phases a stage can run under.
type Phase int

const (

	// No profile-guided optimization.
	PhaseNone Phase = iota

	// First instrumented pass.
	PhaseStage1

	// Second instrumented pass (context-sensitive instrumentation).
	PhaseStage2

	// Final pass consuming the gathered profile data.
	PhaseUse
)

// Returns the phase's name as used in stage name suffixes.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseStage1:
		return "stage1"
	case PhaseStage2:
		return "stage2"
	case PhaseUse:
		return "use"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Pairs a functional kind with an optional profile-guided-optimization
// phase. The pairing is a tagged value, so a stage cannot carry two kinds or
// two phases at once.
type Type struct {
	Kind  Kind
	Phase Phase
}

// Creates a stage type, rejecting out-of-range kinds and phases.
func NewType(kind Kind, phase Phase) (Type, error) {
	if kind < KindPrepare || kind > KindWorkload {
		return Type{}, fmt.Errorf("%w: kind %d", ErrStageType, int(kind))
	}
	if phase < PhaseNone || phase > PhaseUse {
		return Type{}, fmt.Errorf("%w: phase %d", ErrStageType, int(phase))
	}
	return Type{Kind: kind, Phase: phase}, nil
}

// Returns the derived stage name: the kind's base name, with a
// "-pgo-<phase>" suffix when a phase applies.
func (t Type) Name() string {
	if t.Phase == PhaseNone {
		return t.Kind.String()
	}
	return t.Kind.String() + "-pgo-" + t.Phase.String()
}

// Token leading every stage script. It references the scriptBase action from
// the macro files, which expands to the common shell preamble at render time.
const scriptBaseToken = "%scriptBase"

// One named build step owned by a profile.
//
// A stage holds its script text unrendered; macros expand when the profile
// validates and again when it executes.
type Stage struct {
	profile *Profile // Owning profile. Never nil.
	typ     Type
	script  string
}

func newStage(profile *Profile, typ Type) *Stage {
	return &Stage{profile: profile, typ: typ}
}

// Returns the stage's derived name.
func (s *Stage) Name() string {
	return s.typ.Name()
}

// Returns the stage's type.
func (s *Stage) Type() Type {
	return s.typ
}

// Returns the profile that owns this stage.
func (s *Stage) Profile() *Profile {
	return s.profile
}

// Returns the stage's script text, including the leading preamble token.
func (s *Stage) Script() string {
	return s.script
}

// Replaces the stage's script with the trimmed text, prepended with the
// fixed preamble token.
//
// Assignment is idempotent against re-wrapping: text that already starts
// with the preamble token is stored as-is, so feeding a stage its own script
// back does not stack preambles.
func (s *Stage) SetScript(text string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, scriptBaseToken) {
		text = scriptBaseToken + "\n" + text
	}
	s.script = text
}
