package recipe

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Toolchains a recipe may select. The choice drives which compiler packages
// provision the build root and which macro flags apply during
// profile-guided-optimization builds.
const (
	ToolchainGNU  = "gnu"
	ToolchainLLVM = "llvm"
)

// Describes one source package: its identity, its upstream sources, the
// dependencies its build needs, per-stage shell logic, and how installed
// files split into output packages.
type Recipe struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	Release   int64  `yaml:"release"`
	Summary   string `yaml:"summary"`
	Toolchain string `yaml:"toolchain"`

	Architectures []string   `yaml:"architectures"`
	Upstreams     []Upstream `yaml:"upstreams"`
	BuildDeps     []string   `yaml:"builddeps"`
	CheckDeps     []string   `yaml:"checkdeps"`

	Setup    string `yaml:"setup"`
	Build    string `yaml:"build"`
	Install  string `yaml:"install"`
	Check    string `yaml:"check"`
	Workload string `yaml:"workload"`

	Packages []Package `yaml:"packages"`
}

// Declares a subpackage and the installed paths that belong to it.
//
// Written as a one-entry mapping keyed by package name; the name may use
// macros (e.g., "%(name)-devel"):
//
//	packages:
//	  - "%(name)-devel":
//	      summary: Development files
//	      paths:
//	        - /usr/include
//	        - /usr/lib/pkgconfig
type Package struct {
	Name    string
	Summary string
	Paths   []string
}

// Decodes a subpackage from its one-entry mapping form.
func (p *Package) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("%w: packages must hold exactly one name each", ErrRecipe)
	}
	name, body := node.Content[0].Value, node.Content[1]
	if name == "" {
		return fmt.Errorf("%w: package with empty name", ErrRecipe)
	}

	var raw struct {
		Summary string   `yaml:"summary"`
		Paths   []string `yaml:"paths"`
	}
	if err := body.Decode(&raw); err != nil {
		return fmt.Errorf("%w: package %s: %w", ErrRecipe, name, err)
	}

	p.Name = name
	p.Summary = raw.Summary
	p.Paths = raw.Paths
	return nil
}

// Parses a recipe from its YAML encoding, applies defaults, and validates it.
func Parse(data []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecipe, err)
	}

	if r.Toolchain == "" {
		r.Toolchain = ToolchainGNU
	}
	if len(r.Architectures) == 0 {
		r.Architectures = []string{"native"}
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Reads, parses, and validates the recipe file at the given path.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Checks the recipe for the fields every build needs.
func (r *Recipe) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: missing name", ErrRecipe)
	}
	if r.Version == "" {
		return fmt.Errorf("%w: missing version", ErrRecipe)
	}
	if r.Release < 1 {
		return fmt.Errorf("%w: release must be 1 or greater", ErrRecipe)
	}
	if r.Toolchain != ToolchainGNU && r.Toolchain != ToolchainLLVM {
		return fmt.Errorf("%w: unknown toolchain %q", ErrRecipe, r.Toolchain)
	}
	return nil
}

// Reports whether the recipe declares support for the named architecture.
//
// Names are matched exactly; marker names like "native" and "emul32" are
// ordinary entries that callers probe for alongside concrete platform names.
func (r *Recipe) SupportedArchitecture(name string) bool {
	return slices.Contains(r.Architectures, name)
}
