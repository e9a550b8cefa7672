package recipe

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func parseUpstreams(t *testing.T, data string) []Upstream {
	t.Helper()

	var out struct {
		Upstreams []Upstream `yaml:"upstreams"`
	}
	if err := yaml.Unmarshal([]byte(data), &out); err != nil {
		t.Fatalf("unmarshal upstreams: %v", err)
	}
	return out.Upstreams
}

func TestUpstreamCompactForm(t *testing.T) {
	ups := parseUpstreams(t, `
upstreams:
  - https://e.org/nano-8.2.tar.xz: sha256:3d9d7dd343ca3245d445a4fd9ffc0c2db619148e2be5ec8e4a9f2931a7ccd797
`)

	if len(ups) != 1 {
		t.Fatalf("len(upstreams) = %d, want 1", len(ups))
	}
	u := ups[0]
	if u.Kind != KindPlain {
		t.Fatalf("Kind = %v, want plain", u.Kind)
	}
	if u.URI != "https://e.org/nano-8.2.tar.xz" {
		t.Fatalf("URI = %q", u.URI)
	}
	if u.Hash.Algorithm().String() != "sha256" {
		t.Fatalf("Hash algorithm = %q, want sha256", u.Hash.Algorithm())
	}
	if u.Target() != "nano-8.2.tar.xz" {
		t.Fatalf("Target() = %q, want nano-8.2.tar.xz", u.Target())
	}
}

func TestUpstreamBareHexHash(t *testing.T) {
	ups := parseUpstreams(t, `
upstreams:
  - https://e.org/a.tar.xz: 3d9d7dd343ca3245d445a4fd9ffc0c2db619148e2be5ec8e4a9f2931a7ccd797
`)

	want := "sha256:3d9d7dd343ca3245d445a4fd9ffc0c2db619148e2be5ec8e4a9f2931a7ccd797"
	if got := ups[0].Hash.String(); got != want {
		t.Fatalf("Hash = %q, want %q", got, want)
	}
}

func TestUpstreamExpandedForm(t *testing.T) {
	ups := parseUpstreams(t, `
upstreams:
  - https://e.org/v8.tar.xz:
      hash: sha256:3d9d7dd343ca3245d445a4fd9ffc0c2db619148e2be5ec8e4a9f2931a7ccd797
      rename: nano.tar.xz
`)

	if ups[0].Rename != "nano.tar.xz" {
		t.Fatalf("Rename = %q", ups[0].Rename)
	}
	if ups[0].Target() != "nano.tar.xz" {
		t.Fatalf("Target() = %q, want rename", ups[0].Target())
	}
}

func TestUpstreamGitForm(t *testing.T) {
	ups := parseUpstreams(t, `
upstreams:
  - git|https://e.org/tools/nano.git: v8.2
`)

	u := ups[0]
	if u.Kind != KindGit {
		t.Fatalf("Kind = %v, want git", u.Kind)
	}
	if u.URI != "https://e.org/tools/nano.git" {
		t.Fatalf("URI = %q", u.URI)
	}
	if u.Ref != "v8.2" {
		t.Fatalf("Ref = %q, want v8.2", u.Ref)
	}
	if u.Target() != "nano" {
		t.Fatalf("Target() = %q, want nano", u.Target())
	}
}

func TestUpstreamGitMissingRef(t *testing.T) {
	var out struct {
		Upstreams []Upstream `yaml:"upstreams"`
	}
	err := yaml.Unmarshal([]byte("upstreams:\n  - git|https://e.org/n.git: \"\"\n"), &out)
	if !errors.Is(err, ErrRecipe) {
		t.Fatalf("unmarshal error = %v, want ErrRecipe", err)
	}
}

func TestUpstreamMalformedHash(t *testing.T) {
	var out struct {
		Upstreams []Upstream `yaml:"upstreams"`
	}
	err := yaml.Unmarshal([]byte("upstreams:\n  - https://e.org/a.tar: zz-not-hex\n"), &out)
	if !errors.Is(err, ErrRecipe) {
		t.Fatalf("unmarshal error = %v, want ErrRecipe", err)
	}
}

func TestParseHash(t *testing.T) {
	hex := "3d9d7dd343ca3245d445a4fd9ffc0c2db619148e2be5ec8e4a9f2931a7ccd797"

	d, err := ParseHash(hex)
	if err != nil {
		t.Fatalf("ParseHash(bare) error: %v", err)
	}
	if d.String() != "sha256:"+hex {
		t.Fatalf("ParseHash(bare) = %q", d)
	}

	d, err = ParseHash("sha256:" + hex)
	if err != nil {
		t.Fatalf("ParseHash(qualified) error: %v", err)
	}
	if d.Encoded() != hex {
		t.Fatalf("Encoded() = %q", d.Encoded())
	}

	if _, err := ParseHash(""); err == nil {
		t.Fatal("ParseHash(\"\") succeeded")
	}
}
