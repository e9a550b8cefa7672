package recipe

import (
	"fmt"
	"path"
	"strings"

	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// Distinguishes how an upstream source is obtained.
type Kind int

const (

	// A plain artifact downloaded over HTTP(S) and verified against its
	// declared content hash.
	KindPlain Kind = iota

	// A git repository cloned via the external git binary and checked out
	// at the declared ref.
	KindGit
)

// Returns the kind's name for labels and log records.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindGit:
		return "git"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Declares one external source artifact.
//
// Upstreams are written as one-entry mappings keyed by URI. Plain sources map
// the URI to a content hash, either directly or in expanded form:
//
//	upstreams:
//	  - https://example.org/nano-8.2.tar.xz: sha256:d5ad07...
//	  - https://example.org/nano-8.2.tar.xz:
//	      hash: sha256:d5ad07...
//	      rename: nano.tar.xz
//
// Git sources prefix the URI with "git|" and map it to a ref:
//
//	upstreams:
//	  - git|https://example.org/nano.git: v8.2
type Upstream struct {
	URI    string        // Location of the artifact or repository.
	Kind   Kind          // How the source is obtained.
	Hash   digest.Digest // Declared content hash (plain sources).
	Ref    string        // Tag, branch, or commit (git sources).
	Rename string        // Optional name for the materialized source.
}

// Decodes an upstream from its one-entry mapping form.
func (u *Upstream) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("%w: upstreams must hold exactly one URI each", ErrRecipe)
	}
	uri, body := node.Content[0].Value, node.Content[1]

	if rest, ok := strings.CutPrefix(uri, "git|"); ok {
		return u.decodeGit(rest, body)
	}
	return u.decodePlain(uri, body)
}

func (u *Upstream) decodePlain(uri string, body *yaml.Node) error {
	u.Kind = KindPlain
	u.URI = uri

	hash := ""
	if body.Kind == yaml.ScalarNode {
		hash = body.Value
	} else {
		var raw struct {
			Hash   string `yaml:"hash"`
			Rename string `yaml:"rename"`
		}
		if err := body.Decode(&raw); err != nil {
			return fmt.Errorf("%w: upstream %s: %w", ErrRecipe, uri, err)
		}
		hash = raw.Hash
		u.Rename = raw.Rename
	}

	parsed, err := ParseHash(hash)
	if err != nil {
		return fmt.Errorf("%w: upstream %s: %w", ErrRecipe, uri, err)
	}
	u.Hash = parsed
	return nil
}

func (u *Upstream) decodeGit(uri string, body *yaml.Node) error {
	u.Kind = KindGit
	u.URI = uri

	if body.Kind == yaml.ScalarNode {
		u.Ref = body.Value
	} else {
		var raw struct {
			Ref    string `yaml:"ref"`
			Rename string `yaml:"rename"`
		}
		if err := body.Decode(&raw); err != nil {
			return fmt.Errorf("%w: upstream %s: %w", ErrRecipe, uri, err)
		}
		u.Ref = raw.Ref
		u.Rename = raw.Rename
	}

	if u.Ref == "" {
		return fmt.Errorf("%w: git upstream %s has no ref", ErrRecipe, uri)
	}
	return nil
}

// Returns the name this upstream materializes under in the source directory:
// the declared rename when present, otherwise the URI basename (for git
// sources, without a trailing ".git").
func (u Upstream) Target() string {
	if u.Rename != "" {
		return u.Rename
	}
	base := path.Base(u.URI)
	if u.Kind == KindGit {
		base = strings.TrimSuffix(base, ".git")
	}
	return base
}

// Parses a declared content hash into a verifiable digest.
//
// Hashes may be written with an explicit algorithm ("sha256:<hex>") or as a
// bare hex string, which is taken to be sha256.
func ParseHash(hash string) (digest.Digest, error) {
	if hash == "" {
		return "", fmt.Errorf("missing content hash")
	}
	if !strings.Contains(hash, ":") {
		hash = string(digest.SHA256) + ":" + hash
	}

	d := digest.Digest(hash)
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("content hash %q: %w", hash, err)
	}
	return d, nil
}
