package collect

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
)

// Records the assignment of one installed file to an output package.
type Assignment struct {
	Package string      // Output package the file belongs to.
	Path    string      // Installed path, rooted at "/".
	Source  string      // Absolute path under the scanned install root.
	Mode    fs.FileMode // File mode, including the symlink bit.
	Size    int64       // Payload size in bytes.
	Link    string      // Symlink target, for symlinks only.
	Digest  string      // blake3 content digest, for regular files only.
}

// Assigns every file under one or more install roots to an output package by
// applying ordered rules.
//
// Assignments key by absolute source path, so scanning the same root again
// is a pure overwrite with identical values and distinct roots never collide
// with each other.
type Collector struct {
	rules       []Rule
	assignments map[string]Assignment
}

// Creates a collector with no rules. Callers must register rules, ending
// with the "*" fallback, before collecting.
func NewCollector() *Collector {
	return &Collector{
		assignments: make(map[string]Assignment),
	}
}

// Appends a rule. Registration order is match priority.
func (c *Collector) AddRule(rule Rule) {
	c.rules = append(c.rules, rule)
}

// Walks an install root and assigns every file under it.
//
// Directories themselves are not assigned; they are implied by the files
// within them. A file no rule claims is an error, which the mandatory
// fallback rule makes unreachable in a correctly configured build.
func (c *Collector) Collect(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCollect, err)
	}

	err = filepath.WalkDir(root, func(source string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, source)
		if err != nil {
			return err
		}

		assignment, err := c.assign("/"+filepath.ToSlash(rel), source, entry)
		if err != nil {
			return err
		}
		c.assignments[source] = assignment
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCollect, root, err)
	}
	return nil
}

func (c *Collector) assign(installed, source string, entry fs.DirEntry) (Assignment, error) {
	rule, ok := c.match(installed)
	if !ok {
		return Assignment{}, fmt.Errorf("%w: %s", ErrNoRule, installed)
	}

	info, err := entry.Info()
	if err != nil {
		return Assignment{}, err
	}

	assignment := Assignment{
		Package: rule.Package,
		Path:    installed,
		Source:  source,
		Mode:    info.Mode(),
		Size:    info.Size(),
	}

	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(source)
		if err != nil {
			return Assignment{}, err
		}
		assignment.Link = target

	case info.Mode().IsRegular():
		sum, err := hashFile(source)
		if err != nil {
			return Assignment{}, err
		}
		assignment.Digest = sum
	}

	return assignment, nil
}

func (c *Collector) match(installed string) (Rule, bool) {
	for _, rule := range c.rules {
		if rule.Matches(installed) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Returns every assignment made so far, ordered by installed path and then
// by source for stable output.
func (c *Collector) Assignments() []Assignment {
	out := make([]Assignment, 0, len(c.assignments))
	for _, a := range c.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// Returns assignments grouped by output package, each group ordered as in
// [Collector.Assignments].
func (c *Collector) ByPackage() map[string][]Assignment {
	grouped := make(map[string][]Assignment)
	for _, a := range c.Assignments() {
		grouped[a.Package] = append(grouped[a.Package], a)
	}
	return grouped
}

// Computes the blake3 content digest of a regular file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return "blake3:" + hex.EncodeToString(h.Sum(nil)), nil
}
