package emit

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/stoneforge/mason/internal/collect"
	"github.com/stoneforge/mason/internal/paths"
)

const (

	// Name of the manifest entry leading every package archive.
	manifestName = "manifest.yaml"

	// Suffix of emitted package archives.
	archiveSuffix = ".pkg.tar.zst"
)

// Metadata shared by every package one recipe emits.
type Metadata struct {
	Version string
	Release int64
	Summary string
}

// Describes an emitted package: identity plus an entry per payload file.
type Manifest struct {
	Name    string         `yaml:"name"`
	Version string         `yaml:"version"`
	Release int64          `yaml:"release"`
	Summary string         `yaml:"summary,omitempty"`
	Files   []ManifestFile `yaml:"files"`
}

// Describes one payload file in a package manifest.
type ManifestFile struct {
	Path   string `yaml:"path"`
	Mode   string `yaml:"mode"`
	Size   int64  `yaml:"size,omitempty"`
	Link   string `yaml:"link,omitempty"`
	Digest string `yaml:"digest,omitempty"`
}

// Writes one package archive into the output directory and returns its path.
//
// The archive is a zstd-compressed tar holding manifest.yaml followed by the
// payload files at their installed paths. Callers decide which packages to
// emit; an empty assignment list still produces a valid, payload-free
// archive, so skipping empty packages is the caller's policy.
func Write(name string, meta Metadata, assignments []collect.Assignment, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, paths.DefaultDirMode); err != nil {
		return "", err
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s-%s-%d%s", name, meta.Version, meta.Release, archiveSuffix))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", err
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	if err := writeManifest(tw, name, meta, assignments); err != nil {
		return "", err
	}
	for _, a := range assignments {
		if err := writePayload(tw, a); err != nil {
			return "", fmt.Errorf("%s: %w", a.Path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	slog.Info("package emitted", "package", name, "path", path, "files", len(assignments))
	return path, nil
}

// Serializes the manifest and writes it as the archive's first entry.
func writeManifest(tw *tar.Writer, name string, meta Metadata, assignments []collect.Assignment) error {
	manifest := Manifest{
		Name:    name,
		Version: meta.Version,
		Release: meta.Release,
		Summary: meta.Summary,
		Files:   make([]ManifestFile, 0, len(assignments)),
	}
	for _, a := range assignments {
		manifest.Files = append(manifest.Files, ManifestFile{
			Path:   a.Path,
			Mode:   fmt.Sprintf("%#o", a.Mode.Perm()),
			Size:   a.Size,
			Link:   a.Link,
			Digest: a.Digest,
		})
	}

	data, err := yaml.Marshal(&manifest)
	if err != nil {
		return err
	}

	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     manifestName,
		Mode:     int64(paths.DefaultFileMode),
		Size:     int64(len(data)),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = tw.Write(data)
	return err
}

// Writes a single assignment into the archive at its installed path.
func writePayload(tw *tar.Writer, a collect.Assignment) error {
	header := &tar.Header{
		Name: strings.TrimPrefix(a.Path, "/"),
		Mode: int64(a.Mode.Perm()),
	}

	if a.Mode&fs.ModeSymlink != 0 {
		header.Typeflag = tar.TypeSymlink
		header.Linkname = a.Link
		return tw.WriteHeader(header)
	}

	header.Typeflag = tar.TypeReg
	header.Size = a.Size
	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(a.Source)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
