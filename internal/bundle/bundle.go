package bundle

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// FormatVersion is the bundle format this package reads and writes.
const FormatVersion = 1

// Bundle is the serialized form of the tool's module tree.
type Bundle struct {
	Format  int       `yaml:"format"`
	Tool    string    `yaml:"tool"`
	Created time.Time `yaml:"created"`
	Files   []File    `yaml:"files"`
}

// File is one bundled file. Path is slash-separated and relative to the
// tool root.
type File struct {
	Path    string      `yaml:"path"`
	Mode    fs.FileMode `yaml:"mode,omitempty"`
	Content string      `yaml:"content"`
}

// SourceDirs are the tool-root directories a bundle carries.
var SourceDirs = []string{userdata.ModulesDir, userdata.CoreDir, userdata.SharedDir}

// Build collects every non-hidden file under root's module directories.
// Missing directories are skipped.
func Build(fsys afero.Fs, root string) (*Bundle, error) {
	b := &Bundle{
		Format:  FormatVersion,
		Tool:    branding.GlobalCLIName(),
		Created: time.Now().UTC(),
	}

	for _, dir := range SourceDirs {
		base := filepath.Join(root, dir)
		if ok, _ := afero.DirExists(fsys, base); !ok {
			continue
		}
		err := afero.Walk(fsys, base, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if strings.HasPrefix(info.Name(), ".") && p != base {
				if info.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			data, err := afero.ReadFile(fsys, p)
			if err != nil {
				return fmt.Errorf("reading %s: %w", p, err)
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			b.Files = append(b.Files, File{
				Path:    filepath.ToSlash(rel),
				Mode:    info.Mode().Perm(),
				Content: string(data),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("bundling %s: %w", base, err)
		}
	}

	sort.Slice(b.Files, func(i, j int) bool { return b.Files[i].Path < b.Files[j].Path })
	return b, nil
}

// Encode writes b as YAML.
func Encode(w io.Writer, b *Bundle) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	return enc.Close()
}

// Decode reads a bundle and checks its format.
func Decode(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := yaml.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if b.Format != FormatVersion {
		return nil, fmt.Errorf("unsupported bundle format %d (want %d)", b.Format, FormatVersion)
	}
	for _, f := range b.Files {
		if !fs.ValidPath(f.Path) {
			return nil, fmt.Errorf("bundle file path %q is not a clean relative path", f.Path)
		}
	}
	return &b, nil
}

// WriteFile encodes b to path.
func WriteFile(fsys afero.Fs, path string, b *Bundle) error {
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return err
	}
	if err := fsys.MkdirAll(filepath.Dir(path), userdata.DirPermNormal); err != nil {
		return fmt.Errorf("creating bundle directory: %w", err)
	}
	if err := afero.WriteFile(fsys, path, buf.Bytes(), userdata.FilePermNormal); err != nil {
		return fmt.Errorf("writing bundle %s: %w", path, err)
	}
	return nil
}

// ReadFile decodes the bundle at path.
func ReadFile(fsys afero.Fs, path string) (*Bundle, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Locate finds the bundle to run from. It returns false when the tool root
// has module directories of its own, since those always take precedence.
// Otherwise the configured path, <root>/<bundle file> and the file next to
// the executable are tried in that order.
func Locate(fsys afero.Fs, root, configured string) (string, bool) {
	for _, dir := range SourceDirs {
		if ok, _ := afero.DirExists(fsys, filepath.Join(root, dir)); ok {
			return "", false
		}
	}

	candidates := []string{configured, filepath.Join(root, branding.BundleFile())}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), branding.BundleFile()))
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := fsys.Stat(p); err == nil {
			return p, true
		}
	}
	return "", false
}
