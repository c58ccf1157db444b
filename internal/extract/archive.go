package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// entry is one regular file read from an archive.
type entry struct {
	Name string
	Mode os.FileMode
	Data []byte
}

// readArchive returns the regular files of a .zip, .tar.gz/.tgz or .tar
// archive. Any other file is treated as a single entry named after itself.
func readArchive(fsys afero.Fs, archivePath string) ([]entry, error) {
	lower := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return readZip(fsys, archivePath)
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return readTar(fsys, archivePath, true)
	case strings.HasSuffix(lower, ".tar"):
		return readTar(fsys, archivePath, false)
	default:
		data, err := afero.ReadFile(fsys, archivePath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", archivePath, err)
		}
		mode := os.FileMode(0644)
		if info, err := fsys.Stat(archivePath); err == nil {
			mode = info.Mode().Perm()
		}
		return []entry{{Name: filepath.Base(archivePath), Mode: mode, Data: data}}, nil
	}
}

func readTar(fsys afero.Fs, archivePath string, gzipped bool) ([]entry, error) {
	f, err := fsys.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var out []entry
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := cleanEntryName(hdr.Name)
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", hdr.Name, err)
		}
		out = append(out, entry{Name: name, Mode: os.FileMode(hdr.Mode).Perm(), Data: data})
	}
	return out, nil
}

func readZip(fsys afero.Fs, archivePath string) ([]entry, error) {
	f, err := fsys.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening zip archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("opening zip archive: %w", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("opening zip archive: %w", err)
	}

	var out []entry
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name, err := cleanEntryName(zf.Name)
		if err != nil {
			return nil, err
		}
		rc, err := zf.Open()
		if err != nil {
			return nil, fmt.Errorf("opening zip entry: %w", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("extracting %s: %w", zf.Name, err)
		}
		mode := zf.Mode().Perm()
		if mode == 0 {
			mode = 0644
		}
		out = append(out, entry{Name: name, Mode: mode, Data: data})
	}
	return out, nil
}

// cleanEntryName rejects entries that would escape the extraction root.
func cleanEntryName(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "./"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("archive entry %q escapes the extraction root", name)
	}
	return clean, nil
}
