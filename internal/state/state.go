// Package state persists which packages are installed and what each
// installation put on disk.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// Record is the installation record of one package.
type Record struct {
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Installed bool   `json:"installed"`
	// Files and Dirs are relative to the install root.
	Files       []string          `json:"files,omitempty"`
	Dirs        []string          `json:"dirs,omitempty"`
	Envs        map[string]string `json:"envs,omitempty"`
	InstalledAt time.Time         `json:"installed_at"`
}

type fileFormat struct {
	Packages map[string]*Record `json:"packages"`
}

// Store is a JSON file of records keyed by package name. Every change is
// written through immediately.
type Store struct {
	fs      afero.Fs
	path    string
	records map[string]*Record
}

// Open loads the store at path. A missing file is an empty store.
func Open(fsys afero.Fs, path string) (*Store, error) {
	s := &Store{fs: fsys, path: path, records: make(map[string]*Record)}

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	for name, r := range f.Packages {
		if r == nil {
			continue
		}
		r.Name = name
		s.records[name] = r
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns the record for name.
func (s *Store) Get(name string) (*Record, bool) {
	r, ok := s.records[name]
	return r, ok
}

// Set stores r and saves.
func (s *Store) Set(r *Record) error {
	if r.Name == "" {
		return errors.New("state record has no name")
	}
	s.records[r.Name] = r
	return s.save()
}

// Remove deletes the record for name and saves. Removing an unknown name is
// not an error.
func (s *Store) Remove(name string) error {
	if _, ok := s.records[name]; !ok {
		return nil
	}
	delete(s.records, name)
	return s.save()
}

// LoadAll returns every record sorted by name.
func (s *Store) LoadAll() []*Record {
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) save() error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), userdata.DirPermNormal); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(fileFormat{Packages: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, userdata.FilePermNormal); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	return nil
}

// Missing returns the recorded files of r that no longer exist under root.
func Missing(fsys afero.Fs, root string, r *Record) []string {
	var missing []string
	for _, f := range r.Files {
		if ok, _ := afero.Exists(fsys, filepath.Join(root, filepath.FromSlash(f))); !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
