package extract

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// ErrAborted is returned when a conflict resolver aborts the extraction.
var ErrAborted = errors.New("extraction aborted")

// Resolution answers a file conflict.
type Resolution int

const (
	// Overwrite replaces the existing file.
	Overwrite Resolution = iota
	// Skip keeps the existing file.
	Skip
	// Abort cancels the extraction before anything is written.
	Abort
)

// ConflictFunc decides what to do with an existing file at rel.
type ConflictFunc func(rel string) (Resolution, error)

// Result lists what an extraction created. Paths are slash-separated and
// relative to the install root.
type Result struct {
	Files []string
	// Dirs are directories that did not exist before, deepest first.
	Dirs []string
	Envs map[string]string
}

// Extractor stages archive contents into Root.
type Extractor struct {
	Fs   afero.Fs
	Root string
	// OnConflict is consulted for each destination file that already
	// exists. Nil overwrites.
	OnConflict ConflictFunc
}

type op struct {
	dest  string
	entry entry
}

// Extract applies rules to the archive at archivePath. Every conflict is
// resolved before the first file is written.
func (e *Extractor) Extract(archivePath string, rules []Rule) (*Result, error) {
	entries, err := readArchive(e.Fs, archivePath)
	if err != nil {
		return nil, err
	}

	res := &Result{Envs: make(map[string]string)}
	var ops []op
	claimed := make(map[string]bool)
	for _, r := range rules {
		matched := false
		for _, ent := range entries {
			dest, ok, err := r.target(ent.Name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			matched = true
			if claimed[dest] {
				continue
			}
			claimed[dest] = true
			ops = append(ops, op{dest: dest, entry: ent})
		}
		if !matched {
			logging.Warn().Str("rule", r.String()).Str("archive", archivePath).Msg("copy rule matched nothing")
		}
		if r.EnvVar != "" {
			res.Envs[r.EnvVar] = filepath.Join(e.Root, filepath.FromSlash(r.Dest))
		}
	}

	ops, err = e.resolveConflicts(ops)
	if err != nil {
		return nil, err
	}

	newDirs := make(map[string]bool)
	for _, o := range ops {
		if err := e.markNewDirs(path.Dir(o.dest), newDirs); err != nil {
			return nil, err
		}
		p := filepath.Join(e.Root, filepath.FromSlash(o.dest))
		if err := e.Fs.MkdirAll(filepath.Dir(p), userdata.DirPermNormal); err != nil {
			return nil, fmt.Errorf("creating directory for %s: %w", o.dest, err)
		}
		if err := afero.WriteFile(e.Fs, p, o.entry.Data, o.entry.Mode); err != nil {
			return nil, fmt.Errorf("writing %s: %w", o.dest, err)
		}
		res.Files = append(res.Files, o.dest)
	}

	for d := range newDirs {
		res.Dirs = append(res.Dirs, d)
	}
	SortDeepestFirst(res.Dirs)
	sort.Strings(res.Files)
	return res, nil
}

func (e *Extractor) resolveConflicts(ops []op) ([]op, error) {
	kept := ops[:0]
	for _, o := range ops {
		p := filepath.Join(e.Root, filepath.FromSlash(o.dest))
		if _, err := e.Fs.Stat(p); err != nil {
			if os.IsNotExist(err) {
				kept = append(kept, o)
				continue
			}
			return nil, fmt.Errorf("checking %s: %w", o.dest, err)
		}
		if e.OnConflict == nil {
			kept = append(kept, o)
			continue
		}
		res, err := e.OnConflict(o.dest)
		if err != nil {
			return nil, err
		}
		switch res {
		case Overwrite:
			kept = append(kept, o)
		case Skip:
			logging.Debug().Str("file", o.dest).Msg("keeping existing file")
		default:
			return nil, ErrAborted
		}
	}
	return kept, nil
}

// markNewDirs records dir and its ancestors below Root that do not exist yet.
func (e *Extractor) markNewDirs(dir string, seen map[string]bool) error {
	for dir != "." && dir != "/" && !seen[dir] {
		ok, err := afero.DirExists(e.Fs, filepath.Join(e.Root, filepath.FromSlash(dir)))
		if err != nil {
			return fmt.Errorf("checking %s: %w", dir, err)
		}
		if ok {
			return nil
		}
		seen[dir] = true
		dir = path.Dir(dir)
	}
	return nil
}

// SortDeepestFirst orders slash-separated paths so children precede their
// parents.
func SortDeepestFirst(dirs []string) {
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i]), depth(dirs[j])
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
}

func depth(p string) int {
	n := 0
	for _, c := range p {
		if c == '/' {
			n++
		}
	}
	return n
}
