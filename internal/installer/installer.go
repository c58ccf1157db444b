// Package installer runs the package workflow: catalog lookup, download,
// extraction with conflict prompts, state recording and .env merging.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/catalog"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/extract"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/prompt"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/render"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/state"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

var (
	// ErrNotInstalled is returned when removing a package with no record.
	ErrNotInstalled = errors.New("package is not installed")
	// ErrCancelled is returned when the user declines a reinstall.
	ErrCancelled = errors.New("installation cancelled")
)

// Fetcher downloads an artifact into the cache and returns its path.
type Fetcher interface {
	Download(ctx context.Context, url, cacheKey, sourceKind string) (string, error)
}

// Installer installs packages into Root.
type Installer struct {
	Fs      afero.Fs
	Catalog *catalog.Catalog
	Fetcher Fetcher
	State   *state.Store
	// Root is where copy-rule destinations are resolved.
	Root string
	// EnvPath is the .env file receiving package variables.
	EnvPath string
	Prompt  *prompt.Prompter
	Out     io.Writer
	// Vars feed {{TOKEN}} placeholders in catalog env values.
	Vars map[string]string

	now func() time.Time
}

// Options tune a single install.
type Options struct {
	// Force reinstalls without asking.
	Force bool
}

func (i *Installer) out() io.Writer {
	if i.Out != nil {
		return i.Out
	}
	return io.Discard
}

func (i *Installer) timestamp() time.Time {
	if i.now != nil {
		return i.now()
	}
	return time.Now().UTC()
}

// Install installs the named package and returns its new record.
func (i *Installer) Install(ctx context.Context, name string, opts Options) (*state.Record, error) {
	pkg, err := i.Catalog.Get(name)
	if err != nil {
		return nil, err
	}
	rules, err := pkg.CopyRules()
	if err != nil {
		return nil, err
	}

	prev, installed := i.State.Get(name)
	if installed && prev.Installed && !opts.Force {
		question := fmt.Sprintf("%s %s is already installed. Reinstall?", name, prev.Version)
		if catalog.IsUpgrade(prev.Version, pkg.Version) {
			question = fmt.Sprintf("%s %s is installed, %s is available. Upgrade?", name, prev.Version, pkg.Version)
		}
		ok, err := i.Prompt.Confirm(question, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCancelled
		}
	}

	fmt.Fprintf(i.out(), "Downloading %s %s\n", name, pkg.Version)
	archive, err := i.Fetcher.Download(ctx, pkg.URL, pkg.CacheKey(), pkg.Source)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]bool)
	if installed {
		for _, f := range prev.Files {
			owned[f] = true
		}
	}
	ex := &extract.Extractor{
		Fs:   i.Fs,
		Root: i.Root,
		OnConflict: func(rel string) (extract.Resolution, error) {
			if owned[rel] {
				return extract.Overwrite, nil
			}
			return i.askConflict(rel)
		},
	}
	res, err := ex.Extract(archive, rules)
	if err != nil {
		return nil, fmt.Errorf("installing %s: %w", name, err)
	}

	envs := render.Merge(res.Envs)
	vars := render.Merge(i.Vars, res.Envs)
	for k, v := range pkg.Env {
		envs[k] = render.Render(v, vars)
	}

	rec := &state.Record{
		Name:        name,
		Version:     pkg.Version,
		Installed:   true,
		Files:       res.Files,
		Dirs:        res.Dirs,
		Envs:        envs,
		InstalledAt: i.timestamp(),
	}
	if installed {
		rec.Files = i.mergeFiles(prev.Files, res.Files)
		rec.Dirs = mergeDirs(prev.Dirs, res.Dirs)
	}
	if err := i.State.Set(rec); err != nil {
		return nil, err
	}
	if len(envs) > 0 {
		if err := userdata.MergeEnvFile(i.EnvPath, envs); err != nil {
			return nil, fmt.Errorf("updating %s: %w", i.EnvPath, err)
		}
	}

	logging.Info().Str("package", name).Int("files", len(rec.Files)).Msg("package installed")
	fmt.Fprintf(i.out(), "Installed %s %s (%d files)\n", name, pkg.Version, len(rec.Files))
	return rec, nil
}

func (i *Installer) askConflict(rel string) (extract.Resolution, error) {
	choice, err := i.Prompt.Choose(rel+" already exists", []prompt.Choice{
		{Key: 'o', Label: "overwrite"},
		{Key: 's', Label: "skip"},
		{Key: 'a', Label: "abort"},
	}, 's')
	if err != nil {
		return extract.Abort, err
	}
	switch choice {
	case 'o':
		return extract.Overwrite, nil
	case 's':
		return extract.Skip, nil
	default:
		return extract.Abort, nil
	}
}

// Remove deletes the package's recorded files, then its recorded
// directories once empty, then its env keys and state record.
func (i *Installer) Remove(name string) error {
	rec, ok := i.State.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}

	for _, f := range rec.Files {
		p := filepath.Join(i.Root, filepath.FromSlash(f))
		if err := i.Fs.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", f, err)
		}
	}
	dirs := append([]string(nil), rec.Dirs...)
	extract.SortDeepestFirst(dirs)
	for _, d := range dirs {
		p := filepath.Join(i.Root, filepath.FromSlash(d))
		empty, err := afero.IsEmpty(i.Fs, p)
		if err != nil || !empty {
			continue
		}
		if err := i.Fs.Remove(p); err != nil {
			logging.Debug().Err(err).Str("dir", d).Msg("keeping directory")
		}
	}

	if len(rec.Envs) > 0 {
		keys := make([]string, 0, len(rec.Envs))
		for k := range rec.Envs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if err := userdata.RemoveEnvKeys(i.EnvPath, keys); err != nil {
			return fmt.Errorf("updating %s: %w", i.EnvPath, err)
		}
	}
	if err := i.State.Remove(name); err != nil {
		return err
	}
	fmt.Fprintf(i.out(), "Removed %s\n", name)
	return nil
}

// Problem is a state inconsistency found by Validate.
type Problem struct {
	Package string
	Missing []string
}

// Validate checks that every recorded file still exists.
func (i *Installer) Validate() []Problem {
	var problems []Problem
	for _, rec := range i.State.LoadAll() {
		if missing := state.Missing(i.Fs, i.Root, rec); len(missing) > 0 {
			problems = append(problems, Problem{Package: rec.Name, Missing: missing})
		}
	}
	return problems
}

// mergeFiles keeps previously installed files that are still on disk so a
// later remove deletes them too.
func (i *Installer) mergeFiles(prev, cur []string) []string {
	seen := make(map[string]bool, len(cur))
	out := append([]string(nil), cur...)
	for _, f := range cur {
		seen[f] = true
	}
	for _, f := range prev {
		if seen[f] {
			continue
		}
		if ok, _ := afero.Exists(i.Fs, filepath.Join(i.Root, filepath.FromSlash(f))); ok {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func mergeDirs(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{a, b} {
		for _, d := range list {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	extract.SortDeepestFirst(out)
	return out
}
