package scaffold

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/prompt"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/render"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

//go:embed defaults
var defaultsFS embed.FS

// templateExt marks files that are rendered rather than copied.
const templateExt = ".tmpl"

// Defaults returns the built-in project templates.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// Source returns the templates under dir, or the built-in set when dir
// does not exist.
func Source(fsys afero.Fs, dir string) fs.FS {
	if ok, _ := afero.DirExists(fsys, dir); ok {
		return afero.NewIOFS(afero.NewBasePathFs(fsys, dir))
	}
	return Defaults()
}

// Action is what happened to one generated file.
type Action int

const (
	Created Action = iota
	Updated
	Unchanged
	Skipped
)

func (a Action) String() string {
	switch a {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	default:
		return "skipped"
	}
}

// File is the outcome for one output path, relative to the destination.
type File struct {
	Path   string
	Action Action
}

// Result holds the outcome of a generation.
type Result struct {
	Files []File
	// Warnings name templates that reference unknown tokens.
	Warnings []string
}

// Count returns how many files ended with action a.
func (r *Result) Count(a Action) int {
	n := 0
	for _, f := range r.Files {
		if f.Action == a {
			n++
		}
	}
	return n
}

// Generator renders Templates into a destination directory on Fs.
type Generator struct {
	Fs        afero.Fs
	Templates fs.FS
	Vars      map[string]string
	// Prompt confirms overwrites. Nil skips every differing file.
	Prompt *prompt.Prompter
	// Out receives diffs.
	Out io.Writer
}

// Generate renders every template into dest.
func (g *Generator) Generate(dest string) (*Result, error) {
	res := &Result{}
	err := fs.WalkDir(g.Templates, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(g.Templates, name)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", name, err)
		}

		out := name
		if strings.HasSuffix(name, templateExt) {
			out = strings.TrimSuffix(name, templateExt)
			text := string(data)
			if missing := render.Missing(text, g.Vars); len(missing) > 0 {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s: unknown tokens %s", name, strings.Join(missing, ", ")))
			}
			data = []byte(render.Render(text, g.Vars))
		}
		out = filepath.ToSlash(filepath.Clean(out))

		action, err := g.write(filepath.Join(dest, filepath.FromSlash(out)), out, data)
		if err != nil {
			return err
		}
		res.Files = append(res.Files, File{Path: out, Action: action})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	return res, nil
}

func (g *Generator) write(target, rel string, data []byte) (Action, error) {
	current, err := afero.ReadFile(g.Fs, target)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := g.Fs.MkdirAll(filepath.Dir(target), userdata.DirPermNormal); err != nil {
			return Skipped, fmt.Errorf("creating directory for %s: %w", rel, err)
		}
		if err := afero.WriteFile(g.Fs, target, data, userdata.FilePermNormal); err != nil {
			return Skipped, fmt.Errorf("writing %s: %w", rel, err)
		}
		return Created, nil
	case err != nil:
		return Skipped, fmt.Errorf("reading %s: %w", rel, err)
	case bytes.Equal(current, data):
		return Unchanged, nil
	}

	if g.Out != nil {
		fmt.Fprint(g.Out, Diff(rel, string(current), string(data)))
	}
	if g.Prompt == nil {
		return Skipped, nil
	}
	ok, err := g.Prompt.Confirm(fmt.Sprintf("Overwrite %s?", rel), false)
	if err != nil {
		return Skipped, err
	}
	if !ok {
		return Skipped, nil
	}
	if err := afero.WriteFile(g.Fs, target, data, userdata.FilePermNormal); err != nil {
		return Skipped, fmt.Errorf("writing %s: %w", rel, err)
	}
	return Updated, nil
}

// Vars returns the tokens every project template may use. Values from env
// override the defaults.
func Vars(projectRoot, name string, env map[string]string, now time.Time) map[string]string {
	if name == "" {
		name = filepath.Base(projectRoot)
	}
	return render.Merge(map[string]string{
		"PROJECT_NAME": name,
		"PROJECT_ROOT": projectRoot,
		"BOX_DIR":      branding.BoxDir(),
		"TOOL_NAME":    branding.DisplayName(),
		"DATE":         now.Format("2006-01-02"),
		"YEAR":         now.Format("2006"),
	}, env)
}

// Prepare creates the project skeleton: the box directory, its commands
// directory and an empty .env. Existing entries are kept. It returns the
// paths it created, relative to root.
func Prepare(fsys afero.Fs, root string) ([]string, error) {
	var created []string
	for _, dir := range []string{userdata.BoxDir(root), userdata.OverrideDir(root)} {
		if ok, _ := afero.DirExists(fsys, dir); ok {
			continue
		}
		if err := fsys.MkdirAll(dir, userdata.DirPermNormal); err != nil {
			return created, fmt.Errorf("creating %s: %w", dir, err)
		}
		created = append(created, relTo(root, dir))
	}

	env := filepath.Join(root, userdata.EnvFile)
	if ok, _ := afero.Exists(fsys, env); !ok {
		if err := afero.WriteFile(fsys, env, nil, userdata.FilePermSecure); err != nil {
			return created, fmt.Errorf("creating %s: %w", env, err)
		}
		created = append(created, relTo(root, env))
	}
	return created, nil
}

func relTo(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}
