package registry

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/logging"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/manifest"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

// defaultScript is the stem of a directory module's default script.
const defaultScript = "default"

// Location is one directory the scanner visits.
type Location struct {
	Tier Tier
	// Dir is scanned for scripts and modules. Empty skips the disk part.
	Dir string
	// Builtins makes the location yield the built-in routines of the mode
	// before anything found in Dir.
	Builtins bool
	// RequireManifest accepts only manifest-described module directories.
	RequireManifest bool
}

// Layout returns the scan locations for mode, highest precedence first.
// projectRoot may be empty when no project is active, in which case the
// override tier is omitted.
func Layout(root, projectRoot string, mode userdata.Mode) []Location {
	var locs []Location
	if projectRoot != "" {
		locs = append(locs, Location{Tier: TierBoxOverride, Dir: userdata.OverrideDir(projectRoot)})
	}
	return append(locs,
		Location{Tier: TierProjectModule, Dir: userdata.ModuleDir(root, mode)},
		Location{Tier: TierCoreEmbedded, Dir: userdata.CoreModuleDir(root, mode), Builtins: true},
		Location{Tier: TierSharedManifest, Dir: userdata.SharedModuleDir(root), RequireManifest: true},
	)
}

// ScanResult is the ordered output of a scan.
type ScanResult struct {
	Candidates  []Candidate
	Rejections  []Rejection
	Diagnostics []Diagnostic
}

// Scanner enumerates command candidates. It never resolves conflicts; the
// Registry applies precedence to the ordered result.
type Scanner struct {
	Fs   afero.Fs
	Mode userdata.Mode
	// Routines supplies the built-in routines and satisfies manifest
	// dispatchers that are not shell functions. May be nil.
	Routines *Namespace
}

// Scan visits locs in order.
func (s *Scanner) Scan(locs []Location) *ScanResult {
	res := &ScanResult{}
	for _, loc := range locs {
		if loc.Builtins {
			for _, d := range builtinDescriptors(s.Routines, s.Mode) {
				res.Candidates = append(res.Candidates, Candidate{Tier: loc.Tier, Descriptor: d})
			}
		}
		if loc.Dir != "" {
			s.scanDir(loc, res)
		}
	}
	return res
}

func (s *Scanner) scanDir(loc Location, res *ScanResult) {
	entries, err := afero.ReadDir(s.Fs, loc.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug().Str("dir", loc.Dir).Str("tier", loc.Tier.String()).Msg("module directory absent")
			return
		}
		logging.Warn().Err(err).Str("dir", loc.Dir).Msg("skipping unreadable module directory")
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     "dir_unreadable",
			Message:  "module directory could not be read",
			Path:     loc.Dir,
			Cause:    err,
		})
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(loc.Dir, name)
		if entry.IsDir() {
			s.scanModule(loc, p, res)
			continue
		}
		if loc.RequireManifest || !isScript(entry) {
			continue
		}
		res.Candidates = append(res.Candidates, Candidate{
			Tier: loc.Tier,
			Descriptor: &Descriptor{
				Name:   stem(name),
				Kind:   KindScript,
				Target: p,
				Tier:   loc.Tier,
				Module: p,
			},
		})
	}
}

// scanModule handles one module directory.
func (s *Scanner) scanModule(loc Location, dir string, res *ScanResult) {
	if manifest.Exists(s.Fs, dir) {
		s.scanManifest(loc, dir, res)
		return
	}

	entries, err := afero.ReadDir(s.Fs, dir)
	if err != nil {
		logging.Warn().Err(err).Str("dir", dir).Msg("skipping unreadable module")
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Code:     "dir_unreadable",
			Message:  "module directory could not be read",
			Path:     dir,
			Cause:    err,
		})
		return
	}

	name := filepath.Base(dir)
	var scripts []os.FileInfo
	for _, entry := range entries {
		if !entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") && isScript(entry) {
			scripts = append(scripts, entry)
		}
	}
	if len(scripts) == 0 {
		return
	}

	if loc.RequireManifest {
		s.reject(loc, dir, []string{name}, &manifest.ContractError{
			Kind:   manifest.MissingMetadata,
			Module: dir,
			Detail: "no " + manifest.FileName + " found",
		}, res)
		return
	}

	d := &Descriptor{
		Name:        name,
		Kind:        KindDirectoryDefault,
		Tier:        loc.Tier,
		Module:      dir,
		Subcommands: make(map[string]*Descriptor),
	}
	for _, entry := range scripts {
		p := filepath.Join(dir, entry.Name())
		sub := stem(entry.Name())
		if sub == defaultScript {
			if d.Target == "" {
				d.Target = p
			}
			continue
		}
		if _, dup := d.Subcommands[sub]; dup {
			continue
		}
		d.Subcommands[sub] = &Descriptor{
			Name:   name + "." + sub,
			Kind:   KindDirectorySubcommand,
			Target: p,
			Tier:   loc.Tier,
			Module: dir,
			Parent: name,
		}
	}
	res.Candidates = append(res.Candidates, Candidate{Tier: loc.Tier, Descriptor: d})
}

// scanManifest validates a manifest module and yields its commands, or a
// rejection when any part of the contract fails.
func (s *Scanner) scanManifest(loc Location, dir string, res *ScanResult) {
	fallback := []string{filepath.Base(dir)}

	m, err := manifest.Load(s.Fs, dir)
	if err != nil {
		s.reject(loc, dir, fallback, err, res)
		return
	}
	contents, err := manifest.ReadContents(s.Fs, dir, m.HandlerPaths())
	if err != nil {
		s.reject(loc, dir, m.CommandNames(), err, res)
		return
	}
	if err := manifest.CheckContract(m, contents, s.Routines); err != nil {
		s.reject(loc, dir, m.CommandNames(), err, res)
		return
	}

	for _, name := range m.CommandNames() {
		spec := m.Commands[name]
		d := &Descriptor{
			Name:      name,
			Tier:      loc.Tier,
			Module:    dir,
			Synopsis:  spec.Synopsis,
			Libraries: contents.Libraries,
			HelpFunc:  m.Help,
		}
		if spec.Handler != "" {
			d.Kind = KindManifestHandler
			d.Target = filepath.Join(dir, filepath.FromSlash(spec.Handler))
		} else {
			d.Kind = KindManifestDispatcher
			d.Target = spec.Dispatcher
			d.Routes = spec.Routes
			_, isFunc := contents.Functions[spec.Dispatcher]
			d.Embedded = !isFunc
		}
		res.Candidates = append(res.Candidates, Candidate{Tier: loc.Tier, Descriptor: d})
	}
	logging.Debug().Str("module", m.ModuleName).Str("dir", dir).Int("commands", len(m.Commands)).Msg("manifest module loaded")
}

func (s *Scanner) reject(loc Location, dir string, commands []string, err error, res *ScanResult) {
	logging.Warn().Err(err).Str("dir", dir).Str("tier", loc.Tier.String()).Msg("rejecting module")
	res.Rejections = append(res.Rejections, Rejection{Tier: loc.Tier, Module: dir, Commands: commands, Err: err})
	res.Diagnostics = append(res.Diagnostics, Diagnostic{
		Severity: SeverityError,
		Code:     "module_rejected",
		Message:  err.Error(),
		Path:     dir,
		Cause:    err,
	})
}

// builtinDescriptors yields one Function descriptor per distinct built-in
// command name, in registration order.
func builtinDescriptors(ns *Namespace, mode userdata.Mode) []*Descriptor {
	var out []*Descriptor
	seen := make(map[string]bool)
	for _, r := range ns.ForMode(mode) {
		if r.Module != BuiltinModule || r.Kind != KindFunction || seen[r.Path[0]] {
			continue
		}
		seen[r.Path[0]] = true
		out = append(out, functionDescriptor(ns, r))
	}
	return out
}

// functionDescriptor describes the routine family r belongs to. The
// family's synopsis is the one of its bare [name] routine, if any.
func functionDescriptor(ns *Namespace, r *Routine) *Descriptor {
	name := r.Path[0]
	d := &Descriptor{
		Name:     name,
		Kind:     KindFunction,
		Target:   name,
		Tier:     TierCoreEmbedded,
		Module:   r.Module,
		Embedded: true,
	}
	for _, member := range ns.Family(r.Mode, r.Module, name) {
		if len(member.Path) == 1 {
			d.Synopsis = member.Synopsis
			break
		}
	}
	return d
}

// isScript reports whether a file is runnable: a known script extension or
// any executable bit.
func isScript(info os.FileInfo) bool {
	return runtime.IsScriptName(info.Name()) || info.Mode().Perm()&0o111 != 0
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
