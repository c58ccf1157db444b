package userdata

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
)

// Directory and file name constants for the tool layout.
const (
	ModulesDir   = "modules"
	CoreDir      = "core"
	SharedDir    = "shared"
	TemplatesDir = "templates"
	CacheDir     = "cache"
	CommandsDir  = "commands"
	StateFile    = "state.json"
	EnvFile      = ".env"
	CatalogFile  = "packages.toml"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
	FilePermSecure os.FileMode = 0600
)

// GetHomeRoot returns ~/.devbox.
func GetHomeRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// GetToolRoot returns the directory holding modules/, core/, shared/ and
// templates/. It checks the DEVBOX_ROOT environment variable first, then
// falls back to ~/.devbox.
func GetToolRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("ROOT")); v != "" {
		return v, nil
	}
	return GetHomeRoot()
}

// GetCacheDir returns the download cache directory.
// DEVBOX_CACHE overrides ~/.devbox/cache.
func GetCacheDir() (string, error) {
	if v := os.Getenv(branding.EnvVar("CACHE")); v != "" {
		return v, nil
	}
	root, err := GetHomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, CacheDir), nil
}

// ModuleDir returns <root>/modules/<mode>.
func ModuleDir(root string, m Mode) string {
	return filepath.Join(root, ModulesDir, m.String())
}

// CoreModuleDir returns <root>/core/<mode>.
func CoreModuleDir(root string, m Mode) string {
	return filepath.Join(root, CoreDir, m.String())
}

// SharedModuleDir returns <root>/shared.
func SharedModuleDir(root string) string {
	return filepath.Join(root, SharedDir)
}

// TemplateDir returns <root>/templates/<mode>.
func TemplateDir(root string, m Mode) string {
	return filepath.Join(root, TemplatesDir, m.String())
}

// CatalogPath returns <root>/packages.toml.
func CatalogPath(root string) string {
	return filepath.Join(root, CatalogFile)
}

// FindProjectRoot walks up from dir looking for a .box directory and returns
// the first ancestor that has one. If none is found, dir itself is returned.
func FindProjectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for cur := abs; ; {
		if fi, err := os.Stat(filepath.Join(cur, branding.BoxDir())); err == nil && fi.IsDir() {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs
		}
		cur = parent
	}
}

// BoxDir returns <project>/.box.
func BoxDir(projectRoot string) string {
	return filepath.Join(projectRoot, branding.BoxDir())
}

// OverrideDir returns <project>/.box/commands, the highest-precedence
// command location.
func OverrideDir(projectRoot string) string {
	return filepath.Join(BoxDir(projectRoot), CommandsDir)
}

// StatePath returns the package state file for the mode. Global state lives
// in ~/.devbox/state.json, project state in <project>/.box/state.json.
func StatePath(m Mode, projectRoot string) (string, error) {
	if m == ModeProject {
		return filepath.Join(BoxDir(projectRoot), StateFile), nil
	}
	root, err := GetHomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, StateFile), nil
}

// InstallRoot returns where packages are extracted for the mode.
func InstallRoot(m Mode, projectRoot string) (string, error) {
	if m == ModeProject {
		return projectRoot, nil
	}
	return GetHomeRoot()
}

// EnvPath returns the .env file that receives package env vars for the mode.
func EnvPath(m Mode, projectRoot string) (string, error) {
	if m == ModeProject {
		return filepath.Join(projectRoot, EnvFile), nil
	}
	root, err := GetHomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, EnvFile), nil
}
