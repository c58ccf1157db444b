// Package branding provides compile-time identity values for the CLIs.
//
// branding.yaml is embedded into the binary with //go:embed; forks edit it
// before building to rename the tools, home directory, and env prefix.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	GlobalCLIName  string `yaml:"global_cli_name"`
	ProjectCLIName string `yaml:"project_cli_name"`
	DisplayName    string `yaml:"display_name"`
	Description    string `yaml:"description"`
	HomeDir        string `yaml:"home_dir"`
	BoxDir         string `yaml:"box_dir"`
	EnvPrefix      string `yaml:"env_prefix"`
	BundleFile     string `yaml:"bundle_file"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			GlobalCLIName:  "devbox",
			ProjectCLIName: "box",
			DisplayName:    "DevBox Foundry",
			Description:    "Bootstraps and maintains local development environments",
			HomeDir:        ".devbox",
			BoxDir:         ".box",
			EnvPrefix:      "DEVBOX",
			BundleFile:     "devbox.bundle",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// GlobalCLIName returns the global manager's command name (e.g., "devbox").
func GlobalCLIName() string { load(); return defaults.GlobalCLIName }

// ProjectCLIName returns the per-project manager's command name (e.g., "box").
func ProjectCLIName() string { load(); return defaults.ProjectCLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".devbox").
func HomeDir() string { load(); return defaults.HomeDir }

// BoxDir returns the hidden per-project directory name (e.g., ".box").
func BoxDir() string { load(); return defaults.BoxDir }

// EnvPrefix returns the environment variable prefix (e.g., "DEVBOX").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// BundleFile returns the default file name of a pre-assembled module bundle.
func BundleFile() string { load(); return defaults.BundleFile }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("root") → "DEVBOX_ROOT".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
