package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

// Parse unmarshals manifest YAML. Schema problems are reported as a
// MissingRequiredKey contract error so callers can reject the module.
func Parse(data []byte, source string) (*ModuleManifest, error) {
	problems, err := schemaProblems(data)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", source, err)
	}
	if len(problems) > 0 {
		return nil, &ContractError{
			Kind:   MissingRequiredKey,
			Module: source,
			Detail: strings.Join(problems, "; "),
		}
	}

	var m ModuleManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", source, err)
	}
	return &m, nil
}

// Load reads <dir>/module.yaml from fsys and parses it. A missing file yields
// a MissingMetadata contract error.
func Load(fsys afero.Fs, dir string) (*ModuleManifest, error) {
	p := filepath.Join(dir, FileName)
	data, err := afero.ReadFile(fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ContractError{
				Kind:   MissingMetadata,
				Module: dir,
				Detail: "no " + FileName + " found",
			}
		}
		return nil, fmt.Errorf("reading file %s: %w", p, err)
	}
	return Parse(data, p)
}

// Exists reports whether dir contains a manifest file.
func Exists(fsys afero.Fs, dir string) bool {
	ok, err := afero.Exists(fsys, filepath.Join(dir, FileName))
	return err == nil && ok
}
