package userdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
)

// GitignoreEntries are the project paths that must never be committed.
func GitignoreEntries() []string {
	return []string{EnvFile, branding.BoxDir() + "/" + StateFile}
}

// EnsureGitignore appends every missing line to <projectRoot>/.gitignore,
// creating the file if needed. It returns the lines it added.
func EnsureGitignore(projectRoot string, lines []string) ([]string, error) {
	path := filepath.Join(projectRoot, ".gitignore")

	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading .gitignore: %w", err)
	}

	present := make(map[string]bool)
	for _, l := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(l)] = true
	}
	var added []string
	for _, l := range lines {
		if !present[l] {
			present[l] = true
			added = append(added, l)
		}
	}
	if len(added) == 0 {
		return nil, nil
	}

	// Ensure there's a newline before our addition.
	suffix := strings.Join(added, "\n") + "\n"
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		suffix = "\n" + suffix
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, FilePermNormal)
	if err != nil {
		return nil, fmt.Errorf("opening .gitignore for append: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(suffix); err != nil {
		return nil, fmt.Errorf("writing to .gitignore: %w", err)
	}
	return added, nil
}
