package userdata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// EnvEntry represents a single key-value pair from a .env file.
type EnvEntry struct {
	Key   string
	Value string
}

// ReadEnvFile reads a .env file into a map. A missing file yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return vars, nil
}

// ParseEnvFile reads a .env file and returns its entries sorted by key.
func ParseEnvFile(path string) ([]EnvEntry, error) {
	vars, err := ReadEnvFile(path)
	if err != nil {
		return nil, err
	}
	entries := make([]EnvEntry, 0, len(vars))
	for k, v := range vars {
		entries = append(entries, EnvEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// WriteEnvFile replaces the contents of a .env file with vars.
func WriteEnvFile(path string, vars map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPermNormal); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := godotenv.Write(vars, path); err != nil {
		return fmt.Errorf("writing env file %s: %w", path, err)
	}
	// .env files hold tokens; keep them owner-only.
	return chmod(path, FilePermSecure)
}

// chmod sets permissions. Windows has no Unix permission bits, so it is a
// no-op there.
func chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// MergeEnvFile sets every key of vars in the .env file, keeping other keys.
func MergeEnvFile(path string, vars map[string]string) error {
	if len(vars) == 0 {
		return nil
	}
	current, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	for k, v := range vars {
		current[k] = v
	}
	return WriteEnvFile(path, current)
}

// RemoveEnvKeys deletes keys from the .env file. A missing file is not an error.
func RemoveEnvKeys(path string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	current, err := ReadEnvFile(path)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		return nil
	}
	for _, k := range keys {
		delete(current, k)
	}
	return WriteEnvFile(path, current)
}

// sensitivePatterns are substrings that indicate a value should be redacted.
var sensitivePatterns = []string{"TOKEN", "SECRET", "PASSWORD", "KEY", "CREDENTIAL"}

// RedactValue returns a redacted version of value if the key name contains
// a sensitive pattern (case-insensitive substring match).
// Values with 4+ chars show the first 4 chars + "***".
// Values with fewer than 4 chars are fully redacted as "***".
func RedactValue(key, value string) string {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(upper, pattern) {
			if len(value) >= 4 {
				return value[:4] + "***"
			}
			return "***"
		}
	}
	return value
}
