package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys read by the managers.
const (
	KeyRoot            = "root"
	KeyBundle          = "bundle"
	KeyLogLevel        = "log.level"
	KeyLogPretty       = "log.pretty"
	KeyDownloadRetries = "download.retries"
	KeyDownloadTimeout = "download.timeout"
	KeyInterpreters    = "interpreters"

	defaultRetries  = 4
	defaultTimeout  = 5 * time.Minute
	defaultLogLevel = "warn"
)

// Dir returns the path to the config directory (~/.devbox/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.devbox/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	viper.SetDefault(KeyLogLevel, defaultLogLevel)
	viper.SetDefault(KeyLogPretty, true)
	viper.SetDefault(KeyDownloadRetries, defaultRetries)
	viper.SetDefault(KeyDownloadTimeout, defaultTimeout)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// LogLevel returns the configured log level name.
func LogLevel() string { return viper.GetString(KeyLogLevel) }

// LogPretty reports whether console log formatting is enabled.
func LogPretty() bool { return viper.GetBool(KeyLogPretty) }

// DownloadRetries returns how many times a failed download is retried.
func DownloadRetries() int {
	if n := viper.GetInt(KeyDownloadRetries); n >= 0 {
		return n
	}
	return defaultRetries
}

// DownloadTimeout returns the per-attempt HTTP timeout.
func DownloadTimeout() time.Duration {
	if d := viper.GetDuration(KeyDownloadTimeout); d > 0 {
		return d
	}
	return defaultTimeout
}

// Interpreters returns the extension → interpreter command overrides, e.g.
// {"ps1": "pwsh -NoProfile -File"}.
func Interpreters() map[string]string {
	return viper.GetStringMapString(KeyInterpreters)
}

// Keys returns every known key with its current value, sorted by key.
func Keys() [][2]string {
	keys := viper.AllKeys()
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, viper.GetString(k)})
	}
	return out
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
