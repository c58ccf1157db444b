package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/extract"
)

// ErrNotFound is returned when a package is not in the catalog.
var ErrNotFound = errors.New("package not found in catalog")

// Package is one installable catalog entry.
type Package struct {
	Name        string `toml:"-"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	URL         string `toml:"url"`
	// Source selects the download transport ("http" or "file"). Empty
	// means it is derived from the URL.
	Source string   `toml:"source"`
	Rules  []string `toml:"rules"`
	Tags   []string `toml:"tags"`
	// Env holds extra variables written to .env on install. Values may use
	// {{TOKEN}} placeholders.
	Env map[string]string `toml:"env"`
}

// CopyRules parses the package's copy rules.
func (p *Package) CopyRules() ([]extract.Rule, error) {
	rules := make([]extract.Rule, 0, len(p.Rules))
	for _, raw := range p.Rules {
		r, err := extract.ParseRule(raw)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", p.Name, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// CacheKey identifies the package's archive in the download cache.
func (p *Package) CacheKey() string {
	if p.Version == "" {
		return p.Name
	}
	return p.Name + "-" + p.Version
}

// Catalog is the set of known packages.
type Catalog struct {
	Packages map[string]*Package `toml:"packages"`
}

// Parse decodes catalog TOML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	meta, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing catalog: unknown keys %s", strings.Join(keys, ", "))
	}
	if c.Packages == nil {
		c.Packages = make(map[string]*Package)
	}
	for name, p := range c.Packages {
		p.Name = name
		if p.URL == "" {
			return nil, fmt.Errorf("parsing catalog: package %s has no url", name)
		}
		if _, err := p.CopyRules(); err != nil {
			return nil, fmt.Errorf("parsing catalog: %w", err)
		}
	}
	return &c, nil
}

// Load reads and parses the catalog at path.
func Load(fsys afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Get returns the named package.
func (c *Catalog) Get(name string) (*Package, error) {
	p, ok := c.Packages[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Names returns all package names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Packages))
	for name := range c.Packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
