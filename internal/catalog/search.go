package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Match is a search hit.
type Match struct {
	Package *Package
	Score   int
}

// searchSource exposes "name description" strings to the fuzzy matcher.
type searchSource []*Package

func (s searchSource) String(i int) string {
	return s[i].Name + " " + s[i].Description
}

func (s searchSource) Len() int { return len(s) }

// Search fuzzy-matches query against package names and descriptions, best
// matches first. An empty query returns every package by name.
func (c *Catalog) Search(query string) []Match {
	pkgs := make(searchSource, 0, len(c.Packages))
	for _, name := range c.Names() {
		pkgs = append(pkgs, c.Packages[name])
	}

	query = strings.TrimSpace(query)
	if query == "" {
		out := make([]Match, len(pkgs))
		for i, p := range pkgs {
			out[i] = Match{Package: p}
		}
		return out
	}

	results := fuzzy.FindFrom(query, pkgs)
	out := make([]Match, len(results))
	for i, r := range results {
		out[i] = Match{Package: pkgs[r.Index], Score: r.Score}
	}
	return out
}
