// Package render substitutes {{TOKEN}} placeholders in configuration
// templates.
package render

import (
	"regexp"
	"sort"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Render replaces every {{TOKEN}} whose name is in vars. Unknown tokens are
// left untouched so a later pass, or the reader, can see them.
func Render(template string, vars map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := tokenPattern.FindStringSubmatch(m)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Missing returns the distinct token names in template that vars does not
// define, sorted.
func Missing(template string, vars map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range tokenPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if _, ok := vars[name]; ok || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Merge combines variable sources. Later sources override earlier ones.
func Merge(sources ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}
