package extract

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Kind says how matched entries are laid out under the destination.
type Kind string

const (
	// KindFile copies each match directly into the destination directory.
	KindFile Kind = "file"
	// KindDir copies matches keeping their path below the pattern's base.
	KindDir Kind = "dir"
)

// Rule is a parsed copy rule.
type Rule struct {
	Kind    Kind
	Pattern string
	// Dest is slash-separated and relative to the install root.
	Dest   string
	EnvVar string
}

// ParseRule parses "kind:pattern:destination[:ENV_VAR]".
func ParseRule(raw string) (Rule, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return Rule{}, fmt.Errorf("copy rule %q: want kind:pattern:destination[:ENV_VAR]", raw)
	}
	r := Rule{Kind: Kind(parts[0]), Pattern: parts[1], Dest: path.Clean(parts[2])}
	if len(parts) == 4 {
		r.EnvVar = parts[3]
	}

	switch r.Kind {
	case KindFile, KindDir:
	default:
		return Rule{}, fmt.Errorf("copy rule %q: unknown kind %q", raw, parts[0])
	}
	if r.Pattern == "" || !doublestar.ValidatePattern(r.Pattern) {
		return Rule{}, fmt.Errorf("copy rule %q: invalid pattern %q", raw, r.Pattern)
	}
	if path.IsAbs(r.Dest) || r.Dest == ".." || strings.HasPrefix(r.Dest, "../") {
		return Rule{}, fmt.Errorf("copy rule %q: destination must stay inside the install root", raw)
	}
	return r, nil
}

// String renders the rule in its textual form.
func (r Rule) String() string {
	s := string(r.Kind) + ":" + r.Pattern + ":" + r.Dest
	if r.EnvVar != "" {
		s += ":" + r.EnvVar
	}
	return s
}

// target returns where entry lands under the rule, or false when the entry
// does not match.
func (r Rule) target(entry string) (string, bool, error) {
	ok, err := doublestar.Match(r.Pattern, entry)
	if err != nil {
		return "", false, fmt.Errorf("matching %s: %w", r.Pattern, err)
	}
	if !ok {
		return "", false, nil
	}
	if r.Kind == KindFile {
		return path.Join(r.Dest, path.Base(entry)), true, nil
	}
	base, _ := doublestar.SplitPattern(r.Pattern)
	rel := entry
	if base != "." {
		rel = strings.TrimPrefix(entry, base+"/")
	}
	return path.Join(r.Dest, rel), true, nil
}
