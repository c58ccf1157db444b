package manifest

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// libraryExts are the script extensions whose function declarations count
// as in-process routines.
var libraryExts = []string{".sh", ".bash"}

// IsLibrary reports whether rel is a module library file: a shell script at
// the module's top level that no command uses as its handler.
func IsLibrary(rel string, handlers map[string]bool) bool {
	if strings.Contains(rel, "/") || handlers[rel] {
		return false
	}
	ext := path.Ext(rel)
	for _, e := range libraryExts {
		if ext == e {
			return true
		}
	}
	return false
}

// ParseFunctions returns the names of all shell functions declared in src,
// in source order.
func ParseFunctions(src []byte, name string) ([]string, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(bytes.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	var names []string
	syntax.Walk(file, func(node syntax.Node) bool {
		if fn, ok := node.(*syntax.FuncDecl); ok {
			names = append(names, fn.Name.Value)
		}
		return true
	})
	return names, nil
}
