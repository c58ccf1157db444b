package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/module.schema.json
var schemaBytes []byte

const schemaURL = "module.schema.json"

var (
	loadSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			return nil, err
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			return nil, err
		}
		return c.Compile(schemaURL)
	})
	printer = message.NewPrinter(language.English)
)

// schemaProblems checks manifest YAML against the module schema and returns
// one "location: message" line per failing leaf, in schema order. The error
// is reserved for YAML that cannot be read at all.
func schemaProblems(data []byte) ([]string, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("module schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// jsonschema wants json.Number, not the ints yaml produces.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	var ve *jsonschema.ValidationError
	if err := schema.Validate(inst); !errors.As(err, &ve) {
		return nil, err
	}

	var out []string
	seen := map[string]bool{}
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		for _, c := range e.Causes {
			walk(c)
		}
		if len(e.Causes) > 0 || e.ErrorKind == nil {
			return
		}
		kw := e.ErrorKind.KeywordPath()
		if len(kw) == 0 || kw[len(kw)-1] == "allOf" || kw[len(kw)-1] == "$ref" {
			return
		}
		line := e.ErrorKind.LocalizedString(printer)
		if len(e.InstanceLocation) > 0 {
			line = "/" + strings.Join(e.InstanceLocation, "/") + ": " + line
		}
		if !seen[line] {
			seen[line] = true
			out = append(out, line)
		}
	}
	walk(ve)
	if len(out) == 0 {
		out = append(out, ve.Error())
	}
	return out, nil
}
