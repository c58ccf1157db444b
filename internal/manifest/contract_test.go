package manifest

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
)

type fakeRoutines map[string]bool

func (f fakeRoutines) HasRoutine(name string) bool { return f[name] }

func writeModule(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, body := range files {
		if err := afero.WriteFile(fsys, "/mod/"+name, []byte(body), 0755); err != nil {
			t.Fatal(err)
		}
	}
	return fsys
}

func checkModule(t *testing.T, files map[string]string, routines RoutineLookup) error {
	t.Helper()
	fsys := writeModule(t, files)
	m, err := Load(fsys, "/mod")
	if err != nil {
		return err
	}
	contents, err := ReadContents(fsys, "/mod", m.HandlerPaths())
	if err != nil {
		t.Fatalf("ReadContents: %v", err)
	}
	return CheckContract(m, contents, routines)
}

func TestCheckContract(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		routines fakeRoutines
		want     ContractKind // 0 means valid
	}{
		{
			name: "valid handler and dispatcher",
			files: map[string]string{
				"module.yaml":  "module_name: m\ncommands:\n  build:\n    handler: bin/build.sh\n  route:\n    dispatcher: route_main\nprivate_functions: [helper]\n",
				"bin/build.sh": "echo build\n",
				"lib.sh":       "route_main() { helper; }\nhelper() { echo hi; }\n",
			},
			want: 0,
		},
		{
			name: "dispatcher served by process routine",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  pkg:\n    dispatcher: pkg\n",
			},
			routines: fakeRoutines{"pkg": true},
			want:     0,
		},
		{
			name: "both handler and dispatcher",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    handler: a.sh\n    dispatcher: a_main\n",
				"a.sh":        "a_main() { :; }\n",
			},
			want: HandlerDispatcherConflict,
		},
		{
			name: "neither handler nor dispatcher",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    synopsis: nothing\n",
			},
			want: HandlerDispatcherConflict,
		},
		{
			name: "handler file missing",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    handler: bin/a.sh\n",
			},
			want: MissingEntrypoint,
		},
		{
			name: "dispatcher not loaded",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    dispatcher: nowhere\n",
				"lib.sh":      "# no functions\n",
			},
			want: MissingEntrypoint,
		},
		{
			name: "help function missing",
			files: map[string]string{
				"module.yaml": "module_name: m\nhelp: m_help\ncommands:\n  a:\n    dispatcher: a_main\n",
				"lib.sh":      "a_main() { :; }\n",
			},
			want: MissingEntrypoint,
		},
		{
			name: "secret function",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    dispatcher: a_main\n",
				"lib.sh":      "a_main() { :; }\nbackdoor() { rm -rf /; }\n",
			},
			want: UndeclaredFunction,
		},
		{
			name: "handler scripts are not libraries",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    handler: a.sh\n",
				"a.sh":        "inner() { :; }\ninner\n",
			},
			want: 0,
		},
		{
			name: "dot-slash handler is not a library",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    handler: ./run.sh\n",
				"run.sh":      "usage() { :; }\nusage\n",
			},
			want: 0,
		},
		{
			name: "hidden library is ignored",
			files: map[string]string{
				"module.yaml": "module_name: m\ncommands:\n  a:\n    dispatcher: a_main\n",
				".lib.sh":     "a_main() { :; }\n",
			},
			want: MissingEntrypoint,
		},
		{
			name: "missing manifest",
			files: map[string]string{
				"lib.sh": "a_main() { :; }\n",
			},
			want: MissingMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkModule(t, tt.files, tt.routines)
			if tt.want == 0 {
				if err != nil {
					t.Fatalf("expected valid module, got %v", err)
				}
				return
			}
			var ce *ContractError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ContractError %s, got %v", tt.want, err)
			}
			if ce.Kind != tt.want {
				t.Errorf("Kind = %s, want %s (%v)", ce.Kind, tt.want, ce)
			}
		})
	}
}

func TestReadContents_Libraries(t *testing.T) {
	fsys := writeModule(t, map[string]string{
		"module.yaml": "module_name: m\ncommands:\n  a:\n    handler: a.sh\n",
		"a.sh":        "handler_only() { :; }\n",
		"lib.sh":      "one() { :; }\nfunction two { :; }\n",
		"nested/x.sh": "nested_fn() { :; }\n",
		"README.md":   "docs",
		".secret.sh":  "secret() { :; }\n",
	})

	c, err := ReadContents(fsys, "/mod", map[string]bool{"a.sh": true})
	if err != nil {
		t.Fatalf("ReadContents: %v", err)
	}
	if len(c.Libraries) != 1 || c.Libraries[0] != "lib.sh" {
		t.Errorf("Libraries = %v, want [lib.sh]", c.Libraries)
	}
	for _, fn := range []string{"one", "two"} {
		if c.Functions[fn] != "lib.sh" {
			t.Errorf("function %s not attributed to lib.sh: %v", fn, c.Functions)
		}
	}
	if _, ok := c.Functions["secret"]; ok {
		t.Error("hidden files must not be listed")
	}
	if _, ok := c.Functions["handler_only"]; ok {
		t.Error("handler functions must not be listed")
	}
	if !c.HasFile("nested/x.sh") || c.HasFile("missing.sh") || c.HasFile(".secret.sh") {
		t.Errorf("HasFile mismatch, files = %v", c.Files)
	}
}

func TestContractError_Message(t *testing.T) {
	err := &ContractError{Kind: HandlerDispatcherConflict, Module: "/m", Command: "a", Detail: "both handler and dispatcher set"}
	want := `module /m: handler_dispatcher_conflict (command "a"): both handler and dispatcher set`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
