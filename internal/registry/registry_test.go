package registry

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/runtime"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

func noopRoutine(context.Context, runtime.Invocation) error { return nil }

func TestRegistry_WriteOnce(t *testing.T) {
	reg := New()
	first := &Descriptor{Name: "build", Kind: KindScript, Target: "/a/build.sh", Module: "/a/build.sh"}
	second := &Descriptor{Name: "build", Kind: KindScript, Target: "/b/build.sh", Module: "/b/build.sh"}

	if err := reg.Add(Candidate{Tier: TierProjectModule, Descriptor: first}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Add(Candidate{Tier: TierCoreEmbedded, Descriptor: second}); err != nil {
		t.Fatal(err)
	}

	if got, _ := reg.Lookup("build"); got != first {
		t.Errorf("Lookup(build) = %+v, want first descriptor", got)
	}
	if reg.LoadedModules["build"] != "/a/build.sh" {
		t.Errorf("LoadedModules[build] = %q", reg.LoadedModules["build"])
	}
}

func TestRegistry_Sealed(t *testing.T) {
	reg := New()
	reg.Seal()
	err := reg.Add(Candidate{Descriptor: &Descriptor{Name: "x"}})
	if !errors.Is(err, ErrRegistrySealed) {
		t.Errorf("Add after Seal error = %v, want ErrRegistrySealed", err)
	}
}

func TestRegistry_RejectionHiddenByEntry(t *testing.T) {
	reg := New()
	reg.Reject(Rejection{Module: "/m", Commands: []string{"a", "b"}, Err: errors.New("bad")})
	_ = reg.Add(Candidate{Descriptor: &Descriptor{Name: "a", Module: "/other"}})

	if _, ok := reg.Rejection("a"); ok {
		t.Error("a has an entry, Rejection should not report it")
	}
	if _, ok := reg.Rejection("b"); !ok {
		t.Error("b should be reported as rejected")
	}
}

func TestNamespace_Register(t *testing.T) {
	ns := NewNamespace()
	r := Routine{Mode: userdata.ModeGlobal, Path: []string{"pkg", "install"}, Module: BuiltinModule, Run: noopRoutine}
	if err := ns.Register(r); err != nil {
		t.Fatal(err)
	}
	if !ns.HasRoutine("invoke-global-pkg-install") {
		t.Error("routine not found under its canonical name")
	}
	if err := ns.Register(r); err == nil {
		t.Error("duplicate registration should fail")
	}
	if err := ns.Register(Routine{Mode: userdata.ModeGlobal, Kind: KindScript, Path: []string{"x"}}); err == nil {
		t.Error("script routine without a body should fail")
	}
	if err := ns.Register(Routine{Mode: userdata.ModeGlobal, Run: noopRoutine}); err == nil {
		t.Error("empty path should fail")
	}

	ns.Seal()
	err := ns.Register(Routine{Mode: userdata.ModeGlobal, Path: []string{"late"}, Run: noopRoutine})
	if !errors.Is(err, ErrNamespaceSealed) {
		t.Errorf("Register after Seal error = %v, want ErrNamespaceSealed", err)
	}

	var nilNS *Namespace
	if nilNS.HasRoutine("anything") {
		t.Error("nil namespace has no routines")
	}
	if got := nilNS.Family(userdata.ModeGlobal, BuiltinModule, "pkg"); got != nil {
		t.Errorf("nil namespace Family = %v, want nil", got)
	}
	if got := ns.Family(userdata.ModeGlobal, BuiltinModule, "pkg"); len(got) != 1 {
		t.Errorf("Family(pkg) = %d routines, want 1", len(got))
	}
}

func TestReconcile_SubcommandSuffixCollapsing(t *testing.T) {
	ns := NewNamespace()
	for _, path := range [][]string{{"pkg", "install"}, {"pkg", "list"}, {"pkg", "validate", "state"}} {
		if err := ns.Register(Routine{Mode: userdata.ModeGlobal, Path: path, Kind: KindFunction, Tier: TierCoreEmbedded, Module: BuiltinModule, Run: noopRoutine}); err != nil {
			t.Fatal(err)
		}
	}
	// Routines of the other mode are ignored.
	if err := ns.Register(Routine{Mode: userdata.ModeProject, Path: []string{"init"}, Kind: KindFunction, Module: BuiltinModule, Run: noopRoutine}); err != nil {
		t.Fatal(err)
	}

	reg := New()
	if err := Reconcile(reg, ns, userdata.ModeGlobal); err != nil {
		t.Fatal(err)
	}

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"pkg"}) {
		t.Errorf("Names() = %v, want [pkg]", got)
	}
	d, _ := reg.Lookup("pkg")
	if d.Kind != KindFunction || d.Tier != TierCoreEmbedded {
		t.Errorf("pkg = %+v", d)
	}
}

// loadAsRoutines registers every scanned candidate as a routine, the way a
// bundle loader exposes bundled sources.
func loadAsRoutines(t *testing.T, ns *Namespace, res *ScanResult) {
	t.Helper()
	for _, c := range res.Candidates {
		d := c.Descriptor
		if d.Kind == KindFunction {
			continue
		}
		r := Routine{Mode: userdata.ModeProject, Path: []string{d.Name}, Kind: d.Kind, Tier: c.Tier, Module: d.Module, Run: noopRoutine}
		if d.Kind == KindDirectoryDefault && d.Target == "" {
			r.Run = nil
		}
		if err := ns.Register(r); err != nil {
			t.Fatal(err)
		}
		for _, sub := range d.SubcommandNames() {
			if err := ns.Register(Routine{Mode: userdata.ModeProject, Path: []string{d.Name, sub}, Kind: KindDirectorySubcommand, Tier: c.Tier, Module: d.Module, Run: noopRoutine}); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestReconcile_EmbeddedParity(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{
			name: "two scripts",
			files: map[string]string{
				"/tool/modules/project/alpha.ps1": "Write-Host alpha",
				"/tool/modules/project/beta.ps1":  "Write-Host beta",
			},
		},
		{
			name: "mixed tiers and duplicates",
			files: map[string]string{
				"/tool/modules/project/alpha.sh":      "echo a",
				"/tool/core/project/alpha.sh":         "echo shadowed",
				"/tool/core/project/svc/one.sh":       "echo one",
				"/tool/shared/m/module.yaml":          "module_name: m\ncommands:\n  gamma:\n    handler: g.sh\n",
				"/tool/shared/m/g.sh":                 "echo g",
				"/tool/shared/bad/module.yaml":        "module_name: bad\ncommands:\n  delta: {}\n",
				"/tool/modules/project/db/default.sh": "echo db",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeFiles(t, fsys, tt.files)
			locs := Layout(testRoot, "", userdata.ModeProject)

			disk := New()
			res := (&Scanner{Fs: fsys, Mode: userdata.ModeProject}).Scan(locs)
			if err := disk.Build(res); err != nil {
				t.Fatal(err)
			}

			ns := NewNamespace()
			loadAsRoutines(t, ns, res)
			embedded := New()
			if err := Reconcile(embedded, ns, userdata.ModeProject); err != nil {
				t.Fatal(err)
			}

			diskKeys, embeddedKeys := disk.Names(), embedded.Names()
			sort.Strings(diskKeys)
			if !reflect.DeepEqual(diskKeys, embeddedKeys) {
				t.Errorf("disk keys %v != embedded keys %v", diskKeys, embeddedKeys)
			}
		})
	}
}

func TestReconcile_DirectoryWithoutDefault(t *testing.T) {
	ns := NewNamespace()
	mustRegister := func(r Routine) {
		t.Helper()
		if err := ns.Register(r); err != nil {
			t.Fatal(err)
		}
	}
	mustRegister(Routine{Mode: userdata.ModeProject, Path: []string{"svc"}, Kind: KindDirectoryDefault, Module: "/b/svc"})
	mustRegister(Routine{Mode: userdata.ModeProject, Path: []string{"svc", "one"}, Kind: KindDirectorySubcommand, Module: "/b/svc", Run: noopRoutine})
	mustRegister(Routine{Mode: userdata.ModeProject, Path: []string{"svc", "two"}, Kind: KindDirectorySubcommand, Module: "/b/svc", Run: noopRoutine})

	reg := New()
	if err := Reconcile(reg, ns, userdata.ModeProject); err != nil {
		t.Fatal(err)
	}

	d, ok := reg.Lookup("svc")
	if !ok {
		t.Fatal("svc missing")
	}
	if d.Target != "" {
		t.Errorf("svc target = %q, want empty", d.Target)
	}
	if got := d.SubcommandNames(); !reflect.DeepEqual(got, []string{"one", "two"}) {
		t.Errorf("svc subcommands = %v", got)
	}
	if _, ok := reg.Lookup("svc.one"); ok {
		t.Error("subcommands must not be top-level keys")
	}
}
