package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/branding"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/bundle"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/cli"
	"github.com/vbuzzano/DevBoxFoundry-sub000/internal/userdata"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func runApp(t *testing.T, mode userdata.Mode, root, dir string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(context.Background(), Options{
		Mode:   mode,
		Args:   args,
		Build:  cli.BuildInfo{Version: "9.9.9"},
		Dir:    dir,
		Root:   root,
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func setup(t *testing.T) (root, project string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	root = filepath.Join(dir, "tool")
	project = filepath.Join(dir, "work")
	if err := os.MkdirAll(filepath.Join(project, branding.BoxDir()), 0755); err != nil {
		t.Fatal(err)
	}
	return root, project
}

func TestRun_Script(t *testing.T) {
	root, project := setup(t)
	writeFile(t, filepath.Join(root, "modules", "global", "hello.sh"), "echo \"hello $1\"\n")
	writeFile(t, filepath.Join(root, "modules", "global", "fail.sh"), "echo failing >&2\nexit 3\n")

	r := runApp(t, userdata.ModeGlobal, root, project, "hello", "world")
	if r.code != 0 || r.stdout != "hello world\n" {
		t.Errorf("hello = %+v", r)
	}

	r = runApp(t, userdata.ModeGlobal, root, project, "fail")
	if r.code != 3 {
		t.Errorf("exit code = %d, want 3", r.code)
	}
	if !strings.Contains(r.stderr, "failing\n") {
		t.Errorf("script stderr missing:\n%s", r.stderr)
	}
	if !strings.Contains(r.stderr, `command "fail" exited with code 3 (`) {
		t.Errorf("exit not reported with the command name:\n%s", r.stderr)
	}
	if strings.Count(r.stderr, "Error:") != 1 {
		t.Errorf("exit reported more than once:\n%s", r.stderr)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	root, project := setup(t)
	writeFile(t, filepath.Join(root, "modules", "global", "hello.sh"), "echo hello\n")

	r := runApp(t, userdata.ModeGlobal, root, project, "helo")
	if r.code != 1 {
		t.Errorf("exit code = %d, want 1", r.code)
	}
	if !strings.Contains(r.stderr, `did you mean "hello"?`) {
		t.Errorf("stderr missing suggestion:\n%s", r.stderr)
	}
	if r.stdout != "" {
		t.Errorf("help for an unknown command went to stdout:\n%s", r.stdout)
	}
}

func TestRun_NoArgsListsCommands(t *testing.T) {
	root, project := setup(t)
	writeFile(t, filepath.Join(root, "modules", "project", "build.sh"), "echo build\n")

	r := runApp(t, userdata.ModeProject, root, project)
	if r.code != 0 {
		t.Fatalf("exit code = %d\n%s", r.code, r.stderr)
	}
	for _, want := range []string{"build", "pkg", "init", "generate"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("help missing %q:\n%s", want, r.stdout)
		}
	}
}

func TestRun_OverridePrecedence(t *testing.T) {
	root, project := setup(t)
	writeFile(t, filepath.Join(root, "modules", "project", "build.sh"), "echo module\n")
	writeFile(t, filepath.Join(project, branding.BoxDir(), "commands", "build.sh"), "echo override\n")

	sub := filepath.Join(project, "src", "deep")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	r := runApp(t, userdata.ModeProject, root, sub, "build")
	if r.code != 0 || r.stdout != "override\n" {
		t.Errorf("build = %+v", r)
	}

	// Global mode never reads the project override tier.
	writeFile(t, filepath.Join(root, "modules", "global", "build.sh"), "echo global\n")
	r = runApp(t, userdata.ModeGlobal, root, sub, "build")
	if r.stdout != "global\n" {
		t.Errorf("global build = %+v", r)
	}
}

func TestRun_Builtin(t *testing.T) {
	root, project := setup(t)

	r := runApp(t, userdata.ModeProject, root, project, "version", "--short")
	if r.code != 0 || r.stdout != "9.9.9\n" {
		t.Errorf("version = %+v", r)
	}

	// A module may not replace a built-in: built-ins precede core modules.
	writeFile(t, filepath.Join(root, "core", "project", "version.sh"), "echo shadow\n")
	r = runApp(t, userdata.ModeProject, root, project, "version", "--short")
	if r.stdout != "9.9.9\n" {
		t.Errorf("core module shadowed a built-in: %+v", r)
	}
}

func TestRun_RejectedModule(t *testing.T) {
	root, project := setup(t)
	writeFile(t, filepath.Join(root, "shared", "lint", "lint.sh"), "echo lint\n")

	r := runApp(t, userdata.ModeProject, root, project, "lint")
	if r.code != 1 || !strings.Contains(r.stderr, "unavailable") {
		t.Errorf("lint = %+v", r)
	}
}

func TestRun_BundleParity(t *testing.T) {
	root, project := setup(t)
	writeFile(t, filepath.Join(root, "modules", "global", "hello.sh"), "echo \"hello $1\"\n")
	writeFile(t, filepath.Join(root, "core", "global", "tools", "default.sh"), "echo tools default\n")
	writeFile(t, filepath.Join(root, "core", "global", "tools", "check.sh"), "echo \"check $*\"\n")

	b, err := bundle.Build(afero.NewOsFs(), root)
	if err != nil {
		t.Fatal(err)
	}
	shipped := filepath.Join(t.TempDir(), "shipped")
	if err := bundle.WriteFile(afero.NewOsFs(), filepath.Join(shipped, branding.BundleFile()), b); err != nil {
		t.Fatal(err)
	}

	cases := [][]string{
		{"hello", "bundle"},
		{"tools"},
		{"tools", "check", "a", "b"},
		{"helo"},
	}
	for _, args := range cases {
		disk := runApp(t, userdata.ModeGlobal, root, project, args...)
		embedded := runApp(t, userdata.ModeGlobal, shipped, project, args...)
		if disk.code != embedded.code || disk.stdout != embedded.stdout {
			t.Errorf("%v: disk = %+v, bundle = %+v", args, disk, embedded)
		}
	}
}
