package userdata

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestEnsureGitignore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("build/\n.env"), 0644); err != nil {
		t.Fatal(err)
	}

	added, err := EnsureGitignore(dir, GitignoreEntries())
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{".box/state.json"}; !reflect.DeepEqual(added, want) {
		t.Errorf("added = %v, want %v", added, want)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "build/\n.env\n.box/state.json\n" {
		t.Errorf(".gitignore = %q", data)
	}

	added, err = EnsureGitignore(dir, GitignoreEntries())
	if err != nil || added != nil {
		t.Errorf("second call added %v, %v", added, err)
	}
}

func TestEnsureGitignore_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := EnsureGitignore(dir, []string{".env"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil || string(data) != ".env\n" {
		t.Errorf(".gitignore = %q, %v", data, err)
	}
}

func TestWriteEnvFile_OwnerOnly(t *testing.T) {
	if os.PathSeparator == '\\' {
		t.Skip("no permission bits on windows")
	}
	path := filepath.Join(t.TempDir(), ".env")
	if err := WriteEnvFile(path, map[string]string{"API_TOKEN": "x"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != FilePermSecure {
		t.Errorf("perm = %o, want %o", perm, FilePermSecure)
	}
}
