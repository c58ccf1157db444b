package extract

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

var archiveFiles = map[string]string{
	"vbcc/bin/vc":                   "vc-binary",
	"vbcc/bin/vbccm68k":             "compiler",
	"vbcc/targets/m68k/include/a.h": "header",
	"vbcc/targets/m68k/lib/libc.a":  "lib",
	"vbcc/README":                   "docs",
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func tarGzBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0755, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func mustRules(t *testing.T, raw ...string) []Rule {
	t.Helper()
	var rules []Rule
	for _, r := range raw {
		rule, err := ParseRule(r)
		if err != nil {
			t.Fatalf("ParseRule(%q) error = %v", r, err)
		}
		rules = append(rules, rule)
	}
	return rules
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		raw     string
		want    Rule
		wantErr bool
	}{
		{raw: "file:vbcc/bin/*:tools/bin", want: Rule{Kind: KindFile, Pattern: "vbcc/bin/*", Dest: "tools/bin"}},
		{raw: "dir:vbcc/targets/**:sdk/targets:VBCC_TARGETS", want: Rule{Kind: KindDir, Pattern: "vbcc/targets/**", Dest: "sdk/targets", EnvVar: "VBCC_TARGETS"}},
		{raw: "file:*", wantErr: true},
		{raw: "copy:a:b", wantErr: true},
		{raw: "file:a:../outside", wantErr: true},
		{raw: "file:a:/abs", wantErr: true},
		{raw: "file:[:dest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRule(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRule() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseRule() = %+v, want %+v", got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.raw {
				t.Errorf("String() = %q, want %q", got.String(), tt.raw)
			}
		})
	}
}

func TestExtract_Formats(t *testing.T) {
	tests := []struct {
		name string
		file string
		data func(*testing.T, map[string]string) []byte
	}{
		{"zip", "/cache/vbcc.zip", zipBytes},
		{"tar.gz", "/cache/vbcc.tar.gz", tarGzBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			if err := afero.WriteFile(fsys, tt.file, tt.data(t, archiveFiles), 0644); err != nil {
				t.Fatal(err)
			}
			if err := fsys.MkdirAll("/proj/tools", 0755); err != nil {
				t.Fatal(err)
			}

			ex := &Extractor{Fs: fsys, Root: "/proj"}
			res, err := ex.Extract(tt.file, mustRules(t,
				"file:vbcc/bin/*:tools/bin",
				"dir:vbcc/targets/**:sdk/targets:VBCC",
			))
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			wantFiles := []string{
				"sdk/targets/m68k/include/a.h",
				"sdk/targets/m68k/lib/libc.a",
				"tools/bin/vbccm68k",
				"tools/bin/vc",
			}
			if !reflect.DeepEqual(res.Files, wantFiles) {
				t.Errorf("Files = %v, want %v", res.Files, wantFiles)
			}
			wantDirs := []string{
				"sdk/targets/m68k/include",
				"sdk/targets/m68k/lib",
				"sdk/targets/m68k",
				"sdk/targets",
				"tools/bin",
				"sdk",
			}
			if !reflect.DeepEqual(res.Dirs, wantDirs) {
				t.Errorf("Dirs = %v, want %v", res.Dirs, wantDirs)
			}
			if res.Envs["VBCC"] != filepath.Join("/proj", "sdk/targets") {
				t.Errorf("Envs = %v", res.Envs)
			}
			data, err := afero.ReadFile(fsys, "/proj/tools/bin/vc")
			if err != nil || string(data) != "vc-binary" {
				t.Errorf("tools/bin/vc = %q, %v", data, err)
			}
		})
	}
}

func TestExtract_Conflicts(t *testing.T) {
	setup := func(t *testing.T) afero.Fs {
		fsys := afero.NewMemMapFs()
		_ = afero.WriteFile(fsys, "/cache/pkg.zip", zipBytes(t, map[string]string{"a.txt": "new-a", "b.txt": "new-b"}), 0644)
		_ = afero.WriteFile(fsys, "/proj/out/a.txt", []byte("old-a"), 0644)
		return fsys
	}
	rules := mustRules(t, "file:*.txt:out")

	t.Run("skip", func(t *testing.T) {
		fsys := setup(t)
		var asked []string
		ex := &Extractor{Fs: fsys, Root: "/proj", OnConflict: func(rel string) (Resolution, error) {
			asked = append(asked, rel)
			return Skip, nil
		}}
		res, err := ex.Extract("/cache/pkg.zip", rules)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(asked, []string{"out/a.txt"}) {
			t.Errorf("asked = %v", asked)
		}
		if !reflect.DeepEqual(res.Files, []string{"out/b.txt"}) {
			t.Errorf("Files = %v", res.Files)
		}
		if data, _ := afero.ReadFile(fsys, "/proj/out/a.txt"); string(data) != "old-a" {
			t.Errorf("skipped file changed to %q", data)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		fsys := setup(t)
		ex := &Extractor{Fs: fsys, Root: "/proj", OnConflict: func(string) (Resolution, error) { return Overwrite, nil }}
		if _, err := ex.Extract("/cache/pkg.zip", rules); err != nil {
			t.Fatal(err)
		}
		if data, _ := afero.ReadFile(fsys, "/proj/out/a.txt"); string(data) != "new-a" {
			t.Errorf("a.txt = %q, want overwritten", data)
		}
	})

	t.Run("abort writes nothing", func(t *testing.T) {
		fsys := setup(t)
		ex := &Extractor{Fs: fsys, Root: "/proj", OnConflict: func(string) (Resolution, error) { return Abort, nil }}
		_, err := ex.Extract("/cache/pkg.zip", rules)
		if !errors.Is(err, ErrAborted) {
			t.Fatalf("error = %v, want ErrAborted", err)
		}
		if ok, _ := afero.Exists(fsys, "/proj/out/b.txt"); ok {
			t.Error("abort must not write any file")
		}
	})
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, "/cache/evil.zip", zipBytes(t, map[string]string{"../../etc/passwd": "x"}), 0644)
	ex := &Extractor{Fs: fsys, Root: "/proj"}
	if _, err := ex.Extract("/cache/evil.zip", mustRules(t, "dir:**:.")); err == nil {
		t.Error("expected an error for an escaping entry")
	}
}

func TestExtract_PlainFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_ = afero.WriteFile(fsys, "/cache/tool.exe", []byte("bin"), 0755)
	ex := &Extractor{Fs: fsys, Root: "/proj"}
	res, err := ex.Extract("/cache/tool.exe", mustRules(t, "file:tool.exe:bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Files, []string{"bin/tool.exe"}) {
		t.Errorf("Files = %v", res.Files)
	}
}
