package userdata

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRedactValue_SensitiveKeys(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{"GITHUB_TOKEN", "ghp_abcdef123456", "ghp_***"},
		{"AWS_SECRET_ACCESS_KEY", "wJalrXUtnFEMI", "wJal***"},
		{"DB_PASSWORD", "hunter2", "hunt***"},
		{"API_KEY", "sk-12345", "sk-1***"},
		{"SPLUNK_CREDENTIAL", "abc", "***"},
		{"github_token", "ghp_abcdef", "ghp_***"},
		{"VBCC_HOME", "/opt/vbcc", "/opt/vbcc"},
		{"NDK_VERSION", "3.9", "3.9"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			result := RedactValue(tt.key, tt.value)
			if result != tt.expected {
				t.Errorf("RedactValue(%q, %q) = %q, want %q", tt.key, tt.value, result, tt.expected)
			}
		})
	}
}

func TestReadEnvFile_Missing(t *testing.T) {
	vars, err := ReadEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vars) != 0 {
		t.Errorf("expected empty map, got %v", vars)
	}
}

func TestParseEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := `# comment
LOG_LEVEL=info
CONNECTION_STRING="host=localhost port=5432"
`
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseEnvFile(envFile)
	if err != nil {
		t.Fatalf("ParseEnvFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Key != "CONNECTION_STRING" || entries[0].Value != "host=localhost port=5432" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Key != "LOG_LEVEL" || entries[1].Value != "info" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestMergeAndRemoveEnvKeys(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "sub", ".env")

	if err := MergeEnvFile(envFile, map[string]string{"A": "1", "B": "two words"}); err != nil {
		t.Fatalf("MergeEnvFile: %v", err)
	}
	if err := MergeEnvFile(envFile, map[string]string{"B": "2", "C": "3"}); err != nil {
		t.Fatalf("MergeEnvFile: %v", err)
	}

	vars, err := ReadEnvFile(envFile)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "1", "B": "2", "C": "3"}
	for k, v := range want {
		if vars[k] != v {
			t.Errorf("%s = %q, want %q", k, vars[k], v)
		}
	}

	if err := RemoveEnvKeys(envFile, []string{"A", "C"}); err != nil {
		t.Fatalf("RemoveEnvKeys: %v", err)
	}
	vars, _ = ReadEnvFile(envFile)
	if len(vars) != 1 || vars["B"] != "2" {
		t.Errorf("after remove got %v", vars)
	}
}
