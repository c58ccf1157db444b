package prompt

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   bool
		want  bool
	}{
		{"yes", "y\n", false, true},
		{"no", "no\n", true, false},
		{"empty takes default", "\n", true, true},
		{"eof takes default", "", false, false},
		{"retry on junk", "maybe\nYES\n", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := New(strings.NewReader(tt.input), &out)
			got, err := p.Confirm("Reinstall?", tt.def)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfirm_AssumeYes(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("n\n"), &out)
	p.AssumeYes = true
	got, err := p.Confirm("Proceed?", false)
	if err != nil || !got {
		t.Errorf("Confirm() = %v, %v; want true", got, err)
	}
}

func TestChoose(t *testing.T) {
	choices := []Choice{{'o', "overwrite"}, {'s', "skip"}, {'a', "abort"}}
	tests := []struct {
		input string
		want  rune
	}{
		{"o\n", 'o'},
		{"Skip\n", 's'},
		{"x\na\n", 'a'},
		{"\n", 's'},
		{"", 's'},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := New(strings.NewReader(tt.input), &out)
			got, err := p.Choose("File exists", choices, 's')
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Choose() = %c, want %c", got, tt.want)
			}
			if !strings.Contains(out.String(), "[o]verwrite/[S]kip/[a]bort") {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func TestInput(t *testing.T) {
	var out bytes.Buffer
	p := New(strings.NewReader("\nmy-app\n"), &out)
	got, err := p.Input("Project name", "default")
	if err != nil || got != "default" {
		t.Errorf("Input() = %q, %v", got, err)
	}
	got, err = p.Input("Project name", "default")
	if err != nil || got != "my-app" {
		t.Errorf("Input() = %q, %v", got, err)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(strings.NewReader("")) {
		t.Error("a strings.Reader is not a terminal")
	}
}
