// Package prompt asks the user yes/no, single-letter choice and free-text
// questions on a terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	questionMark = color.New(color.FgCyan, color.Bold).Sprint("?")
	hintColor    = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow)
)

// Choice is one single-letter answer.
type Choice struct {
	Key   rune
	Label string
}

// Prompter reads answers from In and writes questions to Out. At end of
// input every question returns its default.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// AssumeYes answers confirmations with yes and choices with their
	// default without reading input.
	AssumeYes bool
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Prompter) readLine() (string, bool, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line == "" {
				fmt.Fprintln(p.out)
				return "", false, nil
			}
			return strings.TrimSpace(line), true, nil
		}
		return "", false, fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), true, nil
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(question string, def bool) (bool, error) {
	hint := "[y/N]"
	if def {
		hint = "[Y/n]"
	}
	if p.AssumeYes {
		fmt.Fprintf(p.out, "%s %s %s y\n", questionMark, question, hintColor.Sprint(hint))
		return true, nil
	}
	for {
		fmt.Fprintf(p.out, "%s %s %s ", questionMark, question, hintColor.Sprint(hint))
		answer, ok, err := p.readLine()
		if err != nil {
			return false, err
		}
		if !ok || answer == "" {
			return def, nil
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, warnColor.Sprint("Please answer y or n."))
	}
}

// Choose asks for one of choices by its key. def is returned on an empty
// answer or end of input.
func (p *Prompter) Choose(question string, choices []Choice, def rune) (rune, error) {
	labels := make([]string, len(choices))
	for i, c := range choices {
		key := string(c.Key)
		if c.Key == def {
			key = strings.ToUpper(key)
		}
		labels[i] = "[" + key + "]" + strings.TrimPrefix(c.Label, string(c.Key))
	}
	hint := strings.Join(labels, "/")

	if p.AssumeYes {
		fmt.Fprintf(p.out, "%s %s %s %c\n", questionMark, question, hintColor.Sprint(hint), def)
		return def, nil
	}
	for {
		fmt.Fprintf(p.out, "%s %s %s ", questionMark, question, hintColor.Sprint(hint))
		answer, ok, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if !ok || answer == "" {
			return def, nil
		}
		r := unicode.ToLower([]rune(answer)[0])
		for _, c := range choices {
			if r == c.Key {
				return r, nil
			}
		}
		fmt.Fprintln(p.out, warnColor.Sprintf("Please answer one of %s.", hint))
	}
}

// Input asks for free text.
func (p *Prompter) Input(question, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s %s %s ", questionMark, question, hintColor.Sprintf("(%s)", def))
	} else {
		fmt.Fprintf(p.out, "%s %s ", questionMark, question)
	}
	answer, ok, err := p.readLine()
	if err != nil {
		return "", err
	}
	if !ok || answer == "" {
		return def, nil
	}
	return answer, nil
}
