package scaffold

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffContext is the number of unchanged lines kept around each change.
const diffContext = 3

// Diff returns a line diff of before and after with -/+ markers. Long
// unchanged runs are folded to diffContext lines on each side.
func Diff(path, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s (generated)\n", path, path)
	for i, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			writeLines(&sb, "-", lines)
		case diffmatchpatch.DiffInsert:
			writeLines(&sb, "+", lines)
		default:
			head, tail := diffContext, diffContext
			if i == 0 {
				head = 0
			}
			if i == len(diffs)-1 {
				tail = 0
			}
			if len(lines) <= head+tail {
				writeLines(&sb, " ", lines)
				continue
			}
			writeLines(&sb, " ", lines[:head])
			sb.WriteString("@@\n")
			writeLines(&sb, " ", lines[len(lines)-tail:])
		}
	}
	return sb.String()
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

func writeLines(sb *strings.Builder, marker string, lines []string) {
	for _, l := range lines {
		sb.WriteString(marker)
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
}
