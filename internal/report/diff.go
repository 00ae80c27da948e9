package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines kept around each change.
const contextLines = 2

// Diff renders a line diff of before and after in a unified-like layout.
// It returns "" when the texts are equal.
func Diff(name, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	rOld, rNew, lineArray := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(rOld, rNew, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	decode := func(s string) []string {
		if s == "" {
			return nil
		}
		out := make([]string, 0, len(s))
		for _, r := range s {
			idx := int(r)
			if idx >= 0 && idx < len(lineArray) {
				out = append(out, lineArray[idx])
			}
		}
		return out
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", name, name)
	for i, d := range diffs {
		lines := decode(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			writeContext(&b, lines, i > 0, i < len(diffs)-1)
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				writeLine(&b, '-', l)
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				writeLine(&b, '+', l)
			}
		}
	}
	return b.String()
}

// writeContext keeps the lines that follow a previous change and precede
// the next one, eliding the rest.
func writeContext(b *strings.Builder, lines []string, afterChange, beforeChange bool) {
	head, tail := 0, 0
	if afterChange {
		head = contextLines
	}
	if beforeChange {
		tail = contextLines
	}
	if head+tail >= len(lines) {
		for _, l := range lines {
			writeLine(b, ' ', l)
		}
		return
	}
	for _, l := range lines[:head] {
		writeLine(b, ' ', l)
	}
	b.WriteString("@@\n")
	for _, l := range lines[len(lines)-tail:] {
		writeLine(b, ' ', l)
	}
}

func writeLine(b *strings.Builder, op byte, line string) {
	b.WriteByte(op)
	line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
	b.WriteString(line)
	b.WriteByte('\n')
}
