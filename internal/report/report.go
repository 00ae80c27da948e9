// Package report renders run reports for the terminal and for tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/duyhunghd6/fastdoc-cli/internal/types"
)

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *types.RunReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteText writes a human readable summary of r. With verbose set, every
// element is listed, otherwise only the ones that changed or failed.
func WriteText(w io.Writer, r *types.RunReport, verbose bool) error {
	var b strings.Builder

	for _, f := range r.Files {
		switch {
		case f.Error != "":
			fmt.Fprintf(&b, "❌ %s: %s\n", f.RelativePath, f.Error)
			continue
		case f.Cancelled:
			fmt.Fprintf(&b, "⏹  %s (cancelled)\n", f.RelativePath)
		case f.Changed:
			fmt.Fprintf(&b, "✏️  %s\n", f.RelativePath)
		default:
			fmt.Fprintf(&b, "   %s\n", f.RelativePath)
		}
		for _, e := range f.Elements {
			if !verbose && !notable(e.Status) {
				continue
			}
			fmt.Fprintf(&b, "      %-8s %-10s %s:%d", e.Kind, e.Status, e.Name, e.Line)
			if e.Reason != "" {
				fmt.Fprintf(&b, " (%s)", e.Reason)
			}
			b.WriteByte('\n')
		}
		if f.Diff != "" {
			b.WriteString(indent(f.Diff, "    "))
		}
	}

	counts := r.Counts()
	var parts []string
	for _, s := range types.Statuses {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", s, n))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "no elements")
	}

	fmt.Fprintf(&b, "\n✅ %d files in %s: %s\n", len(r.Files), r.Elapsed.Round(time.Millisecond), strings.Join(parts, ", "))
	if failed := len(r.Failed()); failed > 0 {
		fmt.Fprintf(&b, "   Failed:   %d files\n", failed)
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "   Skipped:  %d files over the size limit\n", len(r.Skipped))
	}
	if r.CacheHits+r.CacheMisses > 0 {
		fmt.Fprintf(&b, "   Cache:    %d hits, %d misses\n", r.CacheHits, r.CacheMisses)
	}
	switch {
	case r.DryRun:
		b.WriteString("   Dry run:  nothing written\n")
	case len(r.Written) > 0:
		fmt.Fprintf(&b, "   Written:  %s\n", strings.Join(r.Written, ", "))
	}
	if r.Cancelled {
		b.WriteString("   Run was cancelled; remaining elements were left untouched\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func notable(s types.Status) bool {
	switch s {
	case types.StatusInserted, types.StatusReplaced, types.StatusTODO:
		return true
	}
	return false
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(l)
	}
	return b.String()
}
