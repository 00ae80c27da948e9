// Package extract rebuilds a file's text from its token stream and records
// the span of every function and class definition on the way, using only
// indent/dedent counting.
package extract

import (
	"fmt"
	"sort"
)

// ElementKind is the kind of a definition.
type ElementKind int

const (
	KindFunction ElementKind = iota
	KindClass
)

// Kinds lists every element kind in prompt/report order.
var Kinds = []ElementKind{KindFunction, KindClass}

func (k ElementKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	}
	return fmt.Sprintf("ElementKind(%d)", int(k))
}

// Keyword returns the Python keyword introducing the kind.
func (k ElementKind) Keyword() string {
	if k == KindClass {
		return "class"
	}
	return "def"
}

// ParseKind maps "function"/"class" (or the keywords) to a kind.
func ParseKind(s string) (ElementKind, error) {
	switch s {
	case "function", "def":
		return KindFunction, nil
	case "class":
		return KindClass, nil
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

func (k ElementKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Element is one function or class definition.
type Element struct {
	ID         int         `json:"id"`
	Kind       ElementKind `json:"kind"`
	Name       string      `json:"name"`
	SourceText string      `json:"-"`
	// DocstringOffset is a byte offset into SourceText just after the
	// indentation of the first body line, or -1 without an indented body.
	DocstringOffset int  `json:"docstring_offset"`
	Start           int  `json:"start"`
	End             int  `json:"end"`
	Line            int  `json:"line"`
	Inline          bool `json:"inline,omitempty"`
}

// Nesting selects how same-kind definitions nested in each other are
// captured.
type Nesting string

const (
	// NestingStack captures every definition.
	NestingStack Nesting = "stack"
	// NestingOutermost captures only the outermost definition of a kind;
	// inner ones are part of its text.
	NestingOutermost Nesting = "outermost"
)

// Options tunes Extract.
type Options struct {
	Nesting Nesting
}

// Result is the output of Extract.
type Result struct {
	Elements []Element // emission order (inner definitions close first)
	Text     string
}

// ByKind returns the elements of one kind in source order.
func (r *Result) ByKind(kind ElementKind) []Element {
	var out []Element
	for _, e := range r.Elements {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	sortBySource(out)
	return out
}

// Sorted returns all elements in source order.
func (r *Result) Sorted() []Element {
	out := append([]Element(nil), r.Elements...)
	sortBySource(out)
	return out
}

func sortBySource(els []Element) {
	sort.SliceStable(els, func(i, j int) bool {
		if els[i].Start != els[j].Start {
			return els[i].Start < els[j].Start
		}
		return els[i].End > els[j].End
	})
}
