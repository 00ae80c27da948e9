// Package splice applies docstring edits to a file's text while keeping the
// span of every extracted element up to date.
package splice

import (
	"errors"
	"fmt"

	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
)

var (
	ErrUnknownElement = errors.New("unknown element")
	// ErrNoBody is returned for elements without an indented body, where no
	// docstring can be placed.
	ErrNoBody = errors.New("element has no indented body")
)

// Action is what an edit did.
type Action int

const (
	ActionNone Action = iota
	ActionInserted
	ActionReplaced
	ActionTODO
)

func (a Action) String() string {
	switch a {
	case ActionInserted:
		return "inserted"
	case ActionReplaced:
		return "replaced"
	case ActionTODO:
		return "todo"
	}
	return "none"
}

type span struct {
	start, end int
	doc        int // absolute, -1 when none
}

// Document is the mutable text of one file plus the live span of each
// element. It is not safe for concurrent use.
type Document struct {
	orig  string
	buf   string
	spans map[int]*span
}

// NewDocument starts a document from the extractor's output.
func NewDocument(text string, elements []extract.Element) *Document {
	d := &Document{orig: text, buf: text, spans: make(map[int]*span, len(elements))}
	for _, e := range elements {
		doc := -1
		if e.DocstringOffset >= 0 {
			doc = e.Start + e.DocstringOffset
		}
		d.spans[e.ID] = &span{start: e.Start, end: e.End, doc: doc}
	}
	return d
}

// Text returns the current buffer.
func (d *Document) Text() string { return d.buf }

// Changed reports whether any edit modified the buffer.
func (d *Document) Changed() bool { return d.buf != d.orig }

func (d *Document) span(id int) (*span, error) {
	s, ok := d.spans[id]
	if !ok {
		return nil, fmt.Errorf("element %d: %w", id, ErrUnknownElement)
	}
	return s, nil
}

// Source returns the element's current source text.
func (d *Document) Source(id int) (string, error) {
	s, err := d.span(id)
	if err != nil {
		return "", err
	}
	return d.buf[s.start:s.end], nil
}

// Existing reports the docstring currently at the element's docstring
// offset.
func (d *Document) Existing(id int) (Docstring, bool) {
	s, err := d.span(id)
	if err != nil || s.doc < 0 {
		return Docstring{}, false
	}
	src := d.buf[s.start:s.end]
	return FindDocstring(src, s.doc-s.start)
}

// HasTODO reports whether the element carries a TODO marker where its
// docstring belongs.
func (d *Document) HasTODO(id int) bool {
	s, err := d.span(id)
	if err != nil || s.doc < 0 {
		return false
	}
	_, _, ok := todoRegion(d.buf[s.start:s.end], s.doc-s.start)
	return ok
}

// Apply places body as the element's docstring. An existing docstring is
// only rewritten when overwrite is set; a TODO marker is always replaced.
func (d *Document) Apply(id int, body string, overwrite bool) (Action, error) {
	s, err := d.span(id)
	if err != nil {
		return ActionNone, err
	}
	if s.doc < 0 {
		return ActionNone, fmt.Errorf("element %d: %w", id, ErrNoBody)
	}
	src := d.buf[s.start:s.end]
	off := s.doc - s.start

	if ds, ok := FindDocstring(src, off); ok {
		if !overwrite {
			return ActionNone, nil
		}
		inner := s.start + ds.Start + len(ds.Prefix) + len(ds.Quote)
		d.replace(inner, inner+len(ds.Body), escapeBody(body, ds.Quote))
		return ActionReplaced, nil
	}

	nl := newlineOf(src)
	if from, to, ok := todoRegion(src, off); ok {
		abs := s.start + from
		indent := indentBefore(d.buf, abs)
		q := quoteFor(body)
		d.replace(abs, s.start+to, q+escapeBody(body, q)+q+nl+indent)
		s.doc = abs
		return ActionInserted, nil
	}

	indent := indentBefore(d.buf, s.doc)
	q := quoteFor(body)
	d.replace(s.doc, s.doc, q+escapeBody(body, q)+q+nl+indent)
	return ActionInserted, nil
}

// MarkTODO inserts the TODO marker for kind at the element's docstring
// offset. It does nothing when a marker or a docstring is already there.
func (d *Document) MarkTODO(id int, kind extract.ElementKind) (Action, error) {
	s, err := d.span(id)
	if err != nil {
		return ActionNone, err
	}
	if s.doc < 0 {
		return ActionNone, fmt.Errorf("element %d: %w", id, ErrNoBody)
	}
	src := d.buf[s.start:s.end]
	off := s.doc - s.start
	if _, _, ok := todoRegion(src, off); ok {
		return ActionNone, nil
	}
	if _, ok := FindDocstring(src, off); ok {
		return ActionNone, nil
	}
	indent := indentBefore(d.buf, s.doc)
	d.replace(s.doc, s.doc, TODOMarker(kind)+newlineOf(src)+indent)
	return ActionTODO, nil
}

// replace swaps buf[from:to] for text and shifts every span.
func (d *Document) replace(from, to int, text string) {
	d.buf = d.buf[:from] + text + d.buf[to:]
	delta := len(text) - (to - from)
	if delta == 0 {
		return
	}
	for _, s := range d.spans {
		switch {
		case s.start >= to:
			s.start += delta
			s.end += delta
		case s.end >= to:
			s.end += delta
		}
		if s.doc > from && s.doc >= to {
			s.doc += delta
		}
	}
}
