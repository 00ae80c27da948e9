package extract

import (
	"strings"

	"github.com/duyhunghd6/fastdoc-cli/internal/pylex"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
)

type frame struct {
	kind       ElementKind
	indents    int
	dedents    int
	start      int
	docPos     int
	name       string
	line       int
	headerDone bool
}

type extractor struct {
	opts   Options
	toks   []tokenizer.Token
	text   strings.Builder
	frames []*frame // open frames, oldest first
	out    []Element

	row, col int
	depth    int // bracket depth
	prev     string
}

// Extract folds a token stream into the reconstructed text and the
// definitions it contains. It never fails; frames still open when the
// stream ends close at the end of the text.
func Extract(toks []tokenizer.Token, opts Options) *Result {
	if opts.Nesting == "" {
		opts.Nesting = NestingStack
	}
	x := &extractor{opts: opts, toks: toks, row: 1}
	for i := range toks {
		x.step(i)
	}
	for len(x.frames) > 0 {
		x.close(len(x.frames)-1, x.text.Len(), false)
	}
	return &Result{Elements: x.out, Text: x.text.String()}
}

func (x *extractor) step(i int) {
	tok := x.toks[i]
	text := x.normalize(tok)

	// padding
	if tok.Start.Row > x.row {
		x.row, x.col = tok.Start.Row, 0
	}
	if tok.Lead != "" {
		x.text.WriteString(tok.Lead)
	} else if tok.Start.Col > x.col {
		x.text.WriteString(strings.Repeat(" ", tok.Start.Col-x.col))
	}
	mark := x.text.Len()

	if tok.Kind == tokenizer.Name {
		switch tok.Text {
		case "def":
			x.open(KindFunction, tok)
		case "class":
			x.open(KindClass, tok)
		}
		if f := x.newest(x.prevKind()); f != nil && f.name == "" {
			f.name = tok.Text
		}
	}

	switch tok.Kind {
	case tokenizer.Indent:
		for _, f := range x.frames {
			f.indents++
			if f.indents == 1 {
				f.docPos = mark + len(text) - f.start
			}
		}
	case tokenizer.Dedent:
		for _, f := range x.frames {
			f.dedents++
		}
	case tokenizer.Other:
		x.trackBrackets(tok.Text)
	}

	x.text.WriteString(text)

	if tok.Kind == tokenizer.Dedent {
		for j := len(x.frames) - 1; j >= 0; j-- {
			if f := x.frames[j]; f.indents == f.dedents && f.indents != 0 {
				x.close(j, x.text.Len(), false)
			}
		}
	}
	if x.isLogicalNewline(tok) {
		for j := len(x.frames) - 1; j >= 0; j-- {
			f := x.frames[j]
			if f.headerDone {
				continue
			}
			f.headerDone = true
			if f.indents == 0 && !x.indentFollows(i) {
				x.close(j, x.text.Len(), true)
			}
		}
	}

	x.row, x.col = tok.End.Row, tok.End.Col
	x.prev = tok.Text
}

// normalize returns the text a token contributes to the reconstruction.
func (x *extractor) normalize(tok tokenizer.Token) string {
	switch tok.Kind {
	case tokenizer.Newline:
		if tok.Text == "" && tok.End != tok.Start {
			return "\n"
		}
		return tok.Text
	case tokenizer.Indent:
		width := tok.End.Col - tok.Start.Col
		if len(tok.Text) == width {
			return tok.Text
		}
		return strings.Repeat(" ", width)
	case tokenizer.Dedent:
		return ""
	}
	return tok.Text
}

func (x *extractor) open(kind ElementKind, tok tokenizer.Token) {
	if x.opts.Nesting == NestingOutermost && x.newest(kind) != nil {
		return
	}
	x.frames = append(x.frames, &frame{
		kind:   kind,
		start:  x.text.Len(),
		docPos: -1,
		line:   tok.Start.Row,
	})
}

func (x *extractor) newest(kind ElementKind) *frame {
	for j := len(x.frames) - 1; j >= 0; j-- {
		if x.frames[j].kind == kind {
			return x.frames[j]
		}
	}
	return nil
}

// prevKind returns the kind whose keyword was the previous token, or -1.
func (x *extractor) prevKind() ElementKind {
	switch x.prev {
	case "def":
		return KindFunction
	case "class":
		return KindClass
	}
	return -1
}

func (x *extractor) close(j, end int, inline bool) {
	f := x.frames[j]
	x.frames = append(x.frames[:j], x.frames[j+1:]...)

	text := x.text.String()
	if end < f.start {
		end = f.start
	}
	doc := f.docPos
	if inline || doc > end-f.start {
		doc = -1
	}
	x.out = append(x.out, Element{
		ID:              len(x.out),
		Kind:            f.kind,
		Name:            f.name,
		SourceText:      text[f.start:end],
		DocstringOffset: doc,
		Start:           f.start,
		End:             end,
		Line:            f.line,
		Inline:          inline,
	})
}

func (x *extractor) trackBrackets(s string) {
	switch s {
	case "(", "[", "{":
		x.depth++
	case ")", "]", "}":
		if x.depth > 0 {
			x.depth--
		}
	}
}

func (x *extractor) isLogicalNewline(tok tokenizer.Token) bool {
	return tok.Kind == tokenizer.Newline && tok.Type != pylex.NL && x.depth == 0
}

// indentFollows reports whether the next significant token after i is an
// INDENT, skipping blank and comment-only lines.
func (x *extractor) indentFollows(i int) bool {
	for _, t := range x.toks[i+1:] {
		switch {
		case t.Kind == tokenizer.Newline:
		case t.Kind == tokenizer.Other && strings.HasPrefix(t.Text, "#"):
		default:
			return t.Kind == tokenizer.Indent
		}
	}
	return false
}
