// Package tokenizer turns Python source into the token stream consumed by
// the extractor.
package tokenizer

import (
	"fmt"

	"github.com/duyhunghd6/fastdoc-cli/internal/pylex"
	"github.com/duyhunghd6/fastdoc-cli/internal/source"
)

// Kind is the coarse class the extractor folds over.
type Kind int

const (
	Other Kind = iota
	Name
	Indent
	Dedent
	Newline
)

func (k Kind) String() string {
	switch k {
	case Name:
		return "name"
	case Indent:
		return "indent"
	case Dedent:
		return "dedent"
	case Newline:
		return "newline"
	}
	return "other"
}

// Pos is re-exported so callers need not import pylex.
type Pos = pylex.Pos

// Token is one lexical unit of a file.
type Token struct {
	Kind  Kind       `json:"kind"`
	Type  pylex.Type `json:"type"`
	Text  string     `json:"text"`
	Lead  string     `json:"lead,omitempty"`
	Start Pos        `json:"start"`
	End   Pos        `json:"end"`
}

// LexError reports a file that is not lexically valid Python.
type LexError struct {
	Path string
	Err  error
}

func (e *LexError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("tokenize: %v", e.Err)
	}
	return fmt.Sprintf("tokenize %s: %v", e.Path, e.Err)
}

func (e *LexError) Unwrap() error { return e.Err }

// IOError reports a file that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func kindOf(t pylex.Type) Kind {
	switch t {
	case pylex.NAME:
		return Name
	case pylex.INDENT:
		return Indent
	case pylex.DEDENT:
		return Dedent
	case pylex.NEWLINE, pylex.NL:
		return Newline
	}
	return Other
}

// FromLexer maps raw lexer tokens, dropping the leading ENCODING token.
func FromLexer(raw []pylex.Token) []Token {
	out := make([]Token, 0, len(raw))
	for _, t := range raw {
		if t.Type == pylex.ENCODING {
			continue
		}
		out = append(out, Token{
			Kind:  kindOf(t.Type),
			Type:  t.Type,
			Text:  t.Text,
			Lead:  t.Lead,
			Start: t.Start,
			End:   t.End,
		})
	}
	return out
}

// TokenizeString lexes already-decoded text.
func TokenizeString(text string) ([]Token, error) {
	raw, err := pylex.Lex(text)
	if err != nil {
		return nil, &LexError{Err: err}
	}
	return FromLexer(raw), nil
}

// Tokenize decodes src (BOM and coding cookie aware) and lexes it.
func Tokenize(src []byte) ([]Token, error) {
	f, err := source.Decode("", src)
	if err != nil {
		return nil, &LexError{Err: err}
	}
	return TokenizeString(f.Text)
}

// TokenizeFile reads, decodes and lexes path. The returned File carries the
// encoding needed to write the text back.
func TokenizeFile(path string) ([]Token, *source.File, error) {
	raw, mode, err := source.ReadBytes(path)
	if err != nil {
		return nil, nil, &IOError{Path: path, Err: err}
	}
	f, err := source.Decode(path, raw)
	if err != nil {
		return nil, nil, &LexError{Path: path, Err: err}
	}
	f.Mode = mode
	toks, err := TokenizeString(f.Text)
	if err != nil {
		err.(*LexError).Path = path
		return nil, nil, err
	}
	return toks, f, nil
}
