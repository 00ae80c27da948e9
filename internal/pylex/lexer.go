// Package pylex is a Python 3 lexer producing the same token stream as the
// standard library tokenize module: INDENT/DEDENT from an indentation stack,
// NL for non-logical line breaks, NEWLINE at the end of each logical line,
// and a synthetic NEWLINE/DEDENT/ENDMARKER tail at end of input.
//
// Every token also carries Lead, the exact source bytes skipped between the
// previous token and itself, so that concatenating Lead+Text over the whole
// stream reproduces the input byte for byte.
package pylex

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const tabSize = 8

// Lex tokenizes a Python source text. The first token is always ENCODING and
// the last one ENDMARKER.
func Lex(src string) ([]Token, error) {
	l := &lexer{src: src, indents: []int{0}}
	l.toks = append(l.toks, Token{Type: ENCODING, Text: "utf-8"})
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.toks, nil
}

type openString struct {
	start    Pos
	startAbs int
	delim    string
	triple   bool
}

type lexer struct {
	src  string
	toks []Token

	lastEnd int // absolute offset where the previous token ended
	lnum    int
	lineOff int

	parens    []byte
	continued bool
	pending   bool // the current logical line has tokens but no NEWLINE yet
	indents   []int
	str       *openString
}

func (l *lexer) run() error {
	off := 0
	for {
		line := ""
		if off < len(l.src) {
			if i := strings.IndexByte(l.src[off:], '\n'); i >= 0 {
				line = l.src[off : off+i+1]
			} else {
				line = l.src[off:]
			}
		}
		l.lnum++
		l.lineOff = off
		done, err := l.line(line)
		if err != nil {
			return err
		}
		off += len(line)
		if done || line == "" {
			break
		}
	}
	return l.finish()
}

func (l *lexer) finish() error {
	rows := strings.Count(l.src, "\n")
	if l.src != "" && !strings.HasSuffix(l.src, "\n") {
		rows++
	}
	eof := Pos{Row: rows + 1}
	for range l.indents[1:] {
		l.emit(DEDENT, "", eof, len(l.src), eof, len(l.src))
	}
	l.indents = l.indents[:1]
	l.emit(ENDMARKER, "", eof, len(l.src), eof, len(l.src))
	return nil
}

func (l *lexer) emit(typ Type, text string, start Pos, startAbs int, end Pos, endAbs int) {
	l.toks = append(l.toks, Token{
		Type:  typ,
		Text:  text,
		Lead:  l.src[l.lastEnd:startAbs],
		Start: start,
		End:   end,
	})
	l.lastEnd = endAbs
}

// emitAt emits a token contained in the current line.
func (l *lexer) emitAt(typ Type, text string, startCol, endCol int) {
	l.emit(typ, text,
		Pos{Row: l.lnum, Col: startCol}, l.lineOff+startCol,
		Pos{Row: l.lnum, Col: endCol}, l.lineOff+endCol)
}

func (l *lexer) errorf(col int, format string, args ...any) error {
	return &Error{Pos: Pos{Row: l.lnum, Col: col}, Msg: fmt.Sprintf(format, args...)}
}

// line consumes one physical line (including its terminator). It reports
// done when the input is exhausted.
func (l *lexer) line(line string) (bool, error) {
	pos, max := 0, len(line)

	switch {
	case l.str != nil:
		if line == "" {
			if l.str.triple {
				return false, &Error{Pos: l.str.start, Msg: "unterminated triple-quoted string literal"}
			}
			return false, &Error{Pos: l.str.start, Msg: "unterminated string literal"}
		}
		end, ok := scanStringEnd(line, 0, l.str.delim)
		switch {
		case ok:
			l.emit(STRING, l.src[l.str.startAbs:l.lineOff+end],
				l.str.start, l.str.startAbs,
				Pos{Row: l.lnum, Col: end}, l.lineOff+end)
			l.pending = true
			l.str = nil
			pos = end
		case l.str.triple || endsWithContinuation(line):
			return false, nil
		default:
			return false, &Error{Pos: l.str.start, Msg: "unterminated string literal"}
		}

	case len(l.parens) == 0 && !l.continued:
		if line == "" {
			return true, nil
		}
		column := 0
	measure:
		for ; pos < max; pos++ {
			switch line[pos] {
			case ' ':
				column++
			case '\t':
				column = (column/tabSize + 1) * tabSize
			case '\f':
				column = 0
			default:
				break measure
			}
		}
		if pos == max {
			// whitespace-only last line without a terminator
			return true, nil
		}

		if c := line[pos]; c == '#' || c == '\r' || c == '\n' {
			if c == '#' {
				text := strings.TrimRight(line[pos:], "\r\n")
				l.emitAt(COMMENT, text, pos, pos+len(text))
				pos += len(text)
			}
			l.emitAt(NL, line[pos:], pos, max)
			return false, nil
		}

		if column > l.indents[len(l.indents)-1] {
			l.indents = append(l.indents, column)
			l.emitAt(INDENT, line[:pos], 0, pos)
		}
		for column < l.indents[len(l.indents)-1] {
			if !containsInt(l.indents, column) {
				return false, l.errorf(pos, "unindent does not match any outer indentation level")
			}
			l.indents = l.indents[:len(l.indents)-1]
			l.emitAt(DEDENT, "", pos, pos)
		}

	default:
		if line == "" {
			return false, l.errorf(0, "unexpected EOF in multi-line statement")
		}
		l.continued = false
	}

	for pos < max {
		for pos < max && isBlank(line, pos) {
			pos++
		}
		if pos >= max {
			break
		}
		start := pos
		c := line[pos]

		switch {
		case c == '\r' || c == '\n':
			typ := NEWLINE
			if len(l.parens) > 0 {
				typ = NL
			} else {
				l.pending = false
			}
			l.emitAt(typ, line[pos:], pos, max)
			pos = max

		case c == '#':
			text := strings.TrimRight(line[pos:], "\r\n")
			l.emitAt(COMMENT, text, pos, pos+len(text))
			pos += len(text)

		case isDigit(c) || (c == '.' && pos+1 < max && isDigit(line[pos+1])):
			pos = scanNumber(line, pos)
			l.emitAt(NUMBER, line[start:pos], start, pos)
			l.pending = true

		case c == '\\':
			switch line[pos+1:] {
			case "\n", "\r\n", "":
				l.continued = true
				pos = max
			default:
				return false, l.errorf(pos+1, "unexpected character after line continuation character")
			}

		default:
			if qi, ok := stringStart(line, pos); ok {
				delim := line[qi : qi+1]
				triple := strings.HasPrefix(line[qi:], strings.Repeat(delim, 3))
				if triple {
					delim = strings.Repeat(delim, 3)
				}
				end, found := scanStringEnd(line, qi+len(delim), delim)
				switch {
				case found:
					pos = end
					l.emitAt(STRING, line[start:pos], start, pos)
					l.pending = true
				case triple || endsWithContinuation(line):
					l.str = &openString{
						start:    Pos{Row: l.lnum, Col: start},
						startAbs: l.lineOff + start,
						delim:    delim,
						triple:   triple,
					}
					return false, nil
				default:
					return false, l.errorf(start, "unterminated string literal")
				}
				continue
			}

			if r, _ := utf8.DecodeRuneInString(line[pos:]); isIdentStart(r) {
				pos = scanIdent(line, pos)
				l.emitAt(NAME, line[start:pos], start, pos)
				l.pending = true
				continue
			}

			op := matchOperator(line[pos:])
			if op == "" {
				r, _ := utf8.DecodeRuneInString(line[pos:])
				return false, l.errorf(pos, "invalid character %q", r)
			}
			if err := l.bracket(op, pos); err != nil {
				return false, err
			}
			pos += len(op)
			l.emitAt(OP, op, start, pos)
			l.pending = true
		}
	}

	if !strings.HasSuffix(line, "\n") && l.pending && len(l.parens) == 0 && !l.continued {
		l.emitAt(NEWLINE, "", max, max)
		l.pending = false
	}
	return false, nil
}

func (l *lexer) bracket(op string, col int) error {
	switch op {
	case "(", "[", "{":
		l.parens = append(l.parens, op[0])
	case ")", "]", "}":
		if len(l.parens) == 0 {
			return l.errorf(col, "unmatched '%s'", op)
		}
		open := l.parens[len(l.parens)-1]
		if closerOf(open) != op[0] {
			return l.errorf(col, "closing parenthesis '%s' does not match opening parenthesis '%c'", op, open)
		}
		l.parens = l.parens[:len(l.parens)-1]
	}
	return nil
}

func closerOf(open byte) byte {
	switch open {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}

var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"!=", "%=", "&=", "**", "*=", "+=", "-=", "->", "//", "/=", ":=",
	"<<", "<=", "==", ">=", ">>", "@=", "^=", "|=",
	"%", "&", "(", ")", "*", "+", ",", "-", ".", "/", ":", ";",
	"<", "=", ">", "@", "[", "]", "^", "{", "|", "}", "~",
}

func matchOperator(s string) string {
	for _, op := range operators {
		if strings.HasPrefix(s, op) {
			return op
		}
	}
	return ""
}

var stringPrefixes = map[string]bool{
	"": true, "r": true, "u": true, "f": true, "b": true,
	"br": true, "rb": true, "fr": true, "rf": true,
}

// stringStart reports whether a string literal (with optional prefix)
// starts at pos, returning the index of its opening quote.
func stringStart(line string, pos int) (int, bool) {
	i := pos
	for i < len(line) && i-pos < 2 && strings.IndexByte("rRbBuUfF", line[i]) >= 0 {
		i++
	}
	if i >= len(line) || (line[i] != '"' && line[i] != '\'') {
		return 0, false
	}
	if !stringPrefixes[strings.ToLower(line[pos:i])] {
		return 0, false
	}
	return i, true
}

// scanStringEnd looks for delim in line starting at i, honouring backslash
// escapes. It returns the offset just past the delimiter.
func scanStringEnd(line string, i int, delim string) (int, bool) {
	for i < len(line) {
		switch {
		case line[i] == '\\':
			i += 2
		case strings.HasPrefix(line[i:], delim):
			return i + len(delim), true
		default:
			i++
		}
	}
	return 0, false
}

func endsWithContinuation(line string) bool {
	return strings.HasSuffix(line, "\\\n") || strings.HasSuffix(line, "\\\r\n")
}

func scanNumber(s string, i int) int {
	if s[i] == '0' && i+1 < len(s) && strings.IndexByte("xXoObB", s[i+1]) >= 0 {
		i += 2
		for i < len(s) && (isHexDigit(s[i]) || s[i] == '_') {
			i++
		}
		return i
	}
	i = scanDigits(s, i)
	if i < len(s) && s[i] == '.' {
		i = scanDigits(s, i+1)
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			i = scanDigits(s, j)
		}
	}
	if i < len(s) && (s[i] == 'j' || s[i] == 'J') {
		i++
	}
	return i
}

func scanDigits(s string, i int) int {
	for i < len(s) && (isDigit(s[i]) || s[i] == '_') {
		i++
	}
	return i
}

func scanIdent(s string, i int) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isIdentContinue(r) {
			break
		}
		i += size
	}
	return i
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.Is(unicode.Nl, r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) ||
		unicode.In(r, unicode.Mn, unicode.Mc, unicode.Nd, unicode.Pc)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// isBlank reports whitespace between tokens. A carriage return only counts
// when it is not part of a CRLF terminator.
func isBlank(line string, i int) bool {
	switch line[i] {
	case ' ', '\t', '\f':
		return true
	case '\r':
		return i+1 < len(line) && line[i+1] != '\n'
	}
	return false
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
