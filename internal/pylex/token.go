package pylex

import "fmt"

// Type is the lexical class of a token, following the names used by the
// Python tokenize module.
type Type int

const (
	ENDMARKER Type = iota
	NAME
	NUMBER
	STRING
	NEWLINE
	INDENT
	DEDENT
	OP
	COMMENT
	NL
	ENCODING
)

var typeNames = [...]string{
	ENDMARKER: "ENDMARKER",
	NAME:      "NAME",
	NUMBER:    "NUMBER",
	STRING:    "STRING",
	NEWLINE:   "NEWLINE",
	INDENT:    "INDENT",
	DEDENT:    "DEDENT",
	OP:        "OP",
	COMMENT:   "COMMENT",
	NL:        "NL",
	ENCODING:  "ENCODING",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Pos is a position in the source. Row is 1-based, Col is a 0-based byte
// offset within the row.
type Pos struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Token is one lexical unit.
type Token struct {
	Type  Type   `json:"type"`
	Text  string `json:"text"`
	Lead  string `json:"lead,omitempty"` // source bytes between the previous token and this one
	Start Pos    `json:"start"`
	End   Pos    `json:"end"`
}

func (t Token) String() string {
	return fmt.Sprintf("%d,%d-%d,%d:\t%s\t%q", t.Start.Row, t.Start.Col, t.End.Row, t.End.Col, t.Type, t.Text)
}

// Error reports a lexical error at a source position.
type Error struct {
	Pos Pos
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Row, e.Pos.Col, e.Msg)
}
