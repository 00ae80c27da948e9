package parser

import (
	"context"
	"fmt"

	"github.com/duyhunghd6/fastdoc-cli/internal/util"
	ts "github.com/duyhunghd6/fastdoc-cli/pkg/treesitter"
)

// Parser checks and inspects Python sources with tree-sitter.
type Parser struct {
	tsParser *ts.Parser
}

// New creates a new code parser.
func New() (*Parser, error) {
	p, err := ts.New("python")
	if err != nil {
		return nil, fmt.Errorf("init tree-sitter: %w", err)
	}
	return &Parser{tsParser: p}, nil
}

// SyntaxError reports the first place tree-sitter could not parse.
type SyntaxError struct {
	Path    string
	Line    int
	Column  int
	Missing bool
	Text    string
}

func (e *SyntaxError) Error() string {
	what := "invalid syntax"
	if e.Missing {
		what = "missing " + e.Text
	} else if e.Text != "" {
		what = fmt.Sprintf("invalid syntax near %q", util.ExtractLines(e.Text, 1, 1))
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, what)
}

// Validate returns a *SyntaxError when content does not parse cleanly.
func (p *Parser) Validate(ctx context.Context, path, content string) error {
	code := []byte(content)
	tree, err := p.tsParser.Parse(ctx, code)
	if err != nil {
		return err
	}
	defer tree.Close()

	prob, ok := ts.FirstProblem(tree.RootNode(), code)
	if !ok {
		return nil
	}
	return &SyntaxError{
		Path:    path,
		Line:    prob.Line,
		Column:  prob.Column,
		Missing: prob.Missing,
		Text:    prob.Text,
	}
}

// Definitions returns every function and class definition of content,
// nested ones included, in source order.
func (p *Parser) Definitions(ctx context.Context, content string) ([]Definition, error) {
	code := []byte(content)
	tree, err := p.tsParser.Parse(ctx, code)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var defs []Definition
	collectDefinitions(tree.RootNode(), code, "", &defs)
	return defs, nil
}
