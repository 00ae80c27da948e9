package treesitter

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser wraps go-tree-sitter with a per-language grammar cache.
type Parser struct {
	mu       sync.Mutex
	parser   *sitter.Parser
	langName string
	cache    map[string]*sitter.Language
}

// New creates a new Parser initialized for the given language.
func New(language string) (*Parser, error) {
	p := &Parser{
		parser: sitter.NewParser(),
		cache:  make(map[string]*sitter.Language),
	}
	if err := p.SetLanguage(language); err != nil {
		return nil, err
	}
	return p, nil
}

// SetLanguage switches the parser to a different language.
func (p *Parser) SetLanguage(language string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	lang, err := p.getLanguage(language)
	if err != nil {
		return err
	}
	p.parser.SetLanguage(lang)
	p.langName = language
	return nil
}

// Parse parses source code and returns a tree-sitter Tree. The caller
// closes the tree.
func (p *Parser) Parse(ctx context.Context, code []byte) (*sitter.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// Language returns the current language name.
func (p *Parser) Language() string {
	return p.langName
}

// getLanguage returns the sitter.Language for the given name, using cache.
func (p *Parser) getLanguage(name string) (*sitter.Language, error) {
	if lang, ok := p.cache[name]; ok {
		return lang, nil
	}

	var lang *sitter.Language
	switch name {
	case "python":
		lang = python.GetLanguage()
	default:
		return nil, fmt.Errorf("unsupported language: %s", name)
	}

	p.cache[name] = lang
	return lang, nil
}

// Problem is a node tree-sitter could not fit into the grammar.
type Problem struct {
	Line    int // 1-based
	Column  int // 0-based byte column
	Missing bool
	Text    string
}

// FirstProblem returns the first ERROR or MISSING node in document order.
func FirstProblem(root *sitter.Node, code []byte) (Problem, bool) {
	if !root.HasError() {
		return Problem{}, false
	}
	return firstProblem(root, code)
}

func firstProblem(n *sitter.Node, code []byte) (Problem, bool) {
	if n.IsMissing() || n.IsError() {
		pt := n.StartPoint()
		return Problem{
			Line:    int(pt.Row) + 1,
			Column:  int(pt.Column),
			Missing: n.IsMissing(),
			Text:    n.Content(code),
		}, true
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !child.HasError() && !child.IsMissing() {
			continue
		}
		if p, ok := firstProblem(child, code); ok {
			return p, true
		}
	}
	return Problem{}, false
}
