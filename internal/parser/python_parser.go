package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Definition is a function or class as tree-sitter sees it.
type Definition struct {
	Kind      string `json:"kind"` // "function" or "class"
	Name      string `json:"name"`
	Parent    string `json:"parent,omitempty"` // dotted path of enclosing definitions
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	StartByte int    `json:"start_byte"`
	EndByte   int    `json:"end_byte"`
	Docstring string `json:"docstring,omitempty"`
	IsAsync   bool   `json:"is_async,omitempty"`
	// Decorators are kept in source order.
	Decorators []string `json:"decorators,omitempty"`
	// Inline is set when the body sits on the header line.
	Inline bool `json:"inline,omitempty"`
}

// QualifiedName joins the enclosing definitions and the name with dots.
func (d Definition) QualifiedName() string {
	if d.Parent == "" {
		return d.Name
	}
	return d.Parent + "." + d.Name
}

// collectDefinitions walks the tree depth first. Definitions inside any
// statement (if, try, with, ...) are found too.
func collectDefinitions(node *sitter.Node, code []byte, parent string, out *[]Definition) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition", "class_definition":
			d := extractPythonDefinition(child, code, parent)
			*out = append(*out, d)
			if body := child.ChildByFieldName("body"); body != nil {
				collectDefinitions(body, code, d.QualifiedName(), out)
			}
		case "decorated_definition":
			def := child.ChildByFieldName("definition")
			if def == nil {
				continue
			}
			d := extractPythonDefinition(def, code, parent)
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if dec := child.NamedChild(j); dec.Type() == "decorator" {
					d.Decorators = append(d.Decorators, dec.Content(code))
				}
			}
			*out = append(*out, d)
			if body := def.ChildByFieldName("body"); body != nil {
				collectDefinitions(body, code, d.QualifiedName(), out)
			}
		default:
			collectDefinitions(child, code, parent, out)
		}
	}
}

func extractPythonDefinition(node *sitter.Node, code []byte, parent string) Definition {
	d := Definition{
		Kind:      "function",
		Parent:    parent,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
	}
	if node.Type() == "class_definition" {
		d.Kind = "class"
	}
	if name := node.ChildByFieldName("name"); name != nil {
		d.Name = name.Content(code)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		d.Docstring = extractPythonBlockDocstring(body, code)
		d.Inline = body.StartPoint().Row == node.StartPoint().Row
	}
	if strings.HasPrefix(node.Content(code), "async") {
		d.IsAsync = true
	}
	return d
}

func extractPythonBlockDocstring(block *sitter.Node, code []byte) string {
	if block.NamedChildCount() == 0 {
		return ""
	}
	first := block.NamedChild(0)
	if first.Type() == "expression_statement" && first.NamedChildCount() > 0 {
		expr := first.NamedChild(0)
		if expr.Type() == "string" {
			return cleanPythonDocstring(expr.Content(code))
		}
	}
	return ""
}

func cleanPythonDocstring(raw string) string {
	s := strings.TrimLeft(raw, "rRuUbB")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}
