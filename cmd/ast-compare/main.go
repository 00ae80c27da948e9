package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/loader"
	"github.com/duyhunghd6/fastdoc-cli/internal/parser"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
)

// element is what both sides agree on: kind, name and header line.
type element struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	Line int    `json:"line"`
}

type fileDiff struct {
	File       string    `json:"file"`
	OnlyTokens []element `json:"only_tokens,omitempty"`
	OnlyTree   []element `json:"only_tree_sitter,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// compareFile diffs the token-level extractor against tree-sitter.
func compareFile(ctx context.Context, p *parser.Parser, path string) (fileDiff, int, error) {
	var d fileDiff
	toks, f, err := tokenizer.TokenizeFile(path)
	if err != nil {
		return d, 0, err
	}
	res := extract.Extract(toks, extract.Options{})
	defs, err := p.Definitions(ctx, f.Text)
	if err != nil {
		return d, 0, err
	}

	seen := make(map[element]int)
	for _, el := range res.Elements {
		seen[element{el.Kind.String(), el.Name, el.Line}]++
	}
	for _, def := range defs {
		e := element{def.Kind, def.Name, def.StartLine}
		if seen[e] > 0 {
			seen[e]--
			continue
		}
		d.OnlyTree = append(d.OnlyTree, e)
	}
	for _, el := range res.Sorted() {
		e := element{el.Kind.String(), el.Name, el.Line}
		if seen[e] > 0 {
			seen[e]--
			d.OnlyTokens = append(d.OnlyTokens, e)
		}
	}
	return d, len(res.Elements), nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ast-compare <path>")
		os.Exit(2)
	}
	repo, err := loader.Load(os.Args[1], loader.DefaultConfig())
	if err != nil {
		fmt.Printf("Error loading %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	p, err := parser.New()
	if err != nil {
		fmt.Printf("Error creating parser: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	var diffs []fileDiff
	total := 0
	for _, f := range repo.Files {
		d, n, err := compareFile(ctx, p, f.Path)
		d.File = f.RelativePath
		total += n
		if err != nil {
			d.Error = err.Error()
		}
		if err != nil || len(d.OnlyTokens) > 0 || len(d.OnlyTree) > 0 {
			diffs = append(diffs, d)
		}
	}

	res := map[string]any{
		"files":    len(repo.Files),
		"elements": total,
		"diffs":    diffs,
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	if len(diffs) > 0 {
		os.Exit(1)
	}
}
