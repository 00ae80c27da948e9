package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/loader"
	"github.com/duyhunghd6/fastdoc-cli/internal/splice"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
	"github.com/duyhunghd6/fastdoc-cli/internal/util"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: dumpelems <path>")
		os.Exit(2)
	}
	repo, err := loader.Load(os.Args[1], loader.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Count per-file element breakdown
	fileCounts := make(map[string]int)
	fileLines := make(map[string]int)
	typeCounts := make(map[string]int)
	undocumented := 0
	total := 0
	for _, f := range repo.Files {
		toks, src, err := tokenizer.TokenizeFile(f.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", f.RelativePath, err)
			continue
		}
		res := extract.Extract(toks, extract.Options{})
		doc := splice.NewDocument(res.Text, res.Elements)
		for _, el := range res.Elements {
			if _, ok := doc.Existing(el.ID); !ok && !el.Inline {
				undocumented++
			}
		}
		for _, k := range extract.Kinds {
			typeCounts[k.String()] += len(res.ByKind(k))
		}
		fileCounts[f.RelativePath] = len(res.Elements)
		fileLines[f.RelativePath] = util.CountLines(src.Text)
		total += len(res.Elements)
	}

	paths := make([]string, 0, len(fileCounts))
	for p := range fileCounts {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		fmt.Printf("%d\t%d\t%s\n", fileCounts[p], fileLines[p], p)
	}

	fmt.Fprintf(os.Stderr, "Total elements: %d (%d without docstring)\n", total, undocumented)
	for t, c := range typeCounts {
		fmt.Fprintf(os.Stderr, "  %s: %d\n", t, c)
	}
}
