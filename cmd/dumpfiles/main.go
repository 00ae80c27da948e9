package main

import (
	"fmt"
	"os"

	"github.com/duyhunghd6/fastdoc-cli/internal/loader"
)

// dumpfiles prints the files a document run would visit, followed by
// the ones left out for size.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: dumpfiles <path>")
		os.Exit(2)
	}
	cfg := loader.DefaultConfig()
	cfg.Exclude = os.Args[2:]
	repo, err := loader.Load(os.Args[1], cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, f := range repo.Files {
		fmt.Printf("%d\t%s\n", f.Size, f.RelativePath)
	}
	for _, p := range repo.Skipped {
		fmt.Fprintf(os.Stderr, "skipped (too large): %s\n", p)
	}
}
