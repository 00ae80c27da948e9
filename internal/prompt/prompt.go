// Package prompt renders the per-kind prompt templates sent to the
// completion backend.
package prompt

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/duyhunghd6/fastdoc-cli/internal/config"
	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
)

//go:embed templates/*.txt
var defaults embed.FS

// Set holds one template per element kind.
type Set struct {
	placeholder string
	templates   map[extract.ElementKind]string
}

// Load reads the template files named in files (keyed by kind name) and
// falls back to the built-in template for any kind left out. Every
// template must contain placeholder.
func Load(files map[string]string, placeholder string) (*Set, error) {
	if placeholder == "" {
		placeholder = config.DefaultPlaceholder
	}
	s := &Set{placeholder: placeholder, templates: make(map[extract.ElementKind]string)}

	for _, kind := range extract.Kinds {
		var text string
		if path, ok := files[kind.String()]; ok && path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s prompt: %w", kind, err)
			}
			text = string(data)
		} else {
			data, err := defaults.ReadFile("templates/" + kind.String() + ".txt")
			if err != nil {
				return nil, fmt.Errorf("read built-in %s prompt: %w", kind, err)
			}
			text = strings.ReplaceAll(string(data), config.DefaultPlaceholder, placeholder)
		}
		if !strings.Contains(text, placeholder) {
			return nil, fmt.Errorf("%s prompt has no %q placeholder", kind, placeholder)
		}
		s.templates[kind] = text
	}

	for name := range files {
		if _, err := extract.ParseKind(name); err != nil {
			return nil, fmt.Errorf("prompts: %w", err)
		}
	}
	return s, nil
}

// Default returns the built-in templates.
func Default() *Set {
	s, err := Load(nil, config.DefaultPlaceholder)
	if err != nil {
		panic(err)
	}
	return s
}

// Render substitutes source for the placeholder, verbatim.
func (s *Set) Render(kind extract.ElementKind, source string) string {
	return strings.ReplaceAll(s.templates[kind], s.placeholder, source)
}
