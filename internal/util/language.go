package util

import (
	"path/filepath"
	"strings"
)

// Known source extensions. Only languages listed in supportedLanguages can
// be documented; the rest are recognized so they can be reported by name.
var languageExtensions = map[string]string{
	".py":    "python",
	".pyw":   "python",
	".pyi":   "python",
	".go":    "go",
	".js":    "javascript",
	".ts":    "typescript",
	".java":  "java",
	".rs":    "rust",
	".c":     "c",
	".cpp":   "cpp",
	".rb":    "ruby",
	".php":   "php",
}

var supportedLanguages = map[string]bool{
	"python": true,
}

// GetLanguageFromExtension returns the language name for a file extension.
// Returns empty string if unknown.
func GetLanguageFromExtension(ext string) string {
	return languageExtensions[strings.ToLower(ext)]
}

// GetLanguageFromPath returns the language name for a file path.
func GetLanguageFromPath(filePath string) string {
	return GetLanguageFromExtension(filepath.Ext(filePath))
}

// IsSupportedLanguage reports whether lang can be documented.
func IsSupportedLanguage(lang string) bool {
	return supportedLanguages[strings.ToLower(lang)]
}

// IsSupportedFile returns true if the file is in a supported language.
func IsSupportedFile(filePath string) bool {
	return IsSupportedLanguage(GetLanguageFromPath(filePath))
}

// SplitLanguages separates the supported entries of langs from the rest.
// An empty list means every supported language.
func SplitLanguages(langs []string) (supported, ignored []string) {
	if len(langs) == 0 {
		return []string{"python"}, nil
	}
	seen := make(map[string]bool)
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		if IsSupportedLanguage(l) {
			supported = append(supported, l)
		} else {
			ignored = append(ignored, l)
		}
	}
	return supported, ignored
}
