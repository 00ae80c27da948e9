package util

import (
	"path/filepath"
	"strings"
)

// RelativePath returns the slash-separated path of target relative to base.
func RelativePath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// FilePathToModulePath converts a file path to a dotted Python module path.
// e.g., "pkg/sub/mod.py" → "pkg.sub.mod", "pkg/__init__.py" → "pkg"
func FilePathToModulePath(filePath string) string {
	noExt := strings.TrimSuffix(filepath.ToSlash(filePath), filepath.Ext(filePath))
	noExt = strings.TrimSuffix(noExt, "/__init__")
	return strings.ReplaceAll(noExt, "/", ".")
}

// SiblingPath returns path with surname appended to the base name, before
// the extension: ("a/b.py", "_analysed") → "a/b_analysed.py". Directories
// get the surname at the end.
func SiblingPath(path, surname string, isDir bool) string {
	path = filepath.Clean(path)
	if isDir {
		return path + surname
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + surname + ext
}

// CountLines returns the number of lines in a string.
func CountLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	// If the string doesn't end with a newline, count the last line
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// ExtractLines extracts lines [startLine, endLine] (1-indexed, inclusive) from content.
func ExtractLines(content string, startLine, endLine int) string {
	lines := strings.Split(content, "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return ""
	}
	return strings.Join(lines[startLine-1:endLine], "\n")
}
