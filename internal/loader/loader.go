package loader

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/duyhunghd6/fastdoc-cli/internal/util"
)

var (
	// ErrExcludeNotFound is returned when a plain exclude entry names a
	// path that does not exist under the root.
	ErrExcludeNotFound = errors.New("exclude path not found")
	// ErrUnsupported is returned when a single file is not in a supported
	// language.
	ErrUnsupported = errors.New("unsupported file")
)

// FileInfo represents a loaded file from the repository.
type FileInfo struct {
	Path         string `json:"path"`
	RelativePath string `json:"relative_path"`
	Language     string `json:"language"`
	Size         int64  `json:"size"`
}

// Config holds loader configuration.
type Config struct {
	MaxFileSize int64    // Maximum file size in bytes, 0 for no limit
	ExcludeDirs []string // Directory names skipped at any depth
	Exclude     []string // Relative paths, names or doublestar globs
	Languages   []string // Languages to load; empty means all supported
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() Config {
	return Config{
		MaxFileSize: 1024 * 1024,
		ExcludeDirs: []string{
			".git", ".hg", ".svn", "__pycache__", ".venv", "venv",
			".tox", ".mypy_cache", ".pytest_cache", "node_modules",
		},
	}
}

// Repository represents a set of source files under one root.
type Repository struct {
	RootPath string
	Name     string
	Files    []FileInfo
	// Skipped lists relative paths left out because they exceed MaxFileSize.
	Skipped []string
}

// Load returns the supported files under path. A file path yields a
// repository holding just that file.
func Load(path string, cfg Config) (*Repository, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot access %q: %w", abs, err)
	}
	if info.IsDir() {
		return LoadRepository(abs, cfg)
	}

	lang := util.GetLanguageFromPath(abs)
	if !languageSet(cfg.Languages)[lang] {
		if lang == "" {
			lang = "unknown"
		}
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, abs, lang)
	}
	return &Repository{
		RootPath: filepath.Dir(abs),
		Name:     filepath.Base(abs),
		Files: []FileInfo{{
			Path:         abs,
			RelativePath: filepath.Base(abs),
			Language:     lang,
			Size:         info.Size(),
		}},
	}, nil
}

// LoadRepository walks a directory and returns all supported source files,
// sorted by relative path.
func LoadRepository(rootPath string, cfg Config) (*Repository, error) {
	absRoot, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", rootPath, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot access %q: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", absRoot)
	}

	excludes, err := checkExcludes(absRoot, cfg.Exclude)
	if err != nil {
		return nil, err
	}

	repo := &Repository{
		RootPath: absRoot,
		Name:     filepath.Base(absRoot),
	}

	ignore := gitignore.NewMatcher(loadGitignore(absRoot))
	submodules := loadSubmodules(absRoot)
	langs := languageSet(cfg.Languages)

	excludeDirSet := make(map[string]bool, len(cfg.ExcludeDirs))
	for _, d := range cfg.ExcludeDirs {
		excludeDirSet[d] = true
	}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if path == absRoot {
			return nil
		}

		relPath := util.RelativePath(absRoot, path)
		parts := strings.Split(relPath, "/")

		if d.IsDir() {
			if excludeDirSet[d.Name()] || submodules[relPath] ||
				ignore.Match(parts, true) || isExcluded(excludes, relPath, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		lang := util.GetLanguageFromPath(path)
		if !langs[lang] {
			return nil
		}
		if ignore.Match(parts, false) || isExcluded(excludes, relPath, d.Name()) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return nil
		}
		if cfg.MaxFileSize > 0 && fi.Size() > cfg.MaxFileSize {
			repo.Skipped = append(repo.Skipped, relPath)
			return nil
		}

		repo.Files = append(repo.Files, FileInfo{
			Path:         path,
			RelativePath: relPath,
			Language:     lang,
			Size:         fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk error: %w", err)
	}

	sort.Slice(repo.Files, func(i, j int) bool {
		return repo.Files[i].RelativePath < repo.Files[j].RelativePath
	})
	return repo, nil
}

func languageSet(langs []string) map[string]bool {
	supported, _ := util.SplitLanguages(langs)
	set := make(map[string]bool, len(supported))
	for _, l := range supported {
		set[l] = true
	}
	return set
}

// checkExcludes normalizes the exclude entries. Entries without glob
// metacharacters must exist under root.
func checkExcludes(root string, entries []string) ([]string, error) {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSuffix(filepath.ToSlash(strings.TrimSpace(e)), "/")
		e = strings.TrimPrefix(e, "./")
		if e == "" {
			continue
		}
		if !strings.ContainsAny(e, "*?[{") {
			if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(e))); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrExcludeNotFound, e)
			}
		}
		if !doublestar.ValidatePattern(e) {
			return nil, fmt.Errorf("invalid exclude pattern %q", e)
		}
		out = append(out, e)
	}
	return out, nil
}

// isExcluded matches an entry against the relative path, its directory
// prefixes and the base name.
func isExcluded(excludes []string, relPath, base string) bool {
	for _, pat := range excludes {
		if relPath == pat || strings.HasPrefix(relPath, pat+"/") {
			return true
		}
		if matched, err := doublestar.Match(pat, relPath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pat, base); err == nil && matched {
			return true
		}
	}
	return false
}

// loadGitignore reads .gitignore patterns from the repository root.
func loadGitignore(rootPath string) []gitignore.Pattern {
	f, err := os.Open(filepath.Join(rootPath, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []gitignore.Pattern
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}

// loadSubmodules returns the relative paths declared in .gitmodules.
// Submodules belong to other projects and are never documented.
func loadSubmodules(rootPath string) map[string]bool {
	data, err := os.ReadFile(filepath.Join(rootPath, ".gitmodules"))
	if err != nil {
		return nil
	}
	modules := gitconfig.NewModules()
	if err := modules.Unmarshal(data); err != nil {
		return nil
	}
	paths := make(map[string]bool, len(modules.Submodules))
	for _, sm := range modules.Submodules {
		if sm.Path != "" {
			paths[strings.TrimSuffix(filepath.ToSlash(sm.Path), "/")] = true
		}
	}
	return paths
}
