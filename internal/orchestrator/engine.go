package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/duyhunghd6/fastdoc-cli/internal/cache"
	"github.com/duyhunghd6/fastdoc-cli/internal/config"
	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
	"github.com/duyhunghd6/fastdoc-cli/internal/loader"
	"github.com/duyhunghd6/fastdoc-cli/internal/logger"
	"github.com/duyhunghd6/fastdoc-cli/internal/prompt"
	"github.com/duyhunghd6/fastdoc-cli/internal/stage"
	"github.com/duyhunghd6/fastdoc-cli/internal/types"
	"github.com/duyhunghd6/fastdoc-cli/internal/util"
)

// ErrNoLanguage is returned when the configured languages include none
// that can be documented.
var ErrNoLanguage = errors.New("no supported language configured")

// Engine is the top-level orchestrator: it loads files, stages them and
// runs a Documenter over each one.
type Engine struct {
	cfg     *config.Config
	log     logger.Logger
	backend llm.Completer
	cache   *cache.Completer
	prompts *prompt.Set
	lockDir string
}

// NewEngine builds the backend named in cfg and wraps it with the
// completion cache when enabled.
func NewEngine(cfg *config.Config, log logger.Logger) (*Engine, error) {
	backend, err := llm.New(cfg.Backend, llm.Params{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Reply:       cfg.MockReply,
	})
	if err != nil {
		return nil, fmt.Errorf("init backend: %w", err)
	}
	return NewEngineWith(cfg, backend, log)
}

// NewEngineWith uses backend as given instead of building one from cfg.
func NewEngineWith(cfg *config.Config, backend llm.Completer, log logger.Logger) (*Engine, error) {
	if log == nil {
		log = logger.Nop()
	}
	prompts, err := prompt.Load(cfg.Prompts, cfg.Placeholder)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	e := &Engine{cfg: cfg, log: log, backend: backend, prompts: prompts}

	if cfg.Cache.Enabled && cfg.Cache.Size > 0 {
		var store *cache.Store
		if cfg.Cache.Dir != "" {
			store = cache.NewStore(cfg.Cache.Dir)
		}
		c, err := cache.New(backend, cfg.Backend, cfg.Model, cfg.Cache.Size, store)
		if err != nil {
			log.Warn("completion cache disabled", "error", err)
		} else {
			e.cache = c
			e.backend = c
		}
	}
	return e, nil
}

// RunOptions are per-run switches that do not belong in the config file.
type RunOptions struct {
	DryRun bool
	Diff   bool
}

// Documenter returns a Documenter configured like the engine's runs.
func (e *Engine) Documenter(ro RunOptions) (*Documenter, error) {
	return NewDocumenter(e.backend, e.prompts, Options{
		Elements:       e.cfg.Elements,
		Overwrite:      e.cfg.Overwrite,
		Nesting:        extract.Nesting(e.cfg.Nesting),
		Timeout:        e.cfg.Timeout,
		Retries:        e.cfg.Retries,
		DryRun:         ro.DryRun,
		Diff:           ro.Diff,
		ValidateSyntax: e.cfg.ValidateSyntax,
	}, e.log)
}

func (e *Engine) loaderConfig(langs []string) loader.Config {
	lc := loader.DefaultConfig()
	lc.MaxFileSize = e.cfg.MaxFileSize
	lc.Exclude = e.cfg.Exclude
	lc.Languages = langs
	return lc
}

// Run documents the file or directory at path. Files are processed one
// after the other; a failing file is recorded and the run goes on. The
// staged result is committed even when ctx is cancelled midway.
func (e *Engine) Run(ctx context.Context, path string, ro RunOptions) (*types.RunReport, error) {
	started := time.Now()
	langs, ignored := util.SplitLanguages(e.cfg.Languages)
	for _, l := range ignored {
		e.log.Warn("language not supported, ignoring", "language", l)
	}
	if len(langs) == 0 {
		return nil, ErrNoLanguage
	}

	repo, err := loader.Load(path, e.loaderConfig(langs))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Info("loaded files", "root", repo.RootPath, "files", len(repo.Files))
	for _, rel := range repo.Skipped {
		e.log.Warn("file over size limit, skipping", "file", rel, "max_file_size", e.cfg.MaxFileSize)
	}

	doc, err := e.Documenter(ro)
	if err != nil {
		return nil, err
	}

	run := &types.RunReport{
		Root:    repo.RootPath,
		Backend: e.cfg.Backend,
		Model:   e.cfg.Model,
		DryRun:  ro.DryRun,
		Skipped: repo.Skipped,
		Started: started,
	}

	workRoot := repo.RootPath
	var st *stage.Stage
	if !ro.DryRun {
		st, err = stage.Open(path, stage.Options{
			Rewrite: e.cfg.Rewrite,
			Surname: e.cfg.Surname,
			LockDir: e.lockDir,
		})
		if err != nil {
			return nil, err
		}
		defer st.Close()
		workRoot = st.WorkRoot()
	}

	var changed []string
	for _, f := range repo.Files {
		if ctx.Err() != nil {
			run.Cancelled = true
			break
		}
		work := filepath.Join(workRoot, filepath.FromSlash(f.RelativePath))
		fr, err := doc.documentFile(ctx, work, f.RelativePath)
		fr.Path = f.Path
		fr.Module = util.FilePathToModulePath(f.RelativePath)
		if err != nil {
			e.log.Error("document file", "file", f.RelativePath, "error", err)
		}
		if fr.Changed && err == nil {
			changed = append(changed, f.RelativePath)
		}
		if fr.Cancelled {
			run.Cancelled = true
		}
		run.Files = append(run.Files, fr)
	}

	if st != nil && (len(changed) > 0 || !e.cfg.Rewrite) {
		written, err := st.Commit(changed)
		run.Written = written
		if err != nil {
			return run, fmt.Errorf("commit: %w", err)
		}
	}

	if e.cache != nil {
		run.CacheHits, run.CacheMisses = e.cache.Stats()
		if err := e.cache.Flush(); err != nil {
			e.log.Warn("save completion cache", "error", err)
		}
	}
	run.Elapsed = time.Since(started)
	return run, nil
}
