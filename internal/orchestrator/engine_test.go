package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duyhunghd6/fastdoc-cli/internal/config"
	"github.com/duyhunghd6/fastdoc-cli/internal/llm"
	"github.com/duyhunghd6/fastdoc-cli/internal/loader"
	"github.com/duyhunghd6/fastdoc-cli/internal/stage"
	"github.com/duyhunghd6/fastdoc-cli/internal/types"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Backend = "mock"
	cfg.Model = "mock"
	cfg.Cache.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, backend llm.Completer) *Engine {
	t.Helper()
	e, err := NewEngineWith(cfg, backend, nil)
	require.NoError(t, err)
	e.lockDir = t.TempDir()
	return e
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "proj")
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestEngineRun(t *testing.T) {
	root := writeRepo(t, map[string]string{
		"a.py":         twoFuncs,
		"pkg/b.py":     "class B:\n    \"\"\"Already.\"\"\"\n    pass\n",
		"pkg/notes.md": "# notes\n",
	})
	mock := llm.NewMock("Doc.")
	e := newTestEngine(t, testConfig(), mock)

	run, err := e.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)

	require.Len(t, run.Files, 2)
	assert.Equal(t, "a.py", run.Files[0].RelativePath)
	assert.Equal(t, filepath.Join(root, "a.py"), run.Files[0].Path)
	assert.Equal(t, "pkg.b", run.Files[1].Module)
	assert.Equal(t, 2, run.Counts()[types.StatusInserted])
	assert.Equal(t, 1, run.Counts()[types.StatusDocumented])
	assert.Equal(t, []string{filepath.Join(root, "a.py")}, run.Written)
	assert.False(t, run.Cancelled)

	assert.Equal(t, 2, strings.Count(readFile(t, filepath.Join(root, "a.py")), `"""Doc."""`))
	assert.Equal(t, "class B:\n    \"\"\"Already.\"\"\"\n    pass\n", readFile(t, filepath.Join(root, "pkg", "b.py")))
}

func TestEngineRunSingleFile(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs, "other.py": twoFuncs})
	e := newTestEngine(t, testConfig(), llm.NewMock("Doc."))

	run, err := e.Run(context.Background(), filepath.Join(root, "a.py"), RunOptions{})
	require.NoError(t, err)
	require.Len(t, run.Files, 1)
	assert.Contains(t, readFile(t, filepath.Join(root, "a.py")), `"""Doc."""`)
	assert.Equal(t, twoFuncs, readFile(t, filepath.Join(root, "other.py")))
}

func TestEngineRunCopyMode(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs, "b.py": "x = 1\n"})
	cfg := testConfig()
	cfg.Rewrite = false
	e := newTestEngine(t, cfg, llm.NewMock("Doc."))

	run, err := e.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)

	sibling := root + "_analysed"
	assert.Equal(t, []string{sibling}, run.Written)
	assert.Equal(t, twoFuncs, readFile(t, filepath.Join(root, "a.py")))
	assert.Contains(t, readFile(t, filepath.Join(sibling, "a.py")), `"""Doc."""`)
	assert.Equal(t, "x = 1\n", readFile(t, filepath.Join(sibling, "b.py")))
}

func TestEngineRunDryRun(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs})
	e := newTestEngine(t, testConfig(), llm.NewMock("Doc."))

	run, err := e.Run(context.Background(), root, RunOptions{DryRun: true, Diff: true})
	require.NoError(t, err)
	assert.True(t, run.DryRun)
	assert.Empty(t, run.Written)
	assert.Contains(t, run.Files[0].Diff, "+    \"\"\"Doc.\"\"\"")
	assert.Equal(t, twoFuncs, readFile(t, filepath.Join(root, "a.py")))
}

func TestEngineRunFailedFileDoesNotAbort(t *testing.T) {
	bad := "def f():\n    s = \"\"\"open\n"
	root := writeRepo(t, map[string]string{"a_bad.py": bad, "b_good.py": twoFuncs})
	e := newTestEngine(t, testConfig(), llm.NewMock("Doc."))

	run, err := e.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)
	require.Len(t, run.Failed(), 1)
	assert.Equal(t, "a_bad.py", run.Failed()[0].RelativePath)
	assert.Equal(t, bad, readFile(t, filepath.Join(root, "a_bad.py")))
	assert.Contains(t, readFile(t, filepath.Join(root, "b_good.py")), `"""Doc."""`)
}

func TestEngineRunCancelledCommitsProgress(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs, "b.py": twoFuncs})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	backend := llm.CompleterFunc(func(context.Context, string) (string, error) {
		cancel()
		return `"""Doc."""`, nil
	})
	e := newTestEngine(t, testConfig(), backend)

	run, err := e.Run(ctx, root, RunOptions{})
	require.NoError(t, err)
	assert.True(t, run.Cancelled)
	require.Len(t, run.Files, 1, "b.py is never started")
	assert.Equal(t, 1, run.Counts()[types.StatusInserted])
	assert.Equal(t, 1, run.Counts()[types.StatusCancelled])

	a := readFile(t, filepath.Join(root, "a.py"))
	assert.Equal(t, 1, strings.Count(a, `"""Doc."""`))
	assert.Equal(t, twoFuncs, readFile(t, filepath.Join(root, "b.py")))
}

func TestEngineRunErrors(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs, "main.go": "package main\n"})

	cfg := testConfig()
	cfg.Languages = []string{"go"}
	e := newTestEngine(t, cfg, llm.NewMock(""))
	_, err := e.Run(context.Background(), root, RunOptions{})
	assert.ErrorIs(t, err, ErrNoLanguage)

	cfg = testConfig()
	cfg.Exclude = []string{"tests"}
	e = newTestEngine(t, cfg, llm.NewMock(""))
	_, err = e.Run(context.Background(), root, RunOptions{})
	assert.ErrorIs(t, err, loader.ErrExcludeNotFound)

	e = newTestEngine(t, testConfig(), llm.NewMock(""))
	_, err = e.Run(context.Background(), filepath.Join(root, "main.go"), RunOptions{})
	assert.ErrorIs(t, err, loader.ErrUnsupported)
}

func TestEngineRunLocked(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs})
	e := newTestEngine(t, testConfig(), llm.NewMock("Doc."))

	held, err := stage.Open(root, stage.Options{Rewrite: true, LockDir: e.lockDir})
	require.NoError(t, err)
	defer held.Close()

	_, err = e.Run(context.Background(), root, RunOptions{})
	assert.True(t, errors.Is(err, stage.ErrLocked), "err = %v", err)
	assert.Equal(t, twoFuncs, readFile(t, filepath.Join(root, "a.py")))
}

func TestEngineCache(t *testing.T) {
	root := writeRepo(t, map[string]string{"a.py": twoFuncs, "b.py": twoFuncs})
	cfg := testConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = t.TempDir()
	cfg.Cache.Size = 16
	mock := llm.NewMock("Doc.")
	e := newTestEngine(t, cfg, mock)

	run, err := e.Run(context.Background(), root, RunOptions{})
	require.NoError(t, err)
	assert.Len(t, mock.Prompts(), 2, "b.py repeats a.py's prompts")
	assert.Equal(t, int64(2), run.CacheHits)
	assert.Equal(t, int64(2), run.CacheMisses)

	entries, err := os.ReadDir(cfg.Cache.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "cache snapshot flushed")
}

func TestNewEngineUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "pigeon"
	_, err := NewEngine(cfg, nil)
	assert.ErrorIs(t, err, llm.ErrUnknownBackend)
}

func TestNewEngineMockBackend(t *testing.T) {
	cfg := testConfig()
	cfg.MockReply = "From config."
	e, err := NewEngine(cfg, nil)
	require.NoError(t, err)

	d, err := e.Documenter(RunOptions{})
	require.NoError(t, err)
	out, _, err := d.DocumentSource(context.Background(), "f.py", "def f():\n    pass\n")
	require.NoError(t, err)
	assert.Contains(t, out, `"""From config."""`)
}

func TestNewEngineBadPrompt(t *testing.T) {
	cfg := testConfig()
	cfg.Prompts = map[string]string{"function": filepath.Join(t.TempDir(), "missing.txt")}
	_, err := NewEngineWith(cfg, llm.NewMock(""), nil)
	assert.Error(t, err)
}
