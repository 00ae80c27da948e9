package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/duyhunghd6/fastdoc-cli/internal/types"
)

const sampleSource = `def greet(name):
    return "hi " + name


class Greeter:
    """Already documented."""

    def run(self):
        pass
`

// writeMockConfig writes a config selecting the mock backend with the
// cache off and returns its path.
func writeMockConfig(t *testing.T) string {
	t.Helper()
	t.Setenv("FASTDOC_BACKEND", "mock")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "backend: mock\nmock_reply: Generated.\ncache:\n  enabled: false\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeSample(t *testing.T) (dir, file string) {
	t.Helper()
	dir = t.TempDir()
	file = filepath.Join(dir, "greet.py")
	if err := os.WriteFile(file, []byte(sampleSource), 0644); err != nil {
		t.Fatal(err)
	}
	return dir, file
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := buildRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// === buildRootCmd Tests ===

func TestBuildRootCmd(t *testing.T) {
	cmd := buildRootCmd()
	if cmd == nil {
		t.Fatal("buildRootCmd returned nil")
	}
	if cmd.Use != "fastdoc" {
		t.Errorf("Use = %q, want fastdoc", cmd.Use)
	}
	if cmd.Version != version {
		t.Errorf("Version = %q, want %s", cmd.Version, version)
	}
}

func TestBuildRootCmdSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, expected := range []string{"document", "extract", "serve-mcp", "completion"} {
		if !names[expected] {
			t.Errorf("missing subcommand: %s", expected)
		}
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	if err != nil {
		t.Fatalf("help error: %v", err)
	}
	if !strings.Contains(out, "document") {
		t.Errorf("help output should list document, got:\n%s", out)
	}
}

func TestRootCmdVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	if err != nil {
		t.Fatalf("version error: %v", err)
	}
	if !strings.Contains(out, version) {
		t.Errorf("version output = %q, want it to contain %s", out, version)
	}
}

func TestDocumentCmdFlags(t *testing.T) {
	cmd := buildRootCmd()
	doc, _, err := cmd.Find([]string{"document"})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"exclude", "languages", "elements", "overwrite", "backend", "model",
		"timeout", "nesting", "dry-run", "diff", "json", "no-cache", "copy",
		"verbose", "validate-syntax",
	} {
		if doc.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
	for _, name := range []string{"config", "log-level", "log-json"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
}

// === document command ===

func TestDocumentNoPath(t *testing.T) {
	out, _, err := execute(t, "document")
	if err != nil {
		t.Fatalf("document without path: %v", err)
	}
	if !strings.Contains(out, "Please provide the path") {
		t.Errorf("expected path hint, got %q", out)
	}
}

func TestDocumentDirectory(t *testing.T) {
	cfg := writeMockConfig(t)
	dir, file := writeSample(t)

	out, _, err := execute(t, "--config", cfg, "document", dir)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if !strings.Contains(out, "Documenting") {
		t.Errorf("missing banner in output:\n%s", out)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.Contains(got, "def greet(name):\n    \"\"\"Generated.\"\"\"\n    return") {
		t.Errorf("greet not documented:\n%s", got)
	}
	if !strings.Contains(got, "\"\"\"Already documented.\"\"\"") {
		t.Errorf("existing docstring lost:\n%s", got)
	}
}

func TestDocumentJSONDryRun(t *testing.T) {
	cfg := writeMockConfig(t)
	_, file := writeSample(t)

	out, _, err := execute(t, "--config", cfg, "document", file, "--json", "--dry-run")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	var run types.RunReport
	if err := json.Unmarshal([]byte(out), &run); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, out)
	}
	if !run.DryRun {
		t.Error("expected dry_run in report")
	}
	if len(run.Files) != 1 {
		t.Fatalf("files = %d, want 1", len(run.Files))
	}
	counts := run.Counts()
	if counts[types.StatusInserted] != 2 {
		t.Errorf("inserted = %d, want 2 (greet, run)", counts[types.StatusInserted])
	}
	if counts[types.StatusDocumented] != 1 {
		t.Errorf("documented = %d, want 1", counts[types.StatusDocumented])
	}

	data, _ := os.ReadFile(file)
	if string(data) != sampleSource {
		t.Error("dry run modified the file")
	}
}

func TestDocumentElementsFlag(t *testing.T) {
	cfg := writeMockConfig(t)
	_, file := writeSample(t)

	_, _, err := execute(t, "--config", cfg, "document", file, "--elements", "run")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	data, _ := os.ReadFile(file)
	got := string(data)
	if strings.Contains(got, "def greet(name):\n    \"\"\"") {
		t.Errorf("greet should be filtered out:\n%s", got)
	}
	if !strings.Contains(got, "def run(self):\n        \"\"\"Generated.\"\"\"") {
		t.Errorf("run not documented:\n%s", got)
	}
}

func TestDocumentCopyMode(t *testing.T) {
	cfg := writeMockConfig(t)
	dir, file := writeSample(t)

	if _, _, err := execute(t, "--config", cfg, "document", dir, "--copy"); err != nil {
		t.Fatalf("document: %v", err)
	}
	data, _ := os.ReadFile(file)
	if string(data) != sampleSource {
		t.Error("copy mode modified the original")
	}
	copied, err := os.ReadFile(filepath.Join(dir+"_analysed", "greet.py"))
	if err != nil {
		t.Fatalf("copy not written: %v", err)
	}
	if !strings.Contains(string(copied), "\"\"\"Generated.\"\"\"") {
		t.Errorf("copy not documented:\n%s", copied)
	}
}

func TestDocumentInvalidFlags(t *testing.T) {
	cfg := writeMockConfig(t)
	_, file := writeSample(t)

	if _, _, err := execute(t, "--config", cfg, "document", file, "--nesting", "sideways"); err == nil {
		t.Error("expected error for invalid nesting")
	}
	if _, _, err := execute(t, "--config", cfg, "--log-level", "loud", "document", file); err == nil {
		t.Error("expected error for invalid log level")
	}
	if _, _, err := execute(t, "--config", cfg, "document", file, "--languages", "go"); err == nil {
		t.Error("expected error when no supported language is left")
	}
}

func TestDocumentMissingPath(t *testing.T) {
	cfg := writeMockConfig(t)
	_, _, err := execute(t, "--config", cfg, "document", filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected error for missing path")
	}
}

// === extract command ===

func TestExtractCmd(t *testing.T) {
	_, file := writeSample(t)
	out, _, err := execute(t, "extract", file)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{"greet", "Greeter", "run", "3 elements"} {
		if !strings.Contains(out, want) {
			t.Errorf("extract output missing %q:\n%s", want, out)
		}
	}
}

func TestExtractCmdJSON(t *testing.T) {
	_, file := writeSample(t)
	out, _, err := execute(t, "extract", file, "--json", "--nesting", "outermost")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var elements []map[string]any
	if err := json.Unmarshal([]byte(out), &elements); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(elements) != 3 {
		t.Fatalf("elements = %d, want 3", len(elements))
	}
	if elements[0]["name"] != "greet" || elements[0]["kind"] != "function" {
		t.Errorf("first element = %v", elements[0])
	}
}

func TestExtractCmdErrors(t *testing.T) {
	if _, _, err := execute(t, "extract"); err == nil {
		t.Error("expected error without file")
	}
	if _, _, err := execute(t, "extract", filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Error("expected error for missing file")
	}
}

// === completion command ===

func TestCompletionCmd(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, _, err := execute(t, "completion", shell)
		if err != nil {
			t.Errorf("completion %s: %v", shell, err)
			continue
		}
		if out == "" {
			t.Errorf("completion %s produced no output", shell)
		}
	}
	if _, _, err := execute(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unknown shell")
	}
}

func TestParseNesting(t *testing.T) {
	for _, s := range []string{"stack", "outermost"} {
		if _, err := parseNesting(s); err != nil {
			t.Errorf("parseNesting(%q): %v", s, err)
		}
	}
	if _, err := parseNesting(""); err == nil {
		t.Error("expected error for empty nesting")
	}
}
