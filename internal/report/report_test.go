package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duyhunghd6/fastdoc-cli/internal/types"
)

func TestDiffEqual(t *testing.T) {
	assert.Equal(t, "", Diff("a.py", "x\n", "x\n"))
}

func TestDiffInsertion(t *testing.T) {
	before := "def f():\n    pass\n"
	after := "def f():\n    \"\"\"Doc.\"\"\"\n    pass\n"

	want := "--- a/a.py\n+++ b/a.py\n" +
		" def f():\n" +
		"+    \"\"\"Doc.\"\"\"\n" +
		"     pass\n"
	assert.Equal(t, want, Diff("a.py", before, after))
}

func TestDiffElidesContext(t *testing.T) {
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("l%d", i))
	}
	before := strings.Join(lines, "\n") + "\n"
	after := strings.Replace(before, "l0\n", "first\n", 1) + "last\n"

	out := Diff("x.py", before, after)
	assert.Contains(t, out, "-l0\n+first\n")
	assert.Contains(t, out, " l2\n@@\n l8\n")
	assert.NotContains(t, out, " l5\n")
	assert.True(t, strings.HasSuffix(out, "+last\n"), out)
}

func TestDiffCRLF(t *testing.T) {
	out := Diff("w.py", "a\r\nb\r\n", "a\r\nc\r\n")
	assert.NotContains(t, out, "\r")
	assert.Contains(t, out, "-b\n+c\n")
}

func sampleReport() *types.RunReport {
	return &types.RunReport{
		Root:    "/proj",
		Backend: "mock",
		Files: []types.FileReport{
			{
				RelativePath: "a.py",
				Changed:      true,
				Elements: []types.ElementReport{
					{Kind: "function", Name: "f", Line: 1, Status: types.StatusInserted},
					{Kind: "class", Name: "A", Line: 5, Status: types.StatusTODO, Reason: "completion timed out"},
					{Kind: "function", Name: "g", Line: 9, Status: types.StatusDocumented},
				},
			},
			{RelativePath: "bad.py", Error: "lex: unterminated string"},
		},
		Written:   []string{"/proj/a.py"},
		CacheHits: 1,
		Elapsed:   1500 * time.Millisecond,
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport(), false))
	out := buf.String()

	assert.Contains(t, out, "✏️  a.py")
	assert.Contains(t, out, "inserted")
	assert.Contains(t, out, "completion timed out")
	assert.NotContains(t, out, "g:9", "documented elements are hidden unless verbose")
	assert.Contains(t, out, "❌ bad.py: lex: unterminated string")
	assert.Contains(t, out, "inserted 1, todo 1, documented 1")
	assert.Contains(t, out, "Failed:   1 files")
	assert.Contains(t, out, "Cache:    1 hits, 0 misses")
	assert.Contains(t, out, "Written:  /proj/a.py")
}

func TestWriteTextVerboseAndDryRun(t *testing.T) {
	r := sampleReport()
	r.DryRun = true
	r.Files[0].Diff = "--- a/a.py\n+++ b/a.py\n"

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r, true))
	out := buf.String()
	assert.Contains(t, out, "g:9")
	assert.Contains(t, out, "    --- a/a.py\n")
	assert.Contains(t, out, "Dry run:  nothing written")
	assert.NotContains(t, out, "Written:")
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, &types.RunReport{}, false))
	assert.Contains(t, buf.String(), "0 files")
	assert.Contains(t, buf.String(), "no elements")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var decoded types.RunReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "mock", decoded.Backend)
	require.Len(t, decoded.Files, 2)
	assert.Equal(t, types.StatusTODO, decoded.Files[0].Elements[1].Status)
}
