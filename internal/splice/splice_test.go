package splice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
	"github.com/duyhunghd6/fastdoc-cli/internal/tokenizer"
)

func newDoc(t *testing.T, src string) (*Document, []extract.Element) {
	t.Helper()
	toks, err := tokenizer.TokenizeString(src)
	require.NoError(t, err)
	res := extract.Extract(toks, extract.Options{})
	require.Equal(t, src, res.Text)
	return NewDocument(res.Text, res.Elements), res.Sorted()
}

func TestApplyInsertScenario(t *testing.T) {
	src := "def f():\n    pass"
	el := extract.Element{ID: 0, Kind: extract.KindFunction, Name: "f", SourceText: src,
		DocstringOffset: len("def f():\n    "), Start: 0, End: len(src)}
	doc := NewDocument(src, []extract.Element{el})

	act, err := doc.Apply(0, "Adds nothing.", false)
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, act)
	assert.Equal(t, "def f():\n    \"\"\"Adds nothing.\"\"\"\n    pass", doc.Text())
	assert.True(t, doc.Changed())

	got, err := doc.Source(0)
	require.NoError(t, err)
	assert.Equal(t, doc.Text(), got)
}

func TestApplyKeepsExistingWithoutOverwrite(t *testing.T) {
	src := "def f():\n    \"\"\"Old.\"\"\"\n    pass\n"
	doc, els := newDoc(t, src)

	ds, ok := doc.Existing(els[0].ID)
	require.True(t, ok)
	assert.Equal(t, "Old.", ds.Body)

	act, err := doc.Apply(els[0].ID, "New.", false)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, act)
	assert.Equal(t, src, doc.Text())
	assert.False(t, doc.Changed())
}

func TestApplyOverwrite(t *testing.T) {
	src := "class A:\n    r'''Old.'''\n    x = 1\n"
	doc, els := newDoc(t, src)

	act, err := doc.Apply(els[0].ID, "New text.", true)
	require.NoError(t, err)
	assert.Equal(t, ActionReplaced, act)
	assert.Equal(t, "class A:\n    r'''New text.'''\n    x = 1\n", doc.Text())
}

func TestApplyNestedShiftsSpans(t *testing.T) {
	src := "class A:\n    def f(self):\n        pass\n\n    def g(self):\n        pass\n"
	doc, els := newDoc(t, src)
	require.Len(t, els, 3)
	a, f, g := els[0], els[1], els[2]

	_, err := doc.Apply(a.ID, "Class A.", false)
	require.NoError(t, err)
	_, err = doc.Apply(f.ID, "Method f.", false)
	require.NoError(t, err)
	_, err = doc.Apply(g.ID, "Method g.", false)
	require.NoError(t, err)

	want := "class A:\n" +
		"    \"\"\"Class A.\"\"\"\n" +
		"    def f(self):\n" +
		"        \"\"\"Method f.\"\"\"\n" +
		"        pass\n\n" +
		"    def g(self):\n" +
		"        \"\"\"Method g.\"\"\"\n" +
		"        pass\n"
	assert.Equal(t, want, doc.Text())

	fsrc, err := doc.Source(f.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(fsrc, "def f(self):"))
	assert.NotContains(t, fsrc, "Class A.")

	asrc, err := doc.Source(a.ID)
	require.NoError(t, err)
	assert.Equal(t, want, asrc)
}

func TestApplyIdenticalElements(t *testing.T) {
	src := "class A:\n    def f(self):\n        pass\nclass B:\n    def f(self):\n        pass\n"
	doc, els := newDoc(t, src)
	var fs []extract.Element
	for _, e := range els {
		if e.Kind == extract.KindFunction {
			fs = append(fs, e)
		}
	}
	require.Len(t, fs, 2)
	require.Equal(t, fs[0].SourceText, fs[1].SourceText)

	_, err := doc.Apply(fs[1].ID, "Second.", false)
	require.NoError(t, err)
	_, err = doc.Apply(fs[0].ID, "First.", false)
	require.NoError(t, err)

	first := strings.Index(doc.Text(), "First.")
	second := strings.Index(doc.Text(), "Second.")
	assert.True(t, first >= 0 && second > first, "docstrings landed on the wrong element:\n%s", doc.Text())
}

func TestApplyTabsAndCRLF(t *testing.T) {
	src := "def f():\r\n\treturn 1\r\n"
	doc, els := newDoc(t, src)
	_, err := doc.Apply(els[0].ID, "One.", false)
	require.NoError(t, err)
	assert.Equal(t, "def f():\r\n\t\"\"\"One.\"\"\"\r\n\treturn 1\r\n", doc.Text())
}

func TestApplyInlineElement(t *testing.T) {
	doc, els := newDoc(t, "def f(): pass\n")
	_, err := doc.Apply(els[0].ID, "Doc.", false)
	assert.ErrorIs(t, err, ErrNoBody)
	_, err = doc.MarkTODO(els[0].ID, extract.KindFunction)
	assert.ErrorIs(t, err, ErrNoBody)
}

func TestApplyUnknownElement(t *testing.T) {
	doc, _ := newDoc(t, "x = 1\n")
	_, err := doc.Apply(42, "Doc.", false)
	assert.ErrorIs(t, err, ErrUnknownElement)
}

func TestMarkTODO(t *testing.T) {
	src := "class A:\n    x = 1\n"
	doc, els := newDoc(t, src)

	act, err := doc.MarkTODO(els[0].ID, extract.KindClass)
	require.NoError(t, err)
	assert.Equal(t, ActionTODO, act)
	want := "class A:\n    # TODO: Document this class on your own. Could not be documented by the model.\n    x = 1\n"
	assert.Equal(t, want, doc.Text())
	assert.True(t, doc.HasTODO(els[0].ID))

	act, err = doc.MarkTODO(els[0].ID, extract.KindClass)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, act)
	assert.Equal(t, want, doc.Text())
}

func TestMarkTODOIdempotentAcrossRuns(t *testing.T) {
	first, els := newDoc(t, "def f():\n    return 1\n")
	_, err := first.MarkTODO(els[0].ID, extract.KindFunction)
	require.NoError(t, err)

	second, els := newDoc(t, first.Text())
	assert.True(t, second.HasTODO(els[0].ID))
	act, err := second.MarkTODO(els[0].ID, extract.KindFunction)
	require.NoError(t, err)
	assert.Equal(t, ActionNone, act)
	assert.Equal(t, first.Text(), second.Text())
}

func TestApplyReplacesTODO(t *testing.T) {
	first, els := newDoc(t, "def f():\n    return 1\n")
	_, err := first.MarkTODO(els[0].ID, extract.KindFunction)
	require.NoError(t, err)

	// same run
	act, err := first.Apply(els[0].ID, "Returns one.", false)
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, act)
	assert.Equal(t, "def f():\n    \"\"\"Returns one.\"\"\"\n    return 1\n", first.Text())
	_, ok := first.Existing(els[0].ID)
	assert.True(t, ok)

	// later run, TODO line sits above the docstring offset
	marked := "def f():\n    # TODO: Document this function on your own. Could not be documented by the model.\n    return 1\n"
	second, els := newDoc(t, marked)
	_, err = second.Apply(els[0].ID, "Returns one.", false)
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    \"\"\"Returns one.\"\"\"\n    return 1\n", second.Text())
}

func TestExtractBody(t *testing.T) {
	cases := []struct {
		reply string
		want  string
		ok    bool
	}{
		{`Here you go: """Adds two numbers.""" done`, "Adds two numbers.", true},
		{"\"\"\"\n    Multi\n    line.\n    \"\"\"", "\n    Multi\n    line.\n    ", true},
		{`'''Single quoted.'''`, "Single quoted.", true},
		{`"""first""" and """second"""`, "first", true},
		{`''' a ''' then """ b """`, " a ", true},
		{"no delimiters here", "", false},
		{`"""   """`, "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractBody(tc.reply)
		assert.Equal(t, tc.ok, ok, "ExtractBody(%q)", tc.reply)
		assert.Equal(t, tc.want, got, "ExtractBody(%q)", tc.reply)
	}
}

func TestFindDocstringAnchored(t *testing.T) {
	src := "def f():\n    x = 1\n    \"\"\"Not a docstring.\"\"\"\n"
	_, ok := FindDocstring(src, len("def f():\n    "))
	assert.False(t, ok)

	ds, ok := FindDocstring(`u"""Hi."""`, 0)
	require.True(t, ok)
	assert.Equal(t, "u", ds.Prefix)
	assert.Equal(t, `"""`, ds.Quote)
	assert.Equal(t, len(`u"""Hi."""`), ds.End)
}

func TestBodyWithQuotes(t *testing.T) {
	src := "def f():\n    pass\n"
	doc, els := newDoc(t, src)
	_, err := doc.Apply(els[0].ID, `Use """ carefully.`, false)
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    '''Use \"\"\" carefully.'''\n    pass\n", doc.Text())
}

func TestApplyKeepsUserTODOComment(t *testing.T) {
	src := "def f():\n    # TODO: Document this edge case in the wiki\n    return 1\n"
	doc, els := newDoc(t, src)
	assert.False(t, doc.HasTODO(els[0].ID))

	act, err := doc.Apply(els[0].ID, "Returns one.", false)
	require.NoError(t, err)
	assert.Equal(t, ActionInserted, act)
	assert.Equal(t, "def f():\n    # TODO: Document this edge case in the wiki\n    \"\"\"Returns one.\"\"\"\n    return 1\n", doc.Text())
}

func TestMarkTODOBesideUserComment(t *testing.T) {
	src := "class A:\n    # TODO: Document this class on your own terms\n    x = 1\n"
	doc, els := newDoc(t, src)

	act, err := doc.MarkTODO(els[0].ID, extract.KindClass)
	require.NoError(t, err)
	assert.Equal(t, ActionTODO, act)
	assert.Contains(t, doc.Text(), "# TODO: Document this class on your own terms\n")
	assert.Contains(t, doc.Text(), TODOMarker(extract.KindClass)+"\n    x = 1\n")
}

func TestApplyReplacesTODOWithCRLF(t *testing.T) {
	marked := "def f():\r\n    " + TODOMarker(extract.KindFunction) + "\r\n    return 1\r\n"
	doc, els := newDoc(t, marked)
	assert.True(t, doc.HasTODO(els[0].ID))

	_, err := doc.Apply(els[0].ID, "Returns one.", false)
	require.NoError(t, err)
	assert.Equal(t, "def f():\r\n    \"\"\"Returns one.\"\"\"\r\n    return 1\r\n", doc.Text())
}
