package splice

import (
	"regexp"
	"strings"

	"github.com/duyhunghd6/fastdoc-cli/internal/extract"
)

// TODOTemplate is the comment inserted when no docstring could be produced.
// ELEMENT is replaced by the element kind.
const TODOTemplate = "# TODO: Document this ELEMENT on your own. Could not be documented by the model."

// TODOMarker renders TODOTemplate for kind.
func TODOMarker(kind extract.ElementKind) string {
	return strings.Replace(TODOTemplate, "ELEMENT", kind.String(), 1)
}

// Docstring is a string literal found at an element's docstring offset.
// Offsets are relative to the element source.
type Docstring struct {
	Prefix string `json:"prefix,omitempty"`
	Quote  string `json:"quote"`
	Body   string `json:"body"`
	Start  int    `json:"start"` // first byte of the prefix
	End    int    `json:"end"`   // one past the closing quote
}

var (
	anchoredDouble = regexp.MustCompile(`(?s)^([rRuU]?)"""(.*?)"""`)
	anchoredSingle = regexp.MustCompile(`(?s)^([rRuU]?)'''(.*?)'''`)

	replyDouble = regexp.MustCompile(`(?s)"""(.*?)"""`)
	replySingle = regexp.MustCompile(`(?s)'''(.*?)'''`)
)

// FindDocstring detects a docstring starting exactly at off in src.
func FindDocstring(src string, off int) (Docstring, bool) {
	if off < 0 || off > len(src) {
		return Docstring{}, false
	}
	rest := src[off:]
	for _, re := range []*regexp.Regexp{anchoredDouble, anchoredSingle} {
		m := re.FindStringSubmatchIndex(rest)
		if m == nil {
			continue
		}
		quote := rest[m[3] : m[3]+3]
		return Docstring{
			Prefix: rest[m[2]:m[3]],
			Quote:  quote,
			Body:   rest[m[4]:m[5]],
			Start:  off,
			End:    off + m[1],
		}, true
	}
	return Docstring{}, false
}

// ExtractBody returns the content of the first triple-quoted run in a
// completion reply. A reply without one, or with only whitespace inside,
// is unusable.
func ExtractBody(reply string) (string, bool) {
	best := -1
	var body string
	for _, re := range []*regexp.Regexp{replyDouble, replySingle} {
		m := re.FindStringSubmatchIndex(reply)
		if m == nil {
			continue
		}
		if best < 0 || m[0] < best {
			best = m[0]
			body = reply[m[2]:m[3]]
		}
	}
	if best < 0 || strings.TrimSpace(body) == "" {
		return "", false
	}
	return body, true
}

// quoteFor picks a delimiter that does not occur in body.
func quoteFor(body string) string {
	if strings.Contains(body, `"""`) && !strings.Contains(body, `'''`) {
		return `'''`
	}
	return `"""`
}

// escapeBody keeps body from terminating a literal delimited by quote.
func escapeBody(body, quote string) string {
	if !strings.Contains(body, quote) {
		return body
	}
	q := quote[:1]
	return strings.ReplaceAll(body, quote, `\`+q+`\`+q+`\`+q)
}

// isMarker reports whether line, without its terminator, is exactly a
// rendered TODO marker.
func isMarker(line string) bool {
	line = strings.TrimSuffix(line, "\r")
	for _, k := range extract.Kinds {
		if line == TODOMarker(k) {
			return true
		}
	}
	return false
}

// todoRegion locates a TODO marker line at off, or on the line right above
// it. It returns the marker start and the start of the statement after it.
func todoRegion(src string, off int) (int, int, bool) {
	if off < 0 || off > len(src) {
		return 0, 0, false
	}
	rest := src[off:]
	nl := strings.IndexByte(rest, '\n')
	first := rest
	if nl >= 0 {
		first = rest[:nl]
	}
	if isMarker(first) {
		end := len(src)
		if nl >= 0 {
			end = off + nl + 1
			for end < len(src) && isBlank(src[end]) {
				end++
			}
		}
		return off, end, true
	}

	ls := strings.LastIndexByte(src[:off], '\n') + 1
	if ls == 0 || strings.TrimLeft(src[ls:off], " \t") != "" {
		return 0, 0, false
	}
	prevEnd := ls - 1
	pls := strings.LastIndexByte(src[:prevEnd], '\n') + 1
	line := strings.TrimSuffix(src[pls:prevEnd], "\r")
	trimmed := strings.TrimLeft(line, " \t")
	if !isMarker(trimmed) {
		return 0, 0, false
	}
	return pls + len(line) - len(trimmed), off, true
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

// indentBefore returns the run of blanks immediately before pos.
func indentBefore(s string, pos int) string {
	i := pos
	for i > 0 && isBlank(s[i-1]) {
		i--
	}
	return s[i:pos]
}

// newlineOf returns the line terminator used by s.
func newlineOf(s string) string {
	if strings.Contains(s, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
