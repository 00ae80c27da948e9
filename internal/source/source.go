// Package source reads Python files into UTF-8 text and writes edited text
// back in the file's original encoding.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultEncoding is assumed when a file declares none.
const DefaultEncoding = "utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// PEP 263 coding cookie.
var cookieRe = regexp.MustCompile(`^[ \t\f]*#.*?coding[:=][ \t]*([-\w.]+)`)

// File is a decoded source file.
type File struct {
	Path     string
	Text     string // UTF-8, BOM stripped
	Encoding string
	BOM      bool
	Mode     os.FileMode
}

// DecodeError reports bytes that could not be decoded with the declared
// encoding, or an unknown encoding name.
type DecodeError struct {
	Path     string
	Encoding string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s as %s: %v", e.Path, e.Encoding, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ReadBytes reads the raw file contents and its permission bits. The file
// handle is released on every path.
func ReadBytes(path string) ([]byte, os.FileMode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, err
	}
	return data, info.Mode().Perm(), nil
}

// Decode converts raw bytes to UTF-8 text using the BOM or the coding
// cookie on the first two lines.
func Decode(path string, raw []byte) (*File, error) {
	f := &File{Path: path, Encoding: DefaultEncoding}
	if bytes.HasPrefix(raw, utf8BOM) {
		f.BOM = true
		raw = raw[len(utf8BOM):]
	} else if name := DetectEncoding(raw); name != "" {
		f.Encoding = name
	}

	if isUTF8(f.Encoding) {
		if !utf8.Valid(raw) {
			return nil, &DecodeError{Path: path, Encoding: f.Encoding, Err: fmt.Errorf("invalid utf-8 sequence")}
		}
		f.Text = string(raw)
		return f, nil
	}

	enc, err := lookup(f.Encoding)
	if err != nil {
		return nil, &DecodeError{Path: path, Encoding: f.Encoding, Err: err}
	}
	text, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return nil, &DecodeError{Path: path, Encoding: f.Encoding, Err: err}
	}
	f.Text = string(text)
	return f, nil
}

// Encode converts text back to the file's encoding, restoring the BOM.
func (f *File) Encode(text string) ([]byte, error) {
	if isUTF8(f.Encoding) {
		if !f.BOM {
			return []byte(text), nil
		}
		return append(append([]byte{}, utf8BOM...), text...), nil
	}
	enc, err := lookup(f.Encoding)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("encode %s as %s: %w", f.Path, f.Encoding, err)
	}
	return []byte(out), nil
}

// DetectEncoding returns the encoding named by a PEP 263 cookie, or "".
// The second line is only consulted when the first one is blank or a
// comment.
func DetectEncoding(raw []byte) string {
	lines := bytes.SplitN(raw, []byte("\n"), 3)
	for i, line := range lines {
		if i >= 2 {
			break
		}
		if m := cookieRe.FindSubmatch(line); m != nil {
			return normalizeName(string(m[1]))
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 && trimmed[0] != '#' {
			break
		}
	}
	return ""
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "_", "-"))
	switch {
	case name == "utf8" || name == "utf-8" || strings.HasPrefix(name, "utf-8-"):
		return DefaultEncoding
	case name == "latin-1" || name == "iso-latin-1" || strings.HasPrefix(name, "latin-1-"):
		return "latin1"
	case strings.HasPrefix(name, "iso-8859-1-"):
		return "iso-8859-1"
	}
	return name
}

func isUTF8(name string) bool {
	return name == DefaultEncoding
}

func lookup(name string) (encoding.Encoding, error) {
	// IANA first: the WHATWG index maps latin-1 to windows-1252.
	if enc, err := ianaindex.IANA.Encoding(name); err == nil && enc != nil {
		return enc, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}
