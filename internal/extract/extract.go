// Package extract turns uploaded document files into plain text. PDFs are
// parsed page by page; text files go through an encoding fallback chain so
// user uploads in legacy encodings still produce usable text.
package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Error wraps an extraction failure with a short kind suitable for
// persisting alongside the document ("Extraction failed: <kind>").
type Error struct {
	Kind string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Text extracts plain text from the file at path. The filename's extension
// selects the strategy: .pdf is parsed and page-concatenated, .txt is decoded
// through the encoding chain, and any other extension yields empty text
// without error (the document is recorded as empty, not failed).
func Text(path, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return pdfText(path)
	case ".txt":
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", &Error{Kind: "read", Err: err}
		}
		return decodeText(raw), nil
	default:
		return "", nil
	}
}

// pdfText concatenates the plain text of every page. The parser panics on
// some malformed files, so the whole read runs under a recover.
func pdfText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &Error{Kind: "pdf", Err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", &Error{Kind: "pdf", Err: err}
	}
	defer f.Close()

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			// A single unreadable page does not fail the document.
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// decodeText decodes raw bytes trying utf-8, then BOM-marked utf-16, then
// latin-1, and finally a lossy utf-8 pass. It always returns a valid string.
func decodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	}

	utf16 := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	if decoded, err := utf16.Bytes(raw); err == nil && utf8.Valid(decoded) {
		return string(decoded)
	}

	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
		return string(decoded)
	}

	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}
