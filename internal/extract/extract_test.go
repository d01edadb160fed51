package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func TestTextPlainUTF8(t *testing.T) {
	path := writeTemp(t, "notes.txt", []byte("plain utf-8 content with ünïcode"))

	text, err := Text(path, "notes.txt")

	require.NoError(t, err)
	assert.Equal(t, "plain utf-8 content with ünïcode", text)
}

func TestTextStripsUTF8BOM(t *testing.T) {
	path := writeTemp(t, "bom.txt", append([]byte("\xef\xbb\xbf"), []byte("after bom")...))

	text, err := Text(path, "bom.txt")

	require.NoError(t, err)
	assert.Equal(t, "after bom", text)
}

func TestTextUTF16LittleEndian(t *testing.T) {
	// "hi" as UTF-16LE with BOM.
	raw := []byte{0xFF, 0xFE, 'h', 0x00, 'i', 0x00}
	path := writeTemp(t, "utf16.txt", raw)

	text, err := Text(path, "utf16.txt")

	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestTextUTF16BigEndian(t *testing.T) {
	raw := []byte{0xFE, 0xFF, 0x00, 'h', 0x00, 'i'}
	path := writeTemp(t, "utf16be.txt", raw)

	text, err := Text(path, "utf16be.txt")

	require.NoError(t, err)
	assert.Equal(t, "hi", text)
}

func TestTextLatin1Fallback(t *testing.T) {
	// 0xE9 is é in latin-1 and invalid standalone utf-8.
	path := writeTemp(t, "legacy.txt", []byte{'c', 'a', 'f', 0xE9})

	text, err := Text(path, "legacy.txt")

	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestTextUnsupportedExtension(t *testing.T) {
	path := writeTemp(t, "image.png", []byte{0x89, 'P', 'N', 'G'})

	text, err := Text(path, "image.png")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTextExtensionCaseInsensitive(t *testing.T) {
	path := writeTemp(t, "UPPER.TXT", []byte("upper"))

	text, err := Text(path, "UPPER.TXT")

	require.NoError(t, err)
	assert.Equal(t, "upper", text)
}

func TestTextMissingFile(t *testing.T) {
	_, err := Text(filepath.Join(t.TempDir(), "absent.txt"), "absent.txt")

	require.Error(t, err)
	var extractErr *Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "read", extractErr.Kind)
}

func TestTextMalformedPDF(t *testing.T) {
	path := writeTemp(t, "broken.pdf", []byte("not a pdf at all"))

	_, err := Text(path, "broken.pdf")

	require.Error(t, err)
	var extractErr *Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "pdf", extractErr.Kind)
}
