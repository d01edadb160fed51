package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveContentAddressedPath(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	content := []byte("hello document")
	relPath, err := store.Save("report.PDF", strings.NewReader(string(content)))
	require.NoError(t, err)

	digest := hex.EncodeToString(func() []byte {
		h := sha256.Sum256(content)
		return h[:]
	}())
	assert.Equal(t, filepath.Join(digest[:2], digest+".pdf"), relPath)

	stored, err := os.ReadFile(store.Path(relPath))
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestSaveDuplicateContentSharesPath(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 0)
	require.NoError(t, err)

	first, err := store.Save("a.txt", strings.NewReader("same bytes"))
	require.NoError(t, err)
	second, err := store.Save("b.txt", strings.NewReader("same bytes"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSaveEnforcesSizeCap(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 8)
	require.NoError(t, err)

	_, err = store.Save("big.txt", strings.NewReader("well over eight bytes"))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveAtCapSucceeds(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 8)
	require.NoError(t, err)

	_, err = store.Save("fit.txt", strings.NewReader("12345678"))
	require.NoError(t, err)
}

func TestSaveCleansUpTempOnCap(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, 4)
	require.NoError(t, err)

	_, err = store.Save("big.txt", strings.NewReader("too large"))
	require.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	_, err := NewFileStore("", 0)
	require.Error(t, err)
}
