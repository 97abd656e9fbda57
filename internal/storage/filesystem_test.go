package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	key := AttachmentKey("t-1", "laudo médico.pdf", time.UnixMilli(1700000000000))
	assert.Equal(t, "t-1/1700000000000_laudo_m_dico.pdf", key)

	n, err := store.SaveStream(key, strings.NewReader("conteudo"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	f, err := store.Open(key)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "conteudo", string(body))

	require.NoError(t, store.Delete(key))
	require.NoError(t, store.Delete(key))
	_, err = store.Open(key)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalStorageDeletePrefix(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.SaveStream("t-9/1_a.txt", strings.NewReader("a"))
	require.NoError(t, err)
	_, err = store.SaveStream("t-9/2_b.txt", strings.NewReader("b"))
	require.NoError(t, err)

	require.NoError(t, store.DeletePrefix("t-9"))
	_, err = os.Stat(filepath.Join(dir, "t-9"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../etc/passwd", "/etc/passwd", "a/../../b"} {
		_, err := store.SaveStream(key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeName("../../etc/passwd"))
	assert.Equal(t, "file", SanitizeName("..."))
	assert.Equal(t, "relatorio_final.xlsx", SanitizeName(`C:\docs\relatorio final.xlsx`))
}
