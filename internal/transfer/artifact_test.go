package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	url, err := s.Put(Blob{Name: "a.txt", MimeType: "text/plain", Data: []byte("hi")})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, blobScheme))

	other, err := s.Put(Blob{Name: "a.txt"})
	require.NoError(t, err)
	assert.NotEqual(t, url, other)

	b, ok := s.Get(url)
	require.True(t, ok)
	assert.Equal(t, "hi", string(b.Data))

	s.Revoke(url)
	_, ok = s.Get(url)
	assert.False(t, ok)
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	s := NewMemoryStore()
	url, err := s.Put(Blob{Name: "notes.txt", Data: []byte("first")})
	require.NoError(t, err)

	path, err := Download(s, "notes.txt", url, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes.txt"), path)

	path2, err := Download(s, "notes.txt", url, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "notes (1).txt"), path2)

	data, err := os.ReadFile(path2)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	_, err = Download(s, "missing.txt", "blob:pastedrop/nope", dir)
	assert.ErrorIs(t, err, ErrUnknownArtifact)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "passwd", safeName("../../etc/passwd"))
	assert.Equal(t, "evil.exe", safeName(`..\..\evil.exe`))
	assert.Equal(t, "report.pdf", safeName("report.pdf"))
	assert.True(t, strings.HasPrefix(safeName(".."), "download-"))
	assert.True(t, strings.HasPrefix(safeName(""), "download-"))
}
