package utils

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", FormatSize(0))
	assert.Equal(t, "1023 B", FormatSize(1023))
	assert.Equal(t, "1.00 KB", FormatSize(1024))
	assert.Equal(t, "68.36 KB", FormatSize(70000))
	assert.Equal(t, "1.50 MB", FormatSize(3*512*1024))
	assert.Equal(t, "2.00 GB", FormatSize(2<<30))
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "512 B/s", FormatSpeed(512))
	assert.Equal(t, "2.00 KB/s", FormatSpeed(2048))
	assert.Equal(t, "1.00 MB/s", FormatSpeed(1<<20))
}

func TestAverageSpeed(t *testing.T) {
	assert.Zero(t, AverageSpeed(100, 0))
	assert.InDelta(t, 50.0, AverageSpeed(100, 2*time.Second), 0.001)
}

func TestFormatTimeDuration(t *testing.T) {
	assert.Equal(t, "5s", FormatTimeDuration(5*time.Second))
	assert.Equal(t, "2m 3s", FormatTimeDuration(123*time.Second))
	assert.Equal(t, "1h 0m 1s", FormatTimeDuration(time.Hour+time.Second))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
	assert.Equal(t, "héllo", TruncateString("héllo", 5))
}

func TestGetUniqueFilename(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "report.txt")
	assert.Equal(t, name, GetUniqueFilename(name))

	require.NoError(t, os.WriteFile(name, []byte("a"), 0o644))
	assert.Equal(t, filepath.Join(dir, "report (1).txt"), GetUniqueFilename(name))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "report (1).txt"), []byte("b"), 0o644))
	assert.Equal(t, filepath.Join(dir, "report (2).txt"), GetUniqueFilename(name))
}

func TestZipFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "notes.txt")
	b := filepath.Join(dir, "b", "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(a), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	require.NoError(t, os.WriteFile(a, []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("second"), 0o644))

	target := filepath.Join(dir, "bundle.zip")
	require.NoError(t, ZipFiles(target, []string{a, b}))

	r, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"notes.txt", "notes (1).txt"}, names)
}

func TestZipFilesRejectsEmpty(t *testing.T) {
	assert.Error(t, ZipFiles(filepath.Join(t.TempDir(), "x.zip"), nil))
}
