package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFiles(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "paper.pdf")
	empty := filepath.Join(dir, "empty.unknownext")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	infos, err := ValidateFiles([]string{pdf, empty})
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "paper.pdf", infos[0].Name)
	assert.Equal(t, int64(8), infos[0].Size)
	assert.Equal(t, "application/pdf", infos[0].Type)
	assert.True(t, filepath.IsAbs(infos[0].Path))

	assert.Equal(t, "empty.unknownext", infos[1].Name)
	assert.Zero(t, infos[1].Size)
	assert.Equal(t, DefaultMimeType, infos[1].Type)

	assert.Equal(t, int64(8), GetTotalSize(infos))
}

func TestValidateFilesReportsEveryFailure(t *testing.T) {
	dir := t.TempDir()

	_, err := ValidateFiles([]string{filepath.Join(dir, "missing.txt"), dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt: no such file")
	assert.Contains(t, err.Error(), "is a directory")
	assert.Contains(t, err.Error(), "cannot send")
}

func TestValidateFilesRequiresInput(t *testing.T) {
	_, err := ValidateFiles(nil)
	assert.ErrorIs(t, err, ErrNoFiles)
}
