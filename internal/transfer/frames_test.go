package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkCount(t *testing.T) {
	cases := []struct {
		size int64
		want int
	}{
		{0, 0},
		{1, 1},
		{ChunkSize - 1, 1},
		{ChunkSize, 1},
		{ChunkSize + 1, 2},
		{2 * ChunkSize, 2},
		{70000, 3},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ChunkCount(tc.size), "size %d", tc.size)
	}
}

func TestFileInfoWireShape(t *testing.T) {
	s, err := NewFileInfo("report.pdf", 70000, "application/pdf").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"file-info","name":"report.pdf","size":70000,"mimeType":"application/pdf"}`, s)
}

func TestParseControl(t *testing.T) {
	info, err := ParseControl([]byte(`{"type":"file-info","name":"a.bin","size":12,"mimeType":""}`))
	require.NoError(t, err)
	assert.Equal(t, "a.bin", info.Name)
	assert.Equal(t, int64(12), info.Size)
	assert.Equal(t, DefaultMimeType, info.MimeType)

	_, err = ParseControl([]byte(`{"type":"file-info"`))
	assert.Error(t, err)

	_, err = ParseControl([]byte(`{"type":"chat","text":"hi"}`))
	assert.ErrorIs(t, err, ErrProtocolViolation)

	_, err = ParseControl([]byte(`{"type":"file-info","name":"x","size":-1}`))
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, percent(0, 70000))
	assert.Equal(t, 46, percent(32768, 70000))
	assert.Equal(t, 93, percent(65536, 70000))
	assert.Equal(t, 100, percent(70000, 70000))
	assert.Equal(t, 100, percent(0, 0))
}

func TestTransferErrorUnwrap(t *testing.T) {
	err := NewFileError("read", "a.txt", ErrReaderFailure)
	assert.ErrorIs(t, err, ErrReaderFailure)
	assert.Equal(t, "read a.txt: failed to read file", err.Error())

	err = WrapError("parse", ErrProtocolViolation, "negative size")
	assert.Equal(t, "parse: protocol violation (negative size)", err.Error())

	assert.Equal(t, "start send: channel not open", NewError("start send", ErrChannelNotReady).Error())
}
