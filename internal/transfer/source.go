package transfer

import (
	"bytes"
	"io"
	"os"

	"github.com/BioHazard786/pastedrop/internal/files"
)

// Source is a file queued for sending.
type Source interface {
	Name() string
	Size() int64
	MimeType() string
	Open() (io.ReadCloser, error)
}

type fileSource struct {
	info files.FileInfo
}

// FromFile queues a validated local file.
func FromFile(info files.FileInfo) Source {
	return fileSource{info: info}
}

// FromFiles wraps every validated file.
func FromFiles(infos []files.FileInfo) []Source {
	out := make([]Source, len(infos))
	for i, info := range infos {
		out[i] = FromFile(info)
	}
	return out
}

func (s fileSource) Name() string     { return s.info.Name }
func (s fileSource) Size() int64      { return s.info.Size }
func (s fileSource) MimeType() string { return s.info.Type }

func (s fileSource) Open() (io.ReadCloser, error) {
	return os.Open(s.info.Path)
}

type bytesSource struct {
	name, mimeType string
	data           []byte
}

// FromBytes queues an in-memory payload.
func FromBytes(name, mimeType string, data []byte) Source {
	return bytesSource{name: name, mimeType: mimeType, data: data}
}

func (s bytesSource) Name() string     { return s.name }
func (s bytesSource) Size() int64      { return int64(len(s.data)) }
func (s bytesSource) MimeType() string { return s.mimeType }

func (s bytesSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}
