package transfer

import (
	"encoding/json"
	"fmt"
)

// FileInfo is the control frame that precedes every file's chunk stream.
type FileInfo struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

func NewFileInfo(name string, size int64, mimeType string) FileInfo {
	return FileInfo{Type: MessageTypeFileInfo, Name: name, Size: size, MimeType: mimeType}
}

func (f FileInfo) Encode() (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", NewError("encode file-info", err)
	}
	return string(b), nil
}

// ParseControl decodes a text frame. Frames of other types are reported so
// the caller can log and ignore them.
func ParseControl(data []byte) (FileInfo, error) {
	var f FileInfo
	if err := json.Unmarshal(data, &f); err != nil {
		return FileInfo{}, NewError("parse control frame", err)
	}
	if f.Type != MessageTypeFileInfo {
		return FileInfo{}, WrapError("parse control frame", ErrProtocolViolation, fmt.Sprintf("unexpected type %q", f.Type))
	}
	if f.Size < 0 {
		return FileInfo{}, WrapError("parse control frame", ErrProtocolViolation, fmt.Sprintf("negative size %d", f.Size))
	}
	if f.MimeType == "" {
		f.MimeType = DefaultMimeType
	}
	return f, nil
}

// ChunkCount is ceil(size/ChunkSize).
func ChunkCount(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + ChunkSize - 1) / ChunkSize)
}

// percent is floor(n/total*100); an empty total counts as done.
func percent(n, total int64) int {
	if total <= 0 {
		return 100
	}
	return int(n * 100 / total)
}
