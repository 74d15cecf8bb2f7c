// Package files checks local paths before they are queued for sending.
package files

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// DefaultMimeType is announced for files whose extension has no known type.
const DefaultMimeType = "application/octet-stream"

// ErrNoFiles is returned when nothing was given to send.
var ErrNoFiles = errors.New("no files specified")

// FileInfo describes one sendable file. Size may be zero.
type FileInfo struct {
	Path string // absolute
	Name string // base name announced to the peer
	Size int64
	Type string // MIME type by extension
}

// ValidateFiles resolves every path and reports all bad ones at once.
func ValidateFiles(paths []string) ([]FileInfo, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	infos := make([]FileInfo, 0, len(paths))
	var errs []error
	for _, p := range paths {
		info, err := describe(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		infos = append(infos, info)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("cannot send: %w", errors.Join(errs...))
	}
	return infos, nil
}

func describe(path string) (FileInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: %w", path, err)
	}

	st, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return FileInfo{}, fmt.Errorf("%s: no such file", path)
	case err != nil:
		return FileInfo{}, fmt.Errorf("%s: %w", path, err)
	case st.IsDir():
		return FileInfo{}, fmt.Errorf("%s: is a directory, pass the files inside it", path)
	case !st.Mode().IsRegular():
		return FileInfo{}, fmt.Errorf("%s: not a regular file", path)
	}

	// Fail now rather than halfway through the queue.
	f, err := os.Open(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%s: unreadable: %w", path, err)
	}
	f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(abs))
	if mimeType == "" {
		mimeType = DefaultMimeType
	}

	return FileInfo{
		Path: abs,
		Name: filepath.Base(abs),
		Size: st.Size(),
		Type: mimeType,
	}, nil
}

// GetTotalSize sums the sizes of infos.
func GetTotalSize(infos []FileInfo) int64 {
	var total int64
	for _, f := range infos {
		total += f.Size
	}
	return total
}
