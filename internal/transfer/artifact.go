package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/BioHazard786/pastedrop/internal/utils"
	"github.com/google/uuid"
)

// Artifact is a completed receive as shown to the user.
type Artifact = status.Artifact

// Blob is a reassembled file held for download.
type Blob struct {
	Name     string
	MimeType string
	Data     []byte
}

// ArtifactStore hands out local references to reassembled files.
type ArtifactStore interface {
	Put(b Blob) (url string, err error)
	Get(url string) (Blob, bool)
	Revoke(url string)
}

const blobScheme = "blob:pastedrop/"

// MemoryStore keeps blobs in memory for the lifetime of the session.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]Blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]Blob)}
}

func (s *MemoryStore) Put(b Blob) (string, error) {
	url := blobScheme + uuid.NewString()
	s.mu.Lock()
	s.blobs[url] = b
	s.mu.Unlock()
	return url, nil
}

func (s *MemoryStore) Get(url string) (Blob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[url]
	return b, ok
}

func (s *MemoryStore) Revoke(url string) {
	s.mu.Lock()
	delete(s.blobs, url)
	s.mu.Unlock()
}

// Download writes the blob behind url into dir under name, never overwriting
// an existing file, and returns the path written.
func Download(store ArtifactStore, name, url, dir string) (string, error) {
	blob, ok := store.Get(url)
	if !ok {
		return "", NewFileError("download", name, ErrUnknownArtifact)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", NewFileError("create directory", dir, err)
	}

	path := utils.GetUniqueFilename(filepath.Join(dir, safeName(name)))
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return "", NewFileError("write", name, err)
	}
	return path, nil
}

// safeName strips any directory components a peer might smuggle into a name.
func safeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.FromSlash(name))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return fmt.Sprintf("download-%s", uuid.NewString()[:8])
	}
	return base
}
