package transfer

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/BioHazard786/pastedrop/internal/eventloop"
)

type receiveState int

const (
	awaitingMetadata receiveState = iota
	receiving
	complete
)

func (s receiveState) String() string {
	switch s {
	case awaitingMetadata:
		return "awaiting-metadata"
	case receiving:
		return "receiving"
	case complete:
		return "complete"
	default:
		return "unknown"
	}
}

// incoming accumulates the file currently arriving.
type incoming struct {
	state    receiveState
	meta     FileInfo
	chunks   [][]byte
	received int64
	hold     *eventloop.Timer
}

func (r *incoming) reset() {
	r.meta = FileInfo{}
	r.chunks = nil
	r.received = 0
}

func (e *Engine) handleControl(data []byte) {
	info, err := ParseControl(data)
	if err != nil {
		slog.Warn("ignoring control frame", "err", err)
		return
	}

	r := &e.recv
	if r.state == receiving {
		slog.Warn("file-info before previous file completed, discarding partial data",
			"err", ErrProtocolViolation, "file", r.meta.Name, "received", r.received, "size", r.meta.Size)
	}

	r.hold.Stop()
	r.hold = nil
	r.reset()
	r.meta = info
	r.state = receiving
	slog.Info("receiving file", "file", info.Name, "size", info.Size, "mime", info.MimeType)

	e.store.SetProgress(0, fmt.Sprintf(statusReceiving, info.Name, 0))
	if info.Size == 0 {
		e.completeReceive()
	}
}

func (e *Engine) handleChunk(data []byte) {
	r := &e.recv
	if r.state != receiving {
		slog.Warn("dropping chunk without an active transfer",
			"err", ErrProtocolViolation, "bytes", len(data), "state", r.state)
		return
	}
	if r.received+int64(len(data)) > r.meta.Size {
		slog.Warn("dropping chunk past declared size",
			"err", ErrProtocolViolation, "file", r.meta.Name, "bytes", len(data), "received", r.received, "size", r.meta.Size)
		return
	}

	r.chunks = append(r.chunks, data)
	r.received += int64(len(data))

	pct := percent(r.received, r.meta.Size)
	e.store.SetProgress(pct, fmt.Sprintf(statusReceiving, r.meta.Name, pct))

	if r.received == r.meta.Size {
		e.completeReceive()
	}
}

// completeReceive fires once per transfer, when the byte count matches exactly.
func (e *Engine) completeReceive() {
	r := &e.recv
	r.state = complete

	blob := Blob{
		Name:     r.meta.Name,
		MimeType: r.meta.MimeType,
		Data:     bytes.Join(r.chunks, nil),
	}
	r.reset()

	url, err := e.opts.Artifacts.Put(blob)
	if err != nil {
		slog.Error("store received file", "file", blob.Name, "err", err)
		e.store.SetStatus(fmt.Sprintf("Failed to store %s", blob.Name))
		r.state = awaitingMetadata
		return
	}

	artifact := Artifact{Name: blob.Name, URL: url, Size: int64(len(blob.Data)), MimeType: blob.MimeType}
	e.store.AddArtifact(artifact)
	e.store.SetProgress(100, fmt.Sprintf(statusReceiving, blob.Name, 100))
	slog.Info("file received", "file", blob.Name, "size", artifact.Size)

	if e.opts.OnArtifact != nil {
		e.opts.OnArtifact(artifact)
	}

	r.state = awaitingMetadata
	r.hold = e.loop.AfterFunc(e.opts.CompletionHold, func() {
		r.hold = nil
		if e.current == nil {
			e.store.HideProgress()
		}
	})
}
