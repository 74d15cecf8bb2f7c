package transfer

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/BioHazard786/pastedrop/internal/eventloop"
)

type chunk struct {
	index int
	data  []byte
}

// outgoing is the single file in flight.
type outgoing struct {
	src    Source
	reader io.ReadCloser
	size   int64
	total  int

	prepared int
	readSize int64
	reading  bool
	eof      bool
	filling  bool
	ready    []chunk

	pacing *eventloop.Timer
	hold   *eventloop.Timer
	done   bool
}

func (e *Engine) startSend() error {
	if e.current != nil || len(e.queue) == 0 {
		return nil
	}
	if e.channel == nil || !e.channel.IsOpen() {
		err := NewError("start send", ErrChannelNotReady)
		slog.Warn("send not started", "err", err, "queued", len(e.queue))
		return err
	}

	src := e.queue[0]
	e.queue = e.queue[1:]

	reader, err := src.Open()
	if err != nil {
		terr := NewFileError("open", src.Name(), errors.Join(ErrReaderFailure, err))
		slog.Error("send aborted", "file", src.Name(), "err", terr)
		e.store.SetStatus(fmt.Sprintf("Failed to read %s", src.Name()))
		e.store.SetPending(e.pending())
		e.sendFailed(src.Name(), terr)
		return terr
	}

	out := &outgoing{
		src:     src,
		reader:  readCloser{Reader: io.LimitReader(reader, src.Size()), Closer: reader},
		size:    src.Size(),
		total:   ChunkCount(src.Size()),
		filling: true,
	}
	e.current = out

	mime := src.MimeType()
	if mime == "" {
		mime = DefaultMimeType
	}
	info, err := NewFileInfo(src.Name(), src.Size(), mime).Encode()
	if err == nil {
		err = e.channel.SendText(info)
	}
	if err != nil {
		terr := NewFileError("send file-info", src.Name(), err)
		e.abandon(terr)
		return terr
	}
	slog.Info("sending file", "file", src.Name(), "size", src.Size(), "chunks", out.total)

	if out.total == 0 {
		e.completeSend()
		return nil
	}

	e.store.SetProgress(0, fmt.Sprintf(statusPreparing, 0))
	e.readNext()
	return nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// readNext issues the next slice read unless one is outstanding or the
// read-ahead window is full. Reads run off the loop and post their result back.
func (e *Engine) readNext() {
	out := e.current
	if out == nil || out.done || out.reading || out.eof || len(out.ready) >= e.opts.ReadAhead {
		return
	}
	out.reading = true

	reader := out.reader
	go func() {
		buf := make([]byte, ChunkSize)
		n, err := io.ReadFull(reader, buf)
		e.loop.Post(func() { e.sliceRead(out, buf[:n], err) })
	}()
}

func (e *Engine) sliceRead(out *outgoing, data []byte, err error) {
	if out != e.current || out.done {
		return
	}
	out.reading = false

	if len(data) > 0 {
		out.ready = append(out.ready, chunk{index: out.prepared, data: data})
		out.prepared++
		out.readSize += int64(len(data))
	}

	switch {
	case err == nil:
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		out.eof = true
	default:
		e.abandon(NewFileError("read", out.src.Name(), errors.Join(ErrReaderFailure, err)))
		return
	}
	if out.readSize >= out.size {
		out.eof = true
	}
	if out.eof && out.readSize < out.size {
		e.abandon(WrapError("read", ErrReaderFailure, fmt.Sprintf("%s: %v", out.src.Name(), ErrShortFile)))
		return
	}

	if out.filling {
		pct := percent(out.readSize, out.size)
		e.store.SetProgress(pct, fmt.Sprintf(statusPreparing, pct))
		if out.eof || len(out.ready) >= e.opts.ReadAhead {
			out.filling = false
		}
	}

	e.pump()
	e.readNext()
}

// pump sends the next chunk unless a pacing delay is pending or nothing is ready.
func (e *Engine) pump() {
	out := e.current
	if out == nil || out.done || out.filling || out.pacing != nil || len(out.ready) == 0 {
		return
	}
	e.sendNext()
}

func (e *Engine) sendNext() {
	out := e.current
	c := out.ready[0]
	out.ready[0] = chunk{}
	out.ready = out.ready[1:]

	if e.channel == nil || !e.channel.IsOpen() {
		e.abandon(NewFileError("send", out.src.Name(), ErrChannelNotReady))
		return
	}
	if err := e.channel.Send(c.data); err != nil {
		e.abandon(NewFileError("send chunk", out.src.Name(), err))
		return
	}

	pct := percent(int64(c.index)*ChunkSize, out.size)
	e.store.SetProgress(pct, fmt.Sprintf(statusSending, pct))

	if c.index == out.total-1 {
		e.completeSend()
		return
	}

	delay := PacingDelay(e.channel.BufferedAmount(), e.opts.BaseDelay)
	out.pacing = e.loop.AfterFunc(delay, func() {
		out.pacing = nil
		e.pump()
	})
	e.readNext()
}

// completeSend shows 100% for the hold period, then advances the queue.
func (e *Engine) completeSend() {
	out := e.current
	out.done = true
	e.closeReader(out)

	e.store.SetProgress(100, fmt.Sprintf(statusSending, 100))
	slog.Info("file sent", "file", out.src.Name(), "size", out.size)

	out.hold = e.loop.AfterFunc(e.opts.CompletionHold, func() {
		if e.current != out {
			return
		}
		e.current = nil
		e.store.SetPending(e.pending())

		if len(e.queue) == 0 {
			e.store.HideProgress()
			if e.opts.OnQueueDrained != nil {
				e.opts.OnQueueDrained()
			}
			return
		}
		if err := e.startSend(); err != nil {
			slog.Warn("queue paused", "err", err)
		}
	})
}

// abandon drops the in-flight file. Remaining queue entries wait for the user.
func (e *Engine) abandon(err error) {
	out := e.current
	if out == nil {
		return
	}
	slog.Error("transfer abandoned", "file", out.src.Name(), "err", err)

	out.done = true
	out.pacing.Stop()
	out.hold.Stop()
	out.ready = nil
	e.closeReader(out)

	e.current = nil
	e.store.SetStatus(fmt.Sprintf("Failed to send %s", out.src.Name()))
	e.store.SetPending(e.pending())
	e.sendFailed(out.src.Name(), err)
}

func (e *Engine) sendFailed(name string, err error) {
	if e.opts.OnSendFailed != nil {
		e.opts.OnSendFailed(name, err)
	}
}

func (e *Engine) closeReader(out *outgoing) {
	if out.reader == nil {
		return
	}
	if err := out.reader.Close(); err != nil {
		slog.Debug("close reader", "file", out.src.Name(), "err", err)
	}
	out.reader = nil
}
