// Package transfer moves files over the session's open channel: one file at a
// time, chunked, paced by the channel's buffered amount, and reassembled on
// the receiving side.
package transfer

import (
	"context"
	"log/slog"

	"github.com/BioHazard786/pastedrop/internal/eventloop"
	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/BioHazard786/pastedrop/internal/webrtc"
)

// Engine drives both directions of a session. Everything except the
// exported blocking methods runs on the loop.
type Engine struct {
	loop  *eventloop.Loop
	store *status.Store
	opts  Options

	channel     webrtc.Channel
	unsubscribe func()

	queue   []Source
	current *outgoing
	recv    incoming
}

func NewEngine(loop *eventloop.Loop, store *status.Store, opts Options) *Engine {
	opts.withDefaults()
	return &Engine{
		loop:  loop,
		store: store,
		opts:  opts,
	}
}

// Attach gains send rights on ch and starts listening for inbound frames.
// Attaching the same channel twice keeps a single subscription.
func (e *Engine) Attach(ch webrtc.Channel) {
	if e.channel != nil && e.channel != ch {
		e.Detach()
	}
	e.channel = ch
	e.unsubscribe = ch.Subscribe(subscriptionKey, webrtc.Handlers{
		OnMessage: e.handleMessage,
	})
	slog.Debug("transfer engine attached", "label", ch.Label())

	if e.opts.AutoStart {
		e.startSend()
	}
}

// Detach drops the channel. An in-flight send is abandoned; a partial
// receive is left as is until the next file-info arrives.
func (e *Engine) Detach() {
	if e.channel == nil {
		return
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.channel = nil

	if e.current != nil && !e.current.done {
		e.abandon(NewFileError("send", e.current.src.Name(), ErrChannelNotReady))
	}
}

// Enqueue appends files to the send queue.
func (e *Engine) Enqueue(ctx context.Context, srcs ...Source) error {
	return e.loop.Do(ctx, func() { e.enqueue(srcs...) })
}

// StartSend begins sending the head of the queue. It is a no-op while a
// file is in flight or the queue is empty, and fails with ErrChannelNotReady
// when no channel is open.
func (e *Engine) StartSend(ctx context.Context) error {
	var err error
	if doErr := e.loop.Do(ctx, func() { err = e.startSend() }); doErr != nil {
		return doErr
	}
	return err
}

// ReceivedFiles lists completed receives in arrival order.
func (e *Engine) ReceivedFiles() []Artifact {
	return e.store.Snapshot().ReceivedFiles
}

// Download saves a received file into dir and returns its path.
func (e *Engine) Download(name, url, dir string) (string, error) {
	path, err := Download(e.opts.Artifacts, name, url, dir)
	if err != nil {
		slog.Error("download failed", "file", name, "err", err)
		return "", err
	}
	slog.Info("file saved", "file", name, "path", path)
	return path, nil
}

func (e *Engine) enqueue(srcs ...Source) {
	e.queue = append(e.queue, srcs...)
	e.store.SetPending(e.pending())
	if e.opts.AutoStart {
		e.startSend()
	}
}

// pending counts queued files including the one in flight.
func (e *Engine) pending() int {
	n := len(e.queue)
	if e.current != nil {
		n++
	}
	return n
}

func (e *Engine) handleMessage(m webrtc.Message) {
	if m.IsString {
		e.handleControl(m.Data)
		return
	}
	e.handleChunk(m.Data)
}
