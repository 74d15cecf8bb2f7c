package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/BioHazard786/pastedrop/internal/config"
	"github.com/BioHazard786/pastedrop/internal/connection"
	"github.com/BioHazard786/pastedrop/internal/eventloop"
	"github.com/BioHazard786/pastedrop/internal/files"
	"github.com/BioHazard786/pastedrop/internal/signaling"
	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/BioHazard786/pastedrop/internal/statusfeed"
	"github.com/BioHazard786/pastedrop/internal/transfer"
	"github.com/BioHazard786/pastedrop/internal/ui"
	"github.com/BioHazard786/pastedrop/internal/webrtc"
)

const closeWait = 3 * time.Second

type sessionOptions struct {
	// autoStart sends queued files as soon as the channel opens.
	autoStart bool
	// finishOnDrain ends the session once the send queue is empty.
	finishOnDrain bool
	// onArtifact runs on the loop for every completed receive and must not block.
	onArtifact func(transfer.Artifact)
	// onSendFailed runs on the loop for every file dropped unsent and must not block.
	onSendFailed func(name string, err error)
}

// Session wires one connection manager and one transfer engine to a shared
// event loop and status store.
type Session struct {
	cfg     *config.Config
	loop    *eventloop.Loop
	store   *status.Store
	manager *connection.Manager
	engine  *transfer.Engine

	done     chan struct{}
	doneOnce sync.Once
	loopErr  chan error
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, transfer.NewError("load config", err)
	}
	return cfg, nil
}

func NewSession(ctx context.Context, cfg *config.Config, opts sessionOptions) *Session {
	s := &Session{
		cfg:     cfg,
		loop:    eventloop.New(),
		store:   status.NewStore(),
		done:    make(chan struct{}),
		loopErr: make(chan error, 1),
	}

	engineOpts := transfer.Options{AutoStart: opts.autoStart}
	if opts.finishOnDrain {
		engineOpts.OnQueueDrained = s.finish
	}
	if opts.onArtifact != nil {
		engineOpts.OnArtifact = opts.onArtifact
	}
	if opts.onSendFailed != nil {
		engineOpts.OnSendFailed = opts.onSendFailed
	}
	s.engine = transfer.NewEngine(s.loop, s.store, engineOpts)

	s.manager = connection.New(s.loop, webrtc.NewPionFactory(cfg.GetSTUNServers()), s.store, connection.Options{
		Compact: cfg.Compact,
	})
	s.manager.OnChannelOpen(s.engine.Attach)
	s.manager.OnChannelClose(func() {
		s.engine.Detach()
		s.finish()
	})

	go func() { s.loopErr <- s.loop.Run(ctx) }()

	if cfg.StatusAddr != "" {
		go func() {
			if err := statusfeed.NewServer(s.store, s).ListenAndServe(ctx, cfg.StatusAddr); err != nil {
				slog.Error("status feed stopped", "err", err)
			}
		}()
	}
	return s
}

// finish marks the session done. Safe from any goroutine.
func (s *Session) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Done is closed once the session has nothing left to do.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close tears the connection down and stops the loop.
func (s *Session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeWait)
	defer cancel()
	if err := s.manager.Close(ctx); err != nil {
		slog.Debug("close connection", "err", err)
	}
	s.loop.Close()
	s.finish()
}

// RunUI shows the live session view until the session is done or the user quits.
func (s *Session) RunUI(title string) (aborted bool, err error) {
	updates, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	model := ui.NewSessionModel(title, s.store, updates, s.done)
	if err := ui.RunSession(model); err != nil {
		return false, transfer.NewError("run ui", err)
	}
	return model.Aborted(), nil
}

func (s *Session) CreateConnection(ctx context.Context) (string, error) {
	if err := s.manager.CreateConnection(ctx); err != nil {
		return "", err
	}
	return s.manager.AwaitLocalDescriptor(ctx)
}

// SubmitRemoteDescription applies the peer's descriptor and returns ours,
// waiting for gathering when the remote side was an offer.
func (s *Session) SubmitRemoteDescription(ctx context.Context, text string) (string, error) {
	if err := s.manager.SubmitRemoteDescription(ctx, text); err != nil {
		return "", err
	}
	return s.manager.AwaitLocalDescriptor(ctx)
}

func (s *Session) LocalDescriptor() string {
	return s.manager.LocalDescriptor()
}

func (s *Session) EnqueueFiles(ctx context.Context, paths []string) error {
	infos, err := files.ValidateFiles(paths)
	if err != nil {
		return err
	}
	return s.engine.Enqueue(ctx, transfer.FromFiles(infos)...)
}

func (s *Session) StartSend(ctx context.Context) error {
	return s.engine.StartSend(ctx)
}

func (s *Session) Download(_ context.Context, name, url string) (string, error) {
	return s.engine.Download(name, url, s.cfg.OutputDir)
}

// stdinDescriptors is shared by every prompt so input buffered by one read
// is still there for the next.
var stdinDescriptors = signaling.NewReader(os.Stdin)

// nextDescriptor reads until a valid descriptor or the end of input,
// calling retry after every unparsable paste.
func nextDescriptor(in *signaling.Reader, retry func()) (signaling.Descriptor, error) {
	for {
		desc, err := in.Next()
		if err != nil && signaling.IsParseError(err) && !errors.Is(err, io.ErrUnexpectedEOF) {
			retry()
			continue
		}
		return desc, err
	}
}

// readRemote reads one pasted descriptor from stdin, giving up when ctx ends.
func readRemote(ctx context.Context, prompt string) (string, error) {
	fmt.Println()
	ui.PrintInfo(prompt)

	type result struct {
		desc signaling.Descriptor
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		desc, err := nextDescriptor(stdinDescriptors, func() {
			ui.PrintWarning("That does not look like a session description, try again.")
		})
		ch <- result{desc, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return "", transfer.NewError("read remote description", r.err)
		}
		return r.desc.JSON(), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// interrupted reports whether err is the user cancelling.
func interrupted(err error) bool {
	return errors.Is(err, context.Canceled)
}
