// Package statusfeed bridges the session to an external UI over a websocket:
// status snapshots flow out, user commands flow in.
package statusfeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum command size; an SDP blob fits comfortably.
	maxMessageSize = 64 * 1024

	shutdownWait = 5 * time.Second
)

// ErrUnknownCommand is returned for a command name the server does not serve.
var ErrUnknownCommand = errors.New("unknown command")

// Commander executes UI commands against the session.
type Commander interface {
	// CreateConnection starts the offering flow and returns the local descriptor.
	CreateConnection(ctx context.Context) (string, error)
	// SubmitRemoteDescription applies a pasted descriptor and returns the local
	// descriptor if one is now available.
	SubmitRemoteDescription(ctx context.Context, text string) (string, error)
	// LocalDescriptor returns the published local descriptor, or "" while
	// gathering is still running.
	LocalDescriptor() string
	EnqueueFiles(ctx context.Context, paths []string) error
	StartSend(ctx context.Context) error
	// Download saves an artifact and returns where it was written.
	Download(ctx context.Context, name, url string) (string, error)
}

// Server serves the feed on /ws.
type Server struct {
	store    *status.Store
	cmd      Commander
	upgrader websocket.Upgrader
}

func NewServer(store *status.Store, cmd Commander) *Server {
	return &Server{
		store: store,
		cmd:   cmd,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin:     loopbackOrigin,
		},
	}
}

// Handler returns the HTTP handler with the websocket route mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWs)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status feed listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: writeWait}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("status feed listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("status feed upgrade failed", "err", err)
		return
	}

	// The request context ends with this handler, so commands get their own.
	ctx, cancel := context.WithCancel(context.Background())
	updates, unsubscribe := s.store.Subscribe()
	c := &client{
		ctx:         ctx,
		cancel:      cancel,
		server:      s,
		conn:        conn,
		send:        make(chan *Message, 16),
		updates:     updates,
		unsubscribe: unsubscribe,
		done:        make(chan struct{}),
	}
	c.send <- statusMessage(s.store.Snapshot())

	go c.writePump()
	go c.readPump()
}

// dispatch runs one command and builds its reply.
func (s *Server) dispatch(ctx context.Context, cmd Command) *Message {
	var (
		result string
		err    error
	)
	switch cmd.Command {
	case CmdCreateConnection:
		result, err = s.cmd.CreateConnection(ctx)
	case CmdSubmitRemoteDescription:
		result, err = s.cmd.SubmitRemoteDescription(ctx, cmd.SDP)
	case CmdCopyLocalDescriptor:
		result = s.cmd.LocalDescriptor()
	case CmdEnqueueFiles:
		err = s.cmd.EnqueueFiles(ctx, cmd.Paths)
	case CmdStartSend:
		err = s.cmd.StartSend(ctx)
	case CmdDownload:
		result, err = s.cmd.Download(ctx, cmd.Name, cmd.URL)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
	if err != nil {
		slog.Warn("status feed command failed", "command", cmd.Command, "err", err)
	}
	return replyMessage(cmd.Command, result, err)
}

// loopbackOrigin admits non-browser clients and pages served from this machine.
func loopbackOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
