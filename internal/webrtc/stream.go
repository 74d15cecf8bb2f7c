package webrtc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Frame tags for stream transports that do not preserve message boundaries.
const (
	frameText   byte = 'T'
	frameBinary byte = 'B'

	frameHeaderSize = 5
	// MaxFrameSize bounds one frame so a corrupt length cannot allocate unbounded memory.
	MaxFrameSize = 16 << 20
)

var (
	ErrChannelClosed = errors.New("channel closed")
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrBadFrameTag   = errors.New("unknown frame tag")
)

// WriteFrame writes one tagged, length-prefixed frame.
func WriteFrame(w io.Writer, m Message) error {
	if len(m.Data) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var hdr [frameHeaderSize]byte
	hdr[0] = frameBinary
	if m.IsString {
		hdr[0] = frameText
	}
	binary.BigEndian.PutUint32(hdr[1:], uint32(len(m.Data)))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(m.Data)
	return err
}

// ReadFrame reads one frame written by WriteFrame.
func ReadFrame(r io.Reader) (Message, error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Message{}, err
	}

	var m Message
	switch hdr[0] {
	case frameText:
		m.IsString = true
	case frameBinary:
	default:
		return Message{}, fmt.Errorf("%w: 0x%02x", ErrBadFrameTag, hdr[0])
	}

	n := binary.BigEndian.Uint32(hdr[1:])
	if n > MaxFrameSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}

	m.Data = make([]byte, n)
	if _, err := io.ReadFull(r, m.Data); err != nil {
		return Message{}, err
	}
	return m, nil
}

// StreamChannel runs the Channel contract over any byte stream (a pipe, a TCP
// or QUIC stream) by framing each message explicitly. Send never blocks;
// frames queue in memory and BufferedAmount reports the queued payload bytes.
type StreamChannel struct {
	label    string
	rw       io.ReadWriteCloser
	post     Poster
	handlers handlerSet

	mu      sync.Mutex
	pending []Message
	wake    chan struct{}

	buffered atomic.Uint64
	open     atomic.Bool
	done     chan struct{}
	once     sync.Once
}

// NewStreamChannel wraps rw. Nothing is read or written until Start.
func NewStreamChannel(label string, rw io.ReadWriteCloser, post Poster) *StreamChannel {
	return &StreamChannel{
		label: label,
		rw:    rw,
		post:  post,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Start marks the channel open and launches the read and write pumps.
func (c *StreamChannel) Start() {
	c.open.Store(true)
	c.post(c.handlers.open)
	go c.readPump()
	go c.writePump()
}

func (c *StreamChannel) readPump() {
	for {
		m, err := ReadFrame(c.rw)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				slog.Debug("stream channel read failed", "label", c.label, "err", err)
			}
			c.shutdown()
			return
		}
		c.post(func() { c.handlers.message(m) })
	}
}

func (c *StreamChannel) writePump() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for {
			c.mu.Lock()
			if len(c.pending) == 0 {
				c.mu.Unlock()
				break
			}
			m := c.pending[0]
			c.pending[0] = Message{}
			c.pending = c.pending[1:]
			c.mu.Unlock()

			if err := WriteFrame(c.rw, m); err != nil {
				slog.Debug("stream channel write failed", "label", c.label, "err", err)
				c.shutdown()
				return
			}
			c.buffered.Add(^uint64(len(m.Data) - 1))
		}
	}
}

func (c *StreamChannel) enqueue(m Message) error {
	if !c.open.Load() {
		return ErrChannelClosed
	}
	if len(m.Data) > MaxFrameSize {
		return ErrFrameTooLarge
	}

	c.buffered.Add(uint64(len(m.Data)))
	c.mu.Lock()
	c.pending = append(c.pending, m)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

func (c *StreamChannel) shutdown() {
	c.once.Do(func() {
		c.open.Store(false)
		close(c.done)
		c.rw.Close()
		c.post(c.handlers.close)
	})
}

func (c *StreamChannel) Label() string { return c.label }

func (c *StreamChannel) IsOpen() bool { return c.open.Load() }

func (c *StreamChannel) Send(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	return c.enqueue(Message{Data: buf})
}

func (c *StreamChannel) SendText(text string) error {
	return c.enqueue(Message{IsString: true, Data: []byte(text)})
}

func (c *StreamChannel) BufferedAmount() uint64 { return c.buffered.Load() }

func (c *StreamChannel) Subscribe(key string, h Handlers) func() {
	return c.handlers.add(key, h)
}

func (c *StreamChannel) Close() error {
	c.shutdown()
	return nil
}
