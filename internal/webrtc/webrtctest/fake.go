// Package webrtctest provides in-memory Link and Channel fakes for driving the
// session state machines without a network.
package webrtctest

import (
	"errors"
	"sync"
	"time"

	"github.com/BioHazard786/pastedrop/internal/signaling"
	"github.com/BioHazard786/pastedrop/internal/webrtc"
)

var ErrClosed = errors.New("fake channel closed")

type sub struct {
	key string
	id  int
	h   webrtc.Handlers
}

// Channel records everything sent on it. Event helpers invoke handlers
// synchronously, so call them from the session loop.
type Channel struct {
	mu       sync.Mutex
	label    string
	open     bool
	subs     []sub
	seq      int
	sent     []webrtc.Message
	buffered uint64

	// SendErr, when set, fails every Send and SendText.
	SendErr error
	// OnSend runs after each accepted frame; tests use it to model the buffer draining.
	OnSend func(c *Channel, m webrtc.Message)
}

func NewChannel(label string) *Channel {
	return &Channel{label: label}
}

func (c *Channel) Label() string { return c.label }

func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Channel) Send(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	return c.record(webrtc.Message{Data: buf})
}

func (c *Channel) SendText(text string) error {
	return c.record(webrtc.Message{IsString: true, Data: []byte(text)})
}

func (c *Channel) record(m webrtc.Message) error {
	c.mu.Lock()
	if c.SendErr != nil {
		err := c.SendErr
		c.mu.Unlock()
		return err
	}
	if !c.open {
		c.mu.Unlock()
		return ErrClosed
	}
	c.sent = append(c.sent, m)
	hook := c.OnSend
	c.mu.Unlock()

	if hook != nil {
		hook(c, m)
	}
	return nil
}

func (c *Channel) BufferedAmount() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffered
}

// SetBuffered fixes the value BufferedAmount reports.
func (c *Channel) SetBuffered(n uint64) {
	c.mu.Lock()
	c.buffered = n
	c.mu.Unlock()
}

// SetSendErr swaps the send failure under the channel lock.
func (c *Channel) SetSendErr(err error) {
	c.mu.Lock()
	c.SendErr = err
	c.mu.Unlock()
}

func (c *Channel) Subscribe(key string, h webrtc.Handlers) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	id := c.seq
	for i := range c.subs {
		if c.subs[i].key == key {
			c.subs[i] = sub{key: key, id: id, h: h}
			return c.unsubscriber(key, id)
		}
	}
	c.subs = append(c.subs, sub{key: key, id: id, h: h})
	return c.unsubscriber(key, id)
}

func (c *Channel) unsubscriber(key string, id int) func() {
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i := range c.subs {
			if c.subs[i].key == key && c.subs[i].id == id {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Subscribers reports how many handler sets are registered.
func (c *Channel) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Channel) handlers() []webrtc.Handlers {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]webrtc.Handlers, len(c.subs))
	for i, s := range c.subs {
		out[i] = s.h
	}
	return out
}

func (c *Channel) Close() error {
	c.Hangup()
	return nil
}

// Open marks the channel open and fires OnOpen.
func (c *Channel) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()
	for _, h := range c.handlers() {
		if h.OnOpen != nil {
			h.OnOpen()
		}
	}
}

// Hangup marks the channel closed and fires OnClose once.
func (c *Channel) Hangup() {
	c.mu.Lock()
	was := c.open
	c.open = false
	c.mu.Unlock()
	if !was {
		return
	}
	for _, h := range c.handlers() {
		if h.OnClose != nil {
			h.OnClose()
		}
	}
}

// Deliver hands m to every OnMessage handler.
func (c *Channel) Deliver(m webrtc.Message) {
	for _, h := range c.handlers() {
		if h.OnMessage != nil {
			h.OnMessage(m)
		}
	}
}

// DeliverText delivers a string frame.
func (c *Channel) DeliverText(s string) {
	c.Deliver(webrtc.Message{IsString: true, Data: []byte(s)})
}

// DeliverBinary delivers a binary frame.
func (c *Channel) DeliverBinary(b []byte) {
	c.Deliver(webrtc.Message{Data: b})
}

// Sent returns a copy of every accepted frame.
func (c *Channel) Sent() []webrtc.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]webrtc.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

// Link is a scripted Link. Offers and answers carry fixed SDP bodies.
type Link struct {
	mu   sync.Mutex
	post webrtc.Poster

	onChannel    func(webrtc.Channel)
	onGathered   func()
	onDisconnect func()

	local    *signaling.Descriptor
	remote   *signaling.Descriptor
	channels []*Channel
	closed   bool

	rtt   time.Duration
	rttOK bool

	// HoldGathering stops CreateOffer/CreateAnswer from completing gathering on their own.
	HoldGathering bool
	CreateErr     error
	RemoteErr     error
}

const (
	OfferSDP  = "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=fake-offer\r\n"
	AnswerSDP = "v=0\r\no=- 2 1 IN IP4 127.0.0.1\r\ns=fake-answer\r\n"
)

func (l *Link) OnChannel(fn func(webrtc.Channel)) {
	l.mu.Lock()
	l.onChannel = fn
	l.mu.Unlock()
}

func (l *Link) OnGatheringComplete(fn func()) {
	l.mu.Lock()
	l.onGathered = fn
	l.mu.Unlock()
}

func (l *Link) OnDisconnect(fn func()) {
	l.mu.Lock()
	l.onDisconnect = fn
	l.mu.Unlock()
}

func (l *Link) CreateChannel(label string) (webrtc.Channel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.CreateErr != nil {
		return nil, l.CreateErr
	}
	ch := NewChannel(label)
	l.channels = append(l.channels, ch)
	return ch, nil
}

func (l *Link) CreateOffer() error {
	return l.setLocal(signaling.Descriptor{Type: signaling.TypeOffer, SDP: OfferSDP})
}

func (l *Link) CreateAnswer() error {
	return l.setLocal(signaling.Descriptor{Type: signaling.TypeAnswer, SDP: AnswerSDP})
}

func (l *Link) setLocal(d signaling.Descriptor) error {
	l.mu.Lock()
	if l.CreateErr != nil {
		err := l.CreateErr
		l.mu.Unlock()
		return err
	}
	l.local = &d
	hold := l.HoldGathering
	l.mu.Unlock()

	if !hold {
		l.CompleteGathering()
	}
	return nil
}

// CompleteGathering posts the gathering-complete callback.
func (l *Link) CompleteGathering() {
	l.post(func() {
		l.mu.Lock()
		fn := l.onGathered
		l.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (l *Link) SetRemoteDescription(d signaling.Descriptor) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.RemoteErr != nil {
		return l.RemoteErr
	}
	l.remote = &d
	return nil
}

func (l *Link) LocalDescription() (signaling.Descriptor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.local == nil {
		return signaling.Descriptor{}, false
	}
	return *l.local, true
}

// Remote returns the applied remote description.
func (l *Link) Remote() (signaling.Descriptor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remote == nil {
		return signaling.Descriptor{}, false
	}
	return *l.remote, true
}

// SetRTT scripts the next NominatedRTT result.
func (l *Link) SetRTT(rtt time.Duration, ok bool) {
	l.mu.Lock()
	l.rtt, l.rttOK = rtt, ok
	l.mu.Unlock()
}

func (l *Link) NominatedRTT() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rtt, l.rttOK
}

// Channels lists channels created with CreateChannel.
func (l *Link) Channels() []*Channel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Channel(nil), l.channels...)
}

// AnnounceChannel posts the peer-created channel to the OnChannel handler.
func (l *Link) AnnounceChannel(ch webrtc.Channel) {
	l.post(func() {
		l.mu.Lock()
		fn := l.onChannel
		l.mu.Unlock()
		if fn != nil {
			fn(ch)
		}
	})
}

// Disconnect posts the disconnect callback.
func (l *Link) Disconnect() {
	l.post(func() {
		l.mu.Lock()
		fn := l.onDisconnect
		l.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}

func (l *Link) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	return nil
}

func (l *Link) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Factory hands out Links and remembers them.
type Factory struct {
	mu    sync.Mutex
	links []*Link
	Err   error
	// Setup adjusts each new link before it is returned.
	Setup func(*Link)
}

func (f *Factory) New(post webrtc.Poster) (webrtc.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	l := &Link{post: post}
	if f.Setup != nil {
		f.Setup(l)
	}
	f.links = append(f.links, l)
	return l, nil
}

// Links lists every link created so far.
func (f *Factory) Links() []*Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Link(nil), f.links...)
}
