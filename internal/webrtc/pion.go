package webrtc

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/pastedrop/internal/signaling"
	pion "github.com/pion/webrtc/v4"
)

var ErrNoLocalDescription = errors.New("local description not set")

// PionLink implements Link on a pion PeerConnection.
type PionLink struct {
	pc   *pion.PeerConnection
	post Poster

	mu           sync.Mutex
	onChannel    func(Channel)
	onGathered   func()
	onDisconnect func()
}

// NewPionFactory returns a LinkFactory using the given STUN servers.
func NewPionFactory(stunServers []string) LinkFactory {
	return func(post Poster) (Link, error) {
		return NewPionLink(stunServers, post)
	}
}

// NewPionLink creates a PeerConnection with a single STUN server list.
func NewPionLink(stunServers []string, post Poster) (*PionLink, error) {
	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers: []pion.ICEServer{{URLs: stunServers}},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	l := &PionLink{pc: pc, post: post}

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		ch := newPionChannel(dc, post)
		post(func() {
			if fn := l.channelHandler(); fn != nil {
				fn(ch)
			}
		})
	})

	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		slog.Debug("peer connection state", "state", state.String())
		if state != pion.PeerConnectionStateFailed && state != pion.PeerConnectionStateClosed {
			return
		}
		post(func() {
			l.mu.Lock()
			fn := l.onDisconnect
			l.mu.Unlock()
			if fn != nil {
				fn()
			}
		})
	})

	return l, nil
}

func (l *PionLink) channelHandler() func(Channel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.onChannel
}

func (l *PionLink) OnChannel(fn func(Channel)) {
	l.mu.Lock()
	l.onChannel = fn
	l.mu.Unlock()
}

func (l *PionLink) OnGatheringComplete(fn func()) {
	l.mu.Lock()
	l.onGathered = fn
	l.mu.Unlock()
}

func (l *PionLink) OnDisconnect(fn func()) {
	l.mu.Lock()
	l.onDisconnect = fn
	l.mu.Unlock()
}

func (l *PionLink) CreateChannel(label string) (Channel, error) {
	ordered := true
	dc, err := l.pc.CreateDataChannel(label, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	return newPionChannel(dc, l.post), nil
}

func (l *PionLink) CreateOffer() error {
	offer, err := l.pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	return l.setLocal(offer)
}

func (l *PionLink) CreateAnswer() error {
	answer, err := l.pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	return l.setLocal(answer)
}

// setLocal applies desc and reports gathering completion through the loop.
// Candidates are never trickled; the final description carries all of them.
func (l *PionLink) setLocal(desc pion.SessionDescription) error {
	gathered := pion.GatheringCompletePromise(l.pc)
	if err := l.pc.SetLocalDescription(desc); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}

	go func() {
		<-gathered
		l.post(func() {
			l.mu.Lock()
			fn := l.onGathered
			l.mu.Unlock()
			if fn != nil {
				fn()
			}
		})
	}()
	return nil
}

func (l *PionLink) SetRemoteDescription(d signaling.Descriptor) error {
	desc := pion.SessionDescription{Type: pion.NewSDPType(d.Type), SDP: d.SDP}
	if err := l.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

func (l *PionLink) LocalDescription() (signaling.Descriptor, bool) {
	desc := l.pc.LocalDescription()
	if desc == nil {
		return signaling.Descriptor{}, false
	}
	return signaling.Descriptor{Type: desc.Type.String(), SDP: desc.SDP}, true
}

func (l *PionLink) NominatedRTT() (time.Duration, bool) {
	return NominatedRTT(l.pc.GetStats())
}

func (l *PionLink) Close() error {
	return l.pc.Close()
}

// pionChannel adapts a pion DataChannel to Channel.
type pionChannel struct {
	dc       *pion.DataChannel
	handlers handlerSet
}

func newPionChannel(dc *pion.DataChannel, post Poster) *pionChannel {
	c := &pionChannel{dc: dc}

	dc.OnOpen(func() { post(c.handlers.open) })
	dc.OnClose(func() { post(c.handlers.close) })
	dc.OnMessage(func(msg pion.DataChannelMessage) {
		data := make([]byte, len(msg.Data))
		copy(data, msg.Data)
		m := Message{IsString: msg.IsString, Data: data}
		post(func() { c.handlers.message(m) })
	})

	return c
}

func (c *pionChannel) Label() string { return c.dc.Label() }

func (c *pionChannel) IsOpen() bool {
	return c.dc.ReadyState() == pion.DataChannelStateOpen
}

func (c *pionChannel) Send(data []byte) error { return c.dc.Send(data) }

func (c *pionChannel) SendText(text string) error { return c.dc.SendText(text) }

func (c *pionChannel) BufferedAmount() uint64 { return c.dc.BufferedAmount() }

func (c *pionChannel) Subscribe(key string, h Handlers) func() {
	return c.handlers.add(key, h)
}

func (c *pionChannel) Close() error { return c.dc.Close() }
