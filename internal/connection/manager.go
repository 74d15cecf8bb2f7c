// Package connection owns the single peer link of a session: descriptor
// exchange, channel lifecycle and link-quality sampling.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BioHazard786/pastedrop/internal/eventloop"
	"github.com/BioHazard786/pastedrop/internal/signaling"
	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/BioHazard786/pastedrop/internal/webrtc"
)

// DefaultSampleInterval is how often link quality is measured.
const DefaultSampleInterval = 5 * time.Second

var (
	ErrStatsUnavailable = errors.New("link statistics unavailable")
	ErrClosed           = errors.New("connection closed")
)

// subscriptionKey identifies the manager's handlers on the channel.
const subscriptionKey = "connection"

// stateRank orders the lifecycle; the manager never moves backwards.
var stateRank = map[status.ConnState]int{
	status.StateIdle:       0,
	status.StateGathering:  1,
	status.StateReady:      2,
	status.StateConnecting: 3,
	status.StateOpen:       4,
	status.StateClosed:     5,
}

type Options struct {
	// SampleInterval overrides DefaultSampleInterval.
	SampleInterval time.Duration
	// Compact publishes descriptors in the short paste form.
	Compact bool
}

// Manager establishes and monitors exactly one Link and its Channel.
// Every field below the loop is owned by the loop goroutine.
type Manager struct {
	loop    *eventloop.Loop
	newLink webrtc.LinkFactory
	store   *status.Store
	opts    Options

	link        webrtc.Link
	channel     webrtc.Channel
	unsubscribe func()
	state       status.ConnState
	connected   bool
	sampler     *eventloop.Ticker
	sampling    bool

	onOpen  func(webrtc.Channel)
	onClose func()
}

func New(loop *eventloop.Loop, newLink webrtc.LinkFactory, store *status.Store, opts Options) *Manager {
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = DefaultSampleInterval
	}
	return &Manager{
		loop:    loop,
		newLink: newLink,
		store:   store,
		opts:    opts,
		state:   status.StateIdle,
	}
}

// OnChannelOpen registers the consumer of the open channel. Set it before
// the loop starts or from a loop task.
func (m *Manager) OnChannelOpen(fn func(webrtc.Channel)) { m.onOpen = fn }

// OnChannelClose registers a callback for channel close and teardown.
func (m *Manager) OnChannelClose(fn func()) { m.onClose = fn }

// CreateConnection starts the offering side. Calling it again is a no-op.
func (m *Manager) CreateConnection(ctx context.Context) error {
	var err error
	if doErr := m.loop.Do(ctx, func() { err = m.createConnection() }); doErr != nil {
		return doErr
	}
	return err
}

// SubmitRemoteDescription applies a pasted offer or answer. Parse failures
// are reported without touching the link.
func (m *Manager) SubmitRemoteDescription(ctx context.Context, text string) error {
	desc, err := signaling.Parse(text)
	if err != nil {
		slog.Error("remote description rejected", "err", err)
		return err
	}

	if doErr := m.loop.Do(ctx, func() { err = m.applyRemote(desc) }); doErr != nil {
		return doErr
	}
	return err
}

// LocalDescriptor returns the last published local descriptor, or "" while gathering.
func (m *Manager) LocalDescriptor() string {
	return m.store.Snapshot().LocalSDP
}

// AwaitLocalDescriptor blocks until a local descriptor is published.
func (m *Manager) AwaitLocalDescriptor(ctx context.Context) (string, error) {
	updates, unsubscribe := m.store.Subscribe()
	defer unsubscribe()

	for {
		snap := m.store.Snapshot()
		if snap.LocalSDP != "" {
			return snap.LocalSDP, nil
		}
		if snap.State == status.StateClosed {
			return "", ErrClosed
		}
		select {
		case <-updates:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// State reports the lifecycle state.
func (m *Manager) State() status.ConnState {
	return m.store.Snapshot().State
}

// Close tears the link down. It is the only way to reach the closed state.
func (m *Manager) Close(ctx context.Context) error {
	var err error
	if doErr := m.loop.Do(ctx, func() { err = m.teardown() }); doErr != nil {
		if errors.Is(doErr, eventloop.ErrClosed) {
			return nil
		}
		return doErr
	}
	return err
}

func (m *Manager) createConnection() error {
	if m.state == status.StateClosed {
		return ErrClosed
	}
	if m.link != nil {
		slog.Debug("createConnection ignored, link already exists", "state", m.state)
		return nil
	}

	link, err := m.openLink()
	if err != nil {
		return err
	}

	ch, err := link.CreateChannel(webrtc.ChannelLabel)
	if err != nil {
		m.dropLink()
		return fmt.Errorf("create channel: %w", err)
	}
	m.adopt(ch)

	m.setState(status.StateGathering)
	if err := link.CreateOffer(); err != nil {
		m.dropLink()
		return fmt.Errorf("create offer: %w", err)
	}
	return nil
}

func (m *Manager) applyRemote(desc signaling.Descriptor) error {
	if m.state == status.StateClosed {
		return ErrClosed
	}

	created := m.link == nil
	if created {
		if _, err := m.openLink(); err != nil {
			return err
		}
	}

	if err := m.link.SetRemoteDescription(desc); err != nil {
		slog.Error("apply remote description", "type", desc.Type, "err", err)
		// A link opened only for this descriptor must not outlive it.
		if created {
			m.dropLink()
		}
		return err
	}
	m.setState(status.StateConnecting)

	if desc.IsOffer() {
		if err := m.link.CreateAnswer(); err != nil {
			slog.Error("create answer", "err", err)
			return fmt.Errorf("create answer: %w", err)
		}
	}
	return nil
}

// openLink creates the link and wires its callbacks and the sampler.
func (m *Manager) openLink() (webrtc.Link, error) {
	link, err := m.newLink(m.loop.Post)
	if err != nil {
		return nil, fmt.Errorf("create link: %w", err)
	}

	link.OnGatheringComplete(m.gatheringComplete)
	link.OnChannel(m.adopt)
	link.OnDisconnect(m.disconnected)

	m.link = link
	m.sampler = m.loop.Every(m.opts.SampleInterval, m.sample)
	return link, nil
}

// dropLink discards a half-built link so the user can retry.
func (m *Manager) dropLink() {
	m.sampler.Stop()
	m.sampler = nil
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.channel = nil
	if m.link != nil {
		if err := m.link.Close(); err != nil {
			slog.Debug("close failed link", "err", err)
		}
		m.link = nil
	}
}

func (m *Manager) gatheringComplete() {
	if m.link == nil {
		return
	}
	desc, ok := m.link.LocalDescription()
	if !ok {
		slog.Warn("gathering finished without a local description")
		return
	}

	text, err := signaling.Encode(desc, m.opts.Compact)
	if err != nil {
		slog.Error("encode local description", "err", err)
		return
	}

	m.store.SetLocalSDP(text)
	m.setState(status.StateReady)
	slog.Debug("local description published", "type", desc.Type)
}

// adopt takes ownership of the session's one channel.
func (m *Manager) adopt(ch webrtc.Channel) {
	if m.channel != nil {
		if m.channel != ch {
			slog.Warn("ignoring additional data channel", "label", ch.Label())
		}
		return
	}

	m.channel = ch
	m.unsubscribe = ch.Subscribe(subscriptionKey, webrtc.Handlers{
		OnOpen:  m.channelOpened,
		OnClose: m.channelClosed,
	})
	if ch.IsOpen() {
		m.channelOpened()
	}
}

func (m *Manager) channelOpened() {
	if m.connected {
		return
	}
	m.connected = true
	m.store.SetConnected(true)
	m.setState(status.StateOpen)
	slog.Info("data channel open", "label", m.channel.Label())

	if m.onOpen != nil {
		m.onOpen(m.channel)
	}
}

func (m *Manager) channelClosed() {
	if !m.connected {
		return
	}
	m.connected = false
	m.store.SetConnected(false)
	slog.Info("data channel closed")

	if m.onClose != nil {
		m.onClose()
	}
}

func (m *Manager) disconnected() {
	slog.Warn("peer connection lost")
	m.channelClosed()
}

func (m *Manager) sample() {
	if m.link == nil || m.state != status.StateOpen || !m.connected || m.sampling {
		return
	}
	m.sampling = true

	link := m.link
	go func() {
		rtt, ok := link.NominatedRTT()
		m.loop.Post(func() {
			m.sampling = false
			if link != m.link || m.state != status.StateOpen || !m.connected {
				return
			}
			if !ok {
				slog.Debug("quality sample skipped", "err", ErrStatsUnavailable)
				return
			}
			q := Classify(rtt)
			slog.Debug("quality sample", "rtt", rtt, "quality", q)
			m.store.SetQuality(q)
		})
	}()
}

func (m *Manager) teardown() error {
	if m.state == status.StateClosed {
		return nil
	}

	var errs []error
	m.sampler.Stop()
	m.sampler = nil

	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.channel != nil {
		errs = append(errs, m.channel.Close())
	}
	if m.link != nil {
		errs = append(errs, m.link.Close())
	}

	wasConnected := m.connected
	m.connected = false
	m.store.SetConnected(false)
	m.setState(status.StateClosed)

	if wasConnected && m.onClose != nil {
		m.onClose()
	}
	return errors.Join(errs...)
}

func (m *Manager) setState(next status.ConnState) {
	if stateRank[next] <= stateRank[m.state] {
		return
	}
	slog.Debug("connection state", "from", m.state, "to", next)
	m.state = next
	m.store.SetState(next)
}
