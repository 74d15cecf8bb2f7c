package webrtc

import (
	"time"

	"github.com/BioHazard786/pastedrop/internal/signaling"
)

// ChannelLabel names the single file-transfer channel.
const ChannelLabel = "fileTransfer"

// Poster schedules fn on the session loop.
type Poster func(fn func()) bool

// Link is one peer connection negotiated by manual descriptor exchange.
// Callbacks registered here are delivered on the session loop.
type Link interface {
	// CreateChannel opens the ordered, reliable data channel on the offering side.
	CreateChannel(label string) (Channel, error)
	// OnChannel fires on the answering side when the peer's channel arrives.
	OnChannel(fn func(Channel))
	// OnGatheringComplete fires once the local description holds every candidate.
	OnGatheringComplete(fn func())
	// OnDisconnect fires when the transport fails or closes.
	OnDisconnect(fn func())

	CreateOffer() error
	CreateAnswer() error
	SetRemoteDescription(d signaling.Descriptor) error
	// LocalDescription is only complete after gathering finished.
	LocalDescription() (signaling.Descriptor, bool)

	// NominatedRTT reads the current round-trip time of the nominated candidate pair.
	// It may block briefly and must not be called on the session loop.
	NominatedRTT() (time.Duration, bool)

	Close() error
}

// LinkFactory creates a Link whose callbacks are posted through post.
type LinkFactory func(post Poster) (Link, error)
