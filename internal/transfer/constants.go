package transfer

import (
	"time"

	"github.com/BioHazard786/pastedrop/internal/files"
)

const (
	// ChunkSize is the payload of every data frame but possibly the last.
	ChunkSize = 32768

	// ChannelCapacity is the buffer size pacing ratios are measured against.
	ChannelCapacity = 16 << 20

	// BasePacingDelay is the gap between chunks on an idle channel.
	BasePacingDelay = 5 * time.Millisecond

	// CompletionHold keeps a finished transfer's status visible before moving on.
	CompletionHold = 2 * time.Second

	// ReadAhead caps how many prepared chunks wait in memory.
	ReadAhead = 64

	DefaultMimeType = files.DefaultMimeType

	MessageTypeFileInfo = "file-info"

	subscriptionKey = "transfer"
)

// Status lines shown while a transfer runs.
const (
	statusPreparing = "Preparing file for Transfer... %d%%"
	statusSending   = "Sending File... %d%%"
	statusReceiving = "Receiving %s... %d%%"
)

// Options tune an Engine. Zero values select the defaults above.
type Options struct {
	BaseDelay      time.Duration
	CompletionHold time.Duration
	ReadAhead      int

	// AutoStart begins sending as soon as the channel is open and files are queued.
	AutoStart bool

	// Artifacts stores reassembled files; defaults to a MemoryStore.
	Artifacts ArtifactStore

	// OnArtifact runs on the loop after each completed receive.
	OnArtifact func(Artifact)

	// OnQueueDrained runs on the loop when the last queued file has been sent.
	OnQueueDrained func()

	// OnSendFailed runs on the loop after a file is dropped from the queue
	// unsent. The rest of the queue stays paused.
	OnSendFailed func(name string, err error)
}

func (o *Options) withDefaults() {
	if o.BaseDelay <= 0 {
		o.BaseDelay = BasePacingDelay
	}
	if o.CompletionHold <= 0 {
		o.CompletionHold = CompletionHold
	}
	if o.ReadAhead <= 0 {
		o.ReadAhead = ReadAhead
	}
	if o.Artifacts == nil {
		o.Artifacts = NewMemoryStore()
	}
}
