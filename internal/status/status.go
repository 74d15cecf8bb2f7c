// Package status is the read-only view a UI binds to. The session loop writes,
// any goroutine may read or subscribe.
package status

import (
	"slices"
	"sync"
)

// Quality classifies the measured round-trip time of the link.
type Quality string

const (
	QualityUnknown   Quality = "unknown"
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// ConnState is the connection lifecycle as shown to the user.
type ConnState string

const (
	StateIdle       ConnState = "idle"
	StateGathering  ConnState = "gathering"
	StateReady      ConnState = "ready"
	StateConnecting ConnState = "connecting"
	StateOpen       ConnState = "open"
	StateClosed     ConnState = "closed"
)

// Artifact is a reassembled file the user can download.
type Artifact struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

// Snapshot is a consistent copy of everything a UI renders.
type Snapshot struct {
	State             ConnState  `json:"state"`
	LocalSDP          string     `json:"localSDP"`
	IsConnected       bool       `json:"isConnected"`
	ConnectionQuality Quality    `json:"connectionQuality"`
	ShowProgress      bool       `json:"showProgress"`
	Progress          int        `json:"progress"`
	TransferStatus    string     `json:"transferStatus"`
	ReceivedFiles     []Artifact `json:"receivedFiles"`
	PendingFiles      int        `json:"pendingFiles"`
}

// Store holds the current Snapshot and notifies subscribers on change.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	subs map[int]chan struct{}
	next int
}

func NewStore() *Store {
	return &Store{
		snap: Snapshot{
			State:             StateIdle,
			ConnectionQuality: QualityUnknown,
			ReceivedFiles:     []Artifact{},
		},
		subs: make(map[int]chan struct{}),
	}
}

// Snapshot returns a copy safe to hold across updates.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.snap
	out.ReceivedFiles = slices.Clone(s.snap.ReceivedFiles)
	return out
}

// Subscribe returns a channel that receives a signal after every change.
// Signals coalesce: a slow reader sees one pending signal, then reads the latest Snapshot.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) update(fn func(*Snapshot) bool) {
	s.mu.Lock()
	changed := fn(&s.snap)
	var subs []chan struct{}
	if changed {
		for _, ch := range s.subs {
			subs = append(subs, ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) SetState(state ConnState) {
	s.update(func(snap *Snapshot) bool {
		if snap.State == state {
			return false
		}
		snap.State = state
		return true
	})
}

func (s *Store) SetLocalSDP(sdp string) {
	s.update(func(snap *Snapshot) bool {
		if snap.LocalSDP == sdp {
			return false
		}
		snap.LocalSDP = sdp
		return true
	})
}

func (s *Store) SetConnected(connected bool) {
	s.update(func(snap *Snapshot) bool {
		if snap.IsConnected == connected {
			return false
		}
		snap.IsConnected = connected
		return true
	})
}

func (s *Store) SetQuality(q Quality) {
	s.update(func(snap *Snapshot) bool {
		if snap.ConnectionQuality == q {
			return false
		}
		snap.ConnectionQuality = q
		return true
	})
}

// SetProgress shows the progress indicator with pct and a status line.
func (s *Store) SetProgress(pct int, text string) {
	s.update(func(snap *Snapshot) bool {
		if snap.ShowProgress && snap.Progress == pct && snap.TransferStatus == text {
			return false
		}
		snap.ShowProgress = true
		snap.Progress = pct
		snap.TransferStatus = text
		return true
	})
}

// HideProgress clears the progress indicator and status line.
func (s *Store) HideProgress() {
	s.update(func(snap *Snapshot) bool {
		if !snap.ShowProgress && snap.Progress == 0 && snap.TransferStatus == "" {
			return false
		}
		snap.ShowProgress = false
		snap.Progress = 0
		snap.TransferStatus = ""
		return true
	})
}

// SetStatus shows a status line without the progress indicator.
func (s *Store) SetStatus(text string) {
	s.update(func(snap *Snapshot) bool {
		if !snap.ShowProgress && snap.TransferStatus == text {
			return false
		}
		snap.ShowProgress = false
		snap.Progress = 0
		snap.TransferStatus = text
		return true
	})
}

func (s *Store) AddArtifact(a Artifact) {
	s.update(func(snap *Snapshot) bool {
		snap.ReceivedFiles = append(snap.ReceivedFiles, a)
		return true
	})
}

func (s *Store) SetPending(n int) {
	s.update(func(snap *Snapshot) bool {
		if snap.PendingFiles == n {
			return false
		}
		snap.PendingFiles = n
		return true
	})
}
