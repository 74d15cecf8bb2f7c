package webrtc

import "sync"

// Message is one inbound data-channel frame.
type Message struct {
	IsString bool
	Data     []byte
}

// Handlers receive channel events. Every callback runs on the session loop.
type Handlers struct {
	OnOpen    func()
	OnClose   func()
	OnMessage func(Message)
}

// Channel is the reliable, ordered, message-framed link to the peer.
type Channel interface {
	Label() string
	IsOpen() bool
	Send(data []byte) error
	SendText(text string) error
	// BufferedAmount is the number of bytes accepted by Send but not yet handed to the network.
	BufferedAmount() uint64
	// Subscribe registers h under key. Subscribing again with the same key
	// replaces the earlier handlers, so repeated attachment never duplicates delivery.
	Subscribe(key string, h Handlers) (unsubscribe func())
	Close() error
}

type subscription struct {
	key string
	id  uint64
	h   Handlers
}

// handlerSet is the keyed registry shared by Channel implementations.
type handlerSet struct {
	mu   sync.Mutex
	subs []subscription
	seq  uint64
}

func (s *handlerSet) add(key string, h Handlers) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := s.seq
	replaced := false
	for i := range s.subs {
		if s.subs[i].key == key {
			s.subs[i] = subscription{key: key, id: id, h: h}
			replaced = true
			break
		}
	}
	if !replaced {
		s.subs = append(s.subs, subscription{key: key, id: id, h: h})
	}

	return func() { s.remove(key, id) }
}

// remove drops key only if it still refers to the registration identified by id.
func (s *handlerSet) remove(key string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.subs {
		if s.subs[i].key == key && s.subs[i].id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

func (s *handlerSet) snapshot() []Handlers {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Handlers, len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.h
	}
	return out
}

func (s *handlerSet) open() {
	for _, h := range s.snapshot() {
		if h.OnOpen != nil {
			h.OnOpen()
		}
	}
}

func (s *handlerSet) close() {
	for _, h := range s.snapshot() {
		if h.OnClose != nil {
			h.OnClose()
		}
	}
}

func (s *handlerSet) message(m Message) {
	for _, h := range s.snapshot() {
		if h.OnMessage != nil {
			h.OnMessage(m)
		}
	}
}
