package webrtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerSetKeyedReplace(t *testing.T) {
	var s handlerSet
	var first, second, other int

	unsubFirst := s.add("engine", Handlers{OnOpen: func() { first++ }})
	s.add("engine", Handlers{OnOpen: func() { second++ }})
	s.add("ui", Handlers{OnOpen: func() { other++ }})

	s.open()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, other)

	// a stale unsubscribe must not remove the replacement
	unsubFirst()
	s.open()
	assert.Equal(t, 2, second)
}

func TestHandlerSetUnsubscribe(t *testing.T) {
	var s handlerSet
	var got []Message

	unsub := s.add("engine", Handlers{OnMessage: func(m Message) { got = append(got, m) }})
	s.message(Message{IsString: true, Data: []byte("a")})
	unsub()
	s.message(Message{Data: []byte("b")})
	s.close()

	assert.Len(t, got, 1)
	assert.True(t, got[0].IsString)
	assert.Empty(t, s.snapshot())
}
