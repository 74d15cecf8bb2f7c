package transfer

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/BioHazard786/pastedrop/internal/eventloop"
	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/BioHazard786/pastedrop/internal/webrtc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileInfo(t *testing.T, name string, size int64, mime string) string {
	t.Helper()
	s, err := NewFileInfo(name, size, mime).Encode()
	require.NoError(t, err)
	return s
}

func (r *rig) blob(t *testing.T, a Artifact) Blob {
	t.Helper()
	b, ok := r.engine.opts.Artifacts.Get(a.URL)
	require.True(t, ok)
	return b
}

func TestReceiveCompletesExactlyOnce(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)
	data := payload(70000)

	r.on(t, func() {
		r.ch.DeliverText(fileInfo(t, "scenario.bin", 70000, "application/x-test"))
		r.ch.DeliverBinary(data[:32768])
		r.ch.DeliverBinary(data[32768:65536])
	})
	assert.Empty(t, r.got, "must not complete early")
	snap := r.store.Snapshot()
	assert.True(t, snap.ShowProgress)
	assert.Equal(t, 93, snap.Progress)
	assert.Equal(t, "Receiving scenario.bin... 93%", snap.TransferStatus)

	r.on(t, func() { r.ch.DeliverBinary(data[65536:]) })
	require.Len(t, r.got, 1)
	assert.Equal(t, "scenario.bin", r.got[0].Name)
	assert.Equal(t, int64(70000), r.got[0].Size)

	b := r.blob(t, r.got[0])
	assert.Equal(t, "application/x-test", b.MimeType)
	assert.Equal(t, data, b.Data)

	files := r.engine.ReceivedFiles()
	require.Len(t, files, 1)
	assert.Equal(t, r.got[0].URL, files[0].URL)

	// trailing bytes after completion are a violation and never re-fire completion
	r.on(t, func() { r.ch.DeliverBinary([]byte{1}) })
	assert.Len(t, r.got, 1)

	assert.Eventually(t, func() bool { return !r.store.Snapshot().ShowProgress }, time.Second, time.Millisecond)
}

func TestReceiveDefaultsMimeType(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() {
		r.ch.DeliverText(`{"type":"file-info","name":"raw","size":3}`)
		r.ch.DeliverBinary([]byte("abc"))
	})
	require.Len(t, r.got, 1)
	assert.Equal(t, DefaultMimeType, r.got[0].MimeType)
}

func TestReceiveEmptyFile(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() { r.ch.DeliverText(fileInfo(t, "empty.txt", 0, "text/plain")) })
	require.Len(t, r.got, 1)
	assert.Empty(t, r.blob(t, r.got[0]).Data)
	assert.Equal(t, 100, r.store.Snapshot().Progress)
}

func TestReceiveIgnoresMalformedControl(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() {
		r.ch.DeliverText(fileInfo(t, "a.txt", 6, "text/plain"))
		r.ch.DeliverBinary([]byte("abc"))
		r.ch.DeliverText("{oops")
		r.ch.DeliverText(`{"type":"chat"}`)
		r.ch.DeliverBinary([]byte("def"))
	})
	require.Len(t, r.got, 1)
	assert.Equal(t, "abcdef", string(r.blob(t, r.got[0]).Data))
}

func TestReceiveDropsChunkWithoutMetadata(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() {
		r.ch.DeliverBinary([]byte("stray"))
		r.ch.DeliverText(fileInfo(t, "b.txt", 2, "text/plain"))
		r.ch.DeliverBinary([]byte("ok"))
	})
	require.Len(t, r.got, 1)
	assert.Equal(t, "ok", string(r.blob(t, r.got[0]).Data))
}

func TestReceiveDropsOverflowChunk(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() {
		r.ch.DeliverText(fileInfo(t, "c.txt", 4, "text/plain"))
		r.ch.DeliverBinary([]byte("ab"))
		r.ch.DeliverBinary([]byte("cdef"))
	})
	assert.Empty(t, r.got)

	r.on(t, func() { r.ch.DeliverBinary([]byte("cd")) })
	require.Len(t, r.got, 1)
	assert.Equal(t, "abcd", string(r.blob(t, r.got[0]).Data))
}

func TestReceiveNewFileInfoDiscardsPartial(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() {
		r.ch.DeliverText(fileInfo(t, "first", 10, ""))
		r.ch.DeliverBinary([]byte("12345"))
		r.ch.DeliverText(fileInfo(t, "second", 3, ""))
		r.ch.DeliverBinary([]byte("xyz"))
	})
	require.Len(t, r.got, 1)
	assert.Equal(t, "second", r.got[0].Name)
	assert.Equal(t, "xyz", string(r.blob(t, r.got[0]).Data))
}

func TestReceiveSequence(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)

	r.on(t, func() {
		for _, name := range []string{"a", "b", "c"} {
			r.ch.DeliverText(fileInfo(t, name, 1, ""))
			r.ch.DeliverBinary([]byte(name))
		}
	})
	require.Len(t, r.got, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, r.got[i].Name)
	}
	assert.Len(t, r.store.Snapshot().ReceivedFiles, 3)
}

func TestEngineDownload(t *testing.T) {
	r := newRig(t, fastOptions())
	r.open(t)
	r.on(t, func() {
		r.ch.DeliverText(fileInfo(t, "d.txt", 2, "text/plain"))
		r.ch.DeliverBinary([]byte("hi"))
	})
	require.Len(t, r.got, 1)

	path, err := r.engine.Download(r.got[0].Name, r.got[0].URL, t.TempDir())
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = r.engine.Download("d.txt", "blob:pastedrop/unknown", t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownArtifact)
}

// TestEndToEndOverStream runs two engines on separate loops joined by a
// framed byte stream.
func TestEndToEndOverStream(t *testing.T) {
	a, b := net.Pipe()

	sendLoop, recvLoop := eventloop.New(), eventloop.New()
	go sendLoop.Run(context.Background())
	go recvLoop.Run(context.Background())
	t.Cleanup(sendLoop.Close)
	t.Cleanup(recvLoop.Close)

	drained := make(chan struct{}, 1)
	sender := NewEngine(sendLoop, status.NewStore(), Options{
		BaseDelay:      time.Millisecond,
		CompletionHold: time.Millisecond,
		ReadAhead:      4,
		OnQueueDrained: func() { drained <- struct{}{} },
	})

	recvStore := status.NewStore()
	arrived := make(chan Artifact, 8)
	receiver := NewEngine(recvLoop, recvStore, Options{
		CompletionHold: time.Millisecond,
		OnArtifact:     func(a Artifact) { arrived <- a },
	})

	sendCh := webrtc.NewStreamChannel("send", a, sendLoop.Post)
	recvCh := webrtc.NewStreamChannel("recv", b, recvLoop.Post)
	require.NoError(t, recvLoop.Do(context.Background(), func() { receiver.Attach(recvCh) }))
	sendCh.Start()
	recvCh.Start()
	require.NoError(t, sendLoop.Do(context.Background(), func() { sender.Attach(sendCh) }))

	files := map[string][]byte{
		"one.bin":   payload(10*ChunkSize + 17),
		"two.txt":   []byte("hello"),
		"three.bin": payload(2 * ChunkSize),
		"empty":     nil,
	}
	order := []string{"one.bin", "two.txt", "empty", "three.bin"}
	for _, name := range order {
		require.NoError(t, sender.Enqueue(context.Background(), FromBytes(name, "", files[name])))
	}
	require.NoError(t, sender.StartSend(context.Background()))

	select {
	case <-drained:
	case <-time.After(10 * time.Second):
		t.Fatal("sender never drained")
	}

	for _, name := range order {
		select {
		case art := <-arrived:
			assert.Equal(t, name, art.Name)
			blob, ok := receiver.opts.Artifacts.Get(art.URL)
			require.True(t, ok)
			assert.True(t, bytes.Equal(files[name], blob.Data), "content of %s", name)
		case <-time.After(5 * time.Second):
			t.Fatalf("never received %s", name)
		}
	}
	assert.Len(t, recvStore.Snapshot().ReceivedFiles, len(order))
}
