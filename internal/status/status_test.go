package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreDefaults(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()

	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, QualityUnknown, snap.ConnectionQuality)
	assert.False(t, snap.IsConnected)
	assert.False(t, snap.ShowProgress)
	assert.NotNil(t, snap.ReceivedFiles)
}

func TestStoreNotifiesOnChangeOnly(t *testing.T) {
	s := NewStore()
	ch, unsub := s.Subscribe()
	defer unsub()

	s.SetQuality(QualityGood)
	assert.Len(t, ch, 1)
	<-ch

	s.SetQuality(QualityGood)
	assert.Len(t, ch, 0)

	// coalesced
	s.SetProgress(10, "Sending File... 10%")
	s.SetProgress(20, "Sending File... 20%")
	assert.Len(t, ch, 1)
	<-ch

	snap := s.Snapshot()
	assert.True(t, snap.ShowProgress)
	assert.Equal(t, 20, snap.Progress)
	assert.Equal(t, "Sending File... 20%", snap.TransferStatus)

	s.HideProgress()
	snap = s.Snapshot()
	assert.False(t, snap.ShowProgress)
	assert.Empty(t, snap.TransferStatus)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.AddArtifact(Artifact{Name: "a.txt", URL: "blob:1"})

	snap := s.Snapshot()
	snap.ReceivedFiles[0].Name = "mutated"

	assert.Equal(t, "a.txt", s.Snapshot().ReceivedFiles[0].Name)
}

func TestUnsubscribe(t *testing.T) {
	s := NewStore()
	ch, unsub := s.Subscribe()
	unsub()

	s.SetConnected(true)
	assert.Len(t, ch, 0)
	assert.True(t, s.Snapshot().IsConnected)
}
