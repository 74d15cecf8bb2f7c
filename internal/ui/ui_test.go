package ui

import (
	"testing"

	"github.com/BioHazard786/pastedrop/internal/files"
	"github.com/BioHazard786/pastedrop/internal/status"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) (*SessionModel, *status.Store, chan struct{}) {
	t.Helper()
	store := status.NewStore()
	updates, cancel := store.Subscribe()
	t.Cleanup(cancel)
	done := make(chan struct{})
	return NewSessionModel("pastedrop", store, updates, done), store, done
}

func TestSessionModelRendersProgress(t *testing.T) {
	m, store, _ := newTestModel(t)

	store.SetState(status.StateOpen)
	store.SetConnected(true)
	store.SetQuality(status.QualityGood)
	store.SetProgress(40, "Sending File... 40%")
	store.SetPending(2)

	msg := m.waitForChange()()
	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "Connected")
	assert.Contains(t, view, "good")
	assert.Contains(t, view, "Sending File... 40%")
	assert.Contains(t, view, "2 file(s) waiting")
	assert.Contains(t, view, "Press q to quit")
}

func TestSessionModelListsReceivedFiles(t *testing.T) {
	m, store, _ := newTestModel(t)

	store.AddArtifact(status.Artifact{Name: "photo.png", Size: 2048, MimeType: "image/png"})
	m.Update(m.waitForChange()())

	view := m.View()
	assert.Contains(t, view, "photo.png")
	assert.Contains(t, view, "2.00 KB")
}

func TestSessionModelShowsDisconnect(t *testing.T) {
	m, store, _ := newTestModel(t)

	store.SetState(status.StateOpen)
	m.Update(m.waitForChange()())

	assert.Contains(t, m.View(), "Disconnected")
}

func TestSessionModelQuitsWhenDone(t *testing.T) {
	m, _, done := newTestModel(t)
	close(done)

	msg := m.waitForChange()()
	assert.IsType(t, sessionDoneMsg{}, msg)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.Aborted())
	assert.NotContains(t, m.View(), "Press q to quit")
}

func TestSessionModelQuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Aborted())
}

func TestStateText(t *testing.T) {
	assert.Equal(t, "Gathering network candidates...", stateText(status.StateGathering))
	assert.Equal(t, "Connecting to peer...", stateText(status.StateConnecting))
	assert.Equal(t, "Idle", stateText(status.StateIdle))
}

func TestQualityBadge(t *testing.T) {
	for _, q := range []status.Quality{
		status.QualityExcellent, status.QualityGood, status.QualityFair,
		status.QualityPoor, status.QualityUnknown, status.Quality("bogus"),
	} {
		assert.Contains(t, QualityBadge(q), string(q))
	}
}

func TestFileTableView(t *testing.T) {
	assert.Contains(t, FileTableView(nil), "No files")

	view := FileTableView(ItemsFromFiles([]files.FileInfo{
		{Name: "a.txt", Size: 10, Type: "text/plain"},
		{Name: "b.bin", Size: 4096, Type: "application/octet-stream"},
	}))
	assert.Contains(t, view, "a.txt")
	assert.Contains(t, view, "10 B")
	assert.Contains(t, view, "4.00 KB")
}

func TestTransferSummaryView(t *testing.T) {
	view := TransferSummaryView(TransferSummary{
		Status:    "Completed",
		Files:     3,
		TotalSize: 3 << 20,
		Duration:  "4s",
		Speed:     "768.00 KB/s",
	})
	assert.Contains(t, view, "Completed")
	assert.Contains(t, view, "3.00 MB")
	assert.Contains(t, view, "768.00 KB/s")
	assert.Contains(t, view, "Avg Speed")
}

func TestDescriptorView(t *testing.T) {
	offer := DescriptorView("offer", `{"type":"offer"}`, true)
	assert.Contains(t, offer, `{"type":"offer"}`)
	assert.Contains(t, offer, "paste their reply")

	answer := DescriptorView("answer", "pd1:abc", false)
	assert.Contains(t, answer, "pd1:abc")
	assert.NotContains(t, answer, "paste their reply")
}
