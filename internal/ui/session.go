package ui

import (
	"fmt"
	"strings"

	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type snapshotMsg status.Snapshot

type sessionDoneMsg struct{}

// SessionModel renders a live status.Store until the session finishes or the
// user quits.
type SessionModel struct {
	title    string
	store    *status.Store
	updates  <-chan struct{}
	done     <-chan struct{}
	snap     status.Snapshot
	bar      progress.Model
	spinner  spinner.Model
	width    int
	finished bool
	aborted  bool
}

// NewSessionModel binds a model to store. Closing done ends the program.
func NewSessionModel(title string, store *status.Store, updates <-chan struct{}, done <-chan struct{}) *SessionModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &SessionModel{
		title:   title,
		store:   store,
		updates: updates,
		done:    done,
		snap:    store.Snapshot(),
		bar: progress.New(
			progress.WithGradient(ProgressStart, ProgressEnd),
			progress.WithWidth(40),
		),
		spinner: s,
	}
}

func (m *SessionModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange())
}

// waitForChange blocks until the store changes or the session ends.
func (m *SessionModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return snapshotMsg(m.store.Snapshot())
		case <-m.done:
			return sessionDoneMsg{}
		}
	}
}

func (m *SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		return m, nil

	case snapshotMsg:
		m.snap = status.Snapshot(msg)
		return m, m.waitForChange()

	case sessionDoneMsg:
		m.snap = m.store.Snapshot()
		m.finished = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *SessionModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	b.WriteString(m.connectionLine())
	b.WriteString("\n")

	if m.snap.ShowProgress {
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(float64(m.snap.Progress) / 100))
		b.WriteString("\n")
	}
	if m.snap.TransferStatus != "" {
		b.WriteString(m.snap.TransferStatus)
		b.WriteString("\n")
	}
	if m.snap.PendingFiles > 0 {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%d file(s) waiting", m.snap.PendingFiles)))
		b.WriteString("\n")
	}

	if len(m.snap.ReceivedFiles) > 0 {
		b.WriteString("\n")
		b.WriteString(BoldStyle.Render(IconReceive + " Received"))
		b.WriteString("\n")
		b.WriteString(FileTableView(ItemsFromArtifacts(m.snap.ReceivedFiles)))
		b.WriteString("\n")
	}

	if !m.finished && !m.aborted {
		b.WriteString("\n")
		b.WriteString(MutedStyle.Render("Press q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *SessionModel) connectionLine() string {
	switch {
	case m.snap.IsConnected:
		return lipgloss.JoinHorizontal(lipgloss.Top,
			SuccessStyle.Render(IconConnect+" Connected"),
			MutedStyle.Render("  quality: "),
			QualityBadge(m.snap.ConnectionQuality),
		)
	case m.snap.State == status.StateOpen || m.snap.State == status.StateClosed:
		return WarningStyle.Render(IconWarning + " Disconnected")
	default:
		return fmt.Sprintf("%s %s", m.spinner.View(), MutedStyle.Render(stateText(m.snap.State)))
	}
}

func stateText(s status.ConnState) string {
	switch s {
	case status.StateGathering:
		return "Gathering network candidates..."
	case status.StateReady:
		return "Waiting for the peer's answer..."
	case status.StateConnecting:
		return "Connecting to peer..."
	default:
		return "Idle"
	}
}

// Aborted reports whether the user quit before the session finished.
func (m *SessionModel) Aborted() bool { return m.aborted }

// Snapshot returns the last state the model rendered.
func (m *SessionModel) Snapshot() status.Snapshot { return m.snap }

// RunSession drives the model on the terminal until it quits.
func RunSession(m *SessionModel) error {
	_, err := tea.NewProgram(m).Run()
	return err
}
