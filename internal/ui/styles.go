package ui

import (
	"fmt"

	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary = lipgloss.Color("#22d3ee") // Cyan accent
	Success = lipgloss.Color("#10B981") // Emerald
	Warning = lipgloss.Color("#F59E0B") // Amber
	Error   = lipgloss.Color("#EF4444") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray

	ProgressStart = "#22d3ee"
	ProgressEnd   = "#0ea5e9"
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)
)

// Box styles
var (
	DescriptorBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Align(lipgloss.Center)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

	TableRowStyle = tableCellStyle.Foreground(lipgloss.Color("255"))

	TableRowAltStyle = tableCellStyle.Foreground(lipgloss.Color("245"))
)

var SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)

// qualityColors maps link quality onto the palette.
var qualityColors = map[status.Quality]lipgloss.Color{
	status.QualityExcellent: Success,
	status.QualityGood:      Primary,
	status.QualityFair:      Warning,
	status.QualityPoor:      Error,
	status.QualityUnknown:   Muted,
}

// QualityBadge renders the link quality as a colored label.
func QualityBadge(q status.Quality) string {
	color, ok := qualityColors[q]
	if !ok {
		color = Muted
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(string(q))
}

// Icons
const (
	IconSend    = "📤"
	IconReceive = "📥"
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconConnect = "🔌"
	IconCopy    = "📋"
)

func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintWarning(msg string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), msg)
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}
