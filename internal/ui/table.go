package ui

import (
	"fmt"
	"strconv"

	"github.com/BioHazard786/pastedrop/internal/files"
	"github.com/BioHazard786/pastedrop/internal/status"
	"github.com/BioHazard786/pastedrop/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// FileTableItem is one row of a file listing.
type FileTableItem struct {
	Name string
	Size int64
	Type string
}

// ItemsFromFiles lists validated local files.
func ItemsFromFiles(infos []files.FileInfo) []FileTableItem {
	items := make([]FileTableItem, len(infos))
	for i, info := range infos {
		items[i] = FileTableItem{Name: info.Name, Size: info.Size, Type: info.Type}
	}
	return items
}

// ItemsFromArtifacts lists reassembled files.
func ItemsFromArtifacts(artifacts []status.Artifact) []FileTableItem {
	items := make([]FileTableItem, len(artifacts))
	for i, a := range artifacts {
		items[i] = FileTableItem{Name: a.Name, Size: a.Size, Type: a.MimeType}
	}
	return items
}

// FileTableView renders items with lipgloss/table.
func FileTableView(items []FileTableItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No files")
	}

	rows := make([][]string, 0, len(items))
	for i, item := range items {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			utils.TruncateString(item.Name, 50),
			utils.FormatSize(item.Size),
			utils.TruncateString(item.Type, 24),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("#", "Name", "Size", "Type").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderFileTable(items []FileTableItem) {
	fmt.Println(FileTableView(items))
}

// TransferSummary totals a finished session.
type TransferSummary struct {
	Status    string
	Files     int
	TotalSize int64
	Duration  string
	Speed     string
}

// TransferSummaryView renders the summary with go-pretty.
func TransferSummaryView(summary TransferSummary) string {
	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Status", summary.Status},
		{"Files", summary.Files},
		{"Total Size", utils.FormatSize(summary.TotalSize)},
		{"Duration", summary.Duration},
		{"Avg Speed", summary.Speed},
	})
	return t.Render()
}

func RenderTransferSummary(summary TransferSummary) {
	fmt.Println(TransferSummaryView(summary))
}

// DescriptorView frames a local session description for copying to the peer.
// awaitReply adds the paste hint shown on the offering side.
func DescriptorView(role, text string, awaitReply bool) string {
	content := fmt.Sprintf("%s %s\n\n%s",
		IconCopy, BoldStyle.Foreground(Primary).Render("Send this "+role+" to your peer:"),
		text,
	)
	if awaitReply {
		content += "\n\n" + MutedStyle.Render("Then paste their reply below, followed by an empty line.")
	}
	return DescriptorBoxStyle.Render(content)
}
