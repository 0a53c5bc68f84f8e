package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mrsinham/dicomview/cmd/dicomview/tui/help"
)

const minPanelWidth = 24

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	panelTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	panelBody   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	panelDetail = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

// HelpPanel shows the help text of the focused generate form field.
type HelpPanel struct {
	field string
	width int
}

func NewHelpPanel() *HelpPanel {
	return &HelpPanel{width: 60}
}

// SetField selects the help.Texts entry to show.
func (h *HelpPanel) SetField(field string) {
	h.field = field
}

// SetSize sets the outer width. The height is ignored; the panel grows with
// its text.
func (h *HelpPanel) SetSize(width, _ int) {
	h.width = width
}

func (h *HelpPanel) View() string {
	text, ok := help.Texts[h.field]
	if !ok {
		return panel(h.width, panelDetail.Render("Move to a field to see its help"))
	}
	return panel(h.width, lipgloss.JoinVertical(lipgloss.Left,
		panelTitle.Render(text.Title),
		"",
		panelBody.Render(text.Description),
		"",
		panelDetail.Render(text.Details),
	))
}

// KeysView lists the viewer key bindings in a two-column table.
func KeysView(width int) string {
	rows := make([][]string, len(help.ViewerKeys))
	for i, k := range help.ViewerKeys {
		rows[i] = []string{k.Keys, k.Description}
	}
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Rows(rows...).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return panelBody.PaddingRight(2)
			}
			return panelDetail
		})
	return panel(width, lipgloss.JoinVertical(lipgloss.Left, panelTitle.Render("KEYS"), t.String()))
}

func panel(width int, body string) string {
	return panelStyle.Width(max(width, minPanelWidth) - 2).Render(body)
}
