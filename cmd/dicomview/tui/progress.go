package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/mrsinham/dicomview/cmd/dicomview/tui/components"
)

// ProgressMsg reports slices written so far.
type ProgressMsg struct {
	Current int
	Total   int
}

// CompletionMsg is sent once every slice of the series is on disk.
type CompletionMsg struct {
	TotalFiles int
	TotalSize  int64
	Duration   time.Duration
	OutputDir  string
}

// ErrorMsg is sent when writing the series fails.
type ErrorMsg struct {
	Error error
}

var (
	counterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	commandStyle = lipgloss.NewStyle().Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).Padding(0, 1)
)

// ProgressScreen shows how far the series writer has got.
type ProgressScreen struct {
	bar     progress.Model
	current int
	total   int
	started time.Time
}

// NewProgressScreen returns a screen for a series of total slices.
func NewProgressScreen(total int) *ProgressScreen {
	return &ProgressScreen{
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total:   total,
		started: time.Now(),
	}
}

// SetProgress records that current of total slices are written.
func (s *ProgressScreen) SetProgress(current, total int) {
	s.current, s.total = current, total
}

// SetWidth sizes the bar to half the terminal, between 40 and 60 columns.
func (s *ProgressScreen) SetWidth(width int) {
	s.bar.Width = max(40, min(width/2, 60))
}

// Fraction is the completed share in [0, 1].
func (s *ProgressScreen) Fraction() float64 {
	if s.total <= 0 {
		return 0
	}
	return min(1, float64(s.current)/float64(s.total))
}

func (s *ProgressScreen) View() string {
	lines := []string{
		components.TitleStyle.Render("Writing DICOM series..."),
		"",
		s.bar.ViewAs(s.Fraction()),
		"",
		counterStyle.Render(fmt.Sprintf("File %d/%d", s.current, s.total)),
		counterStyle.Render(fmt.Sprintf("Elapsed: %.1fs", time.Since(s.started).Seconds())),
		"",
		components.HintStyle.Render("Press Ctrl+C to cancel"),
	}
	return strings.Join(lines, "\n")
}

// completionView summarizes a finished run and suggests what to do with it.
func completionView(msg CompletionMsg) string {
	var sb strings.Builder
	sb.WriteString(successStyle.Render("✓ Generation complete!"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "  %s %d slices, %s in %.1fs\n", components.SubtitleStyle.Render("Wrote"),
		msg.TotalFiles, formatSize(msg.TotalSize), msg.Duration.Seconds())
	fmt.Fprintf(&sb, "  %s %s\n\n", components.SubtitleStyle.Render("Into"), msg.OutputDir)
	sb.WriteString("  View it:   " + commandStyle.Render("dicomview view --series "+msg.OutputDir) + "\n")
	sb.WriteString("  Export it: " + commandStyle.Render("dicomview export --input "+msg.OutputDir) + "\n\n")
	sb.WriteString(components.HintStyle.Render("Press Enter or q to exit"))
	return sb.String()
}

func errorView(err error) string {
	return failureStyle.Render("✗ Generation failed") + "\n\n  " +
		components.ErrorStyle.Render(err.Error()) + "\n\n" +
		components.HintStyle.Render("Press Enter or q to exit")
}

// formatSize prints a byte count in binary units: 512 B, 2.0 KiB, 3.0 MiB.
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// isExitKey reports whether msg should close a finished screen.
func isExitKey(msg tea.Msg) bool {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return false
	}
	switch k.String() {
	case "ctrl+c", "esc", "enter", "q":
		return true
	}
	return false
}
