// Package tui holds the terminal front ends: the slice viewer and the
// interactive generate form.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/image/draw"

	"github.com/mrsinham/dicomview/cmd/dicomview/tui/components"
	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/viewer"
)

// Lines reserved around the image for title, meta, label, findings and hints.
const chromeLines = 10

// Viewer shows one session in the terminal. It becomes the session's sink,
// so every navigation call made from Update lands back in the model.
type Viewer struct {
	session *viewer.Session

	slice     *imaging.RenderedSlice
	index     int
	total     int
	patientID string
	findings  []string

	err      error
	showHelp bool
	width    int
	height   int
	quitting bool
}

// NewViewer returns a viewer for sess and installs it as the session sink.
// Open the session after this call so the first slice reaches the viewer.
func NewViewer(sess *viewer.Session) *Viewer {
	v := &Viewer{session: sess, width: 80, height: 40}
	sess.Sink = v
	return v
}

// ShowSlice implements viewer.Sink.
func (v *Viewer) ShowSlice(slice *imaging.RenderedSlice, index, total int) {
	v.slice, v.index, v.total = slice, index, total
}

// ShowContext implements viewer.Sink.
func (v *Viewer) ShowContext(patientID string, findings []string) {
	v.patientID, v.findings = patientID, findings
}

// Init implements tea.Model
func (v *Viewer) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
	case tea.KeyMsg:
		if v.handleKey(msg.String()) {
			v.quitting = true
			return v, tea.Quit
		}
	}
	return v, nil
}

// handleKey applies one key press. It returns true when the viewer should quit.
func (v *Viewer) handleKey(key string) bool {
	sess := v.session
	var err error

	switch key {
	case "ctrl+c", "esc", "q":
		return true
	case "up", "k", "right", "l":
		err = sess.Step(1)
	case "down", "j", "left", "h":
		err = sess.Step(-1)
	case "pgup":
		err = sess.Step(10)
	case "pgdown":
		err = sess.Step(-10)
	case "home", "g":
		err = sess.GoTo(0)
	case "end", "G":
		err = sess.GoTo(sess.Nav.Count() - 1)
	case "1", "2", "3":
		err = sess.ApplyPreset(imaging.ShortcutPresets[key[0]-'1'])
	case "a":
		err = sess.AutoWindow()
	case "[", "]", "-", "+", "=":
		err = sess.SetWindowLevel(adjust(sess.Nav.WindowLevel(), key))
	case "?":
		v.showHelp = !v.showHelp
		return false
	default:
		return false
	}

	v.err = err
	return false
}

// adjust nudges wl for a window key, bounded to the display ranges.
func adjust(wl imaging.WindowLevel, key string) imaging.WindowLevel {
	switch key {
	case "[":
		wl.Center -= 10
	case "]":
		wl.Center += 10
	case "-":
		wl.Width -= 50
	case "+", "=":
		wl.Width += 50
	}
	return wl.ClampForDisplay()
}

// View implements tea.Model
func (v *Viewer) View() string {
	if v.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(components.TitleStyle.Render("DICOMVIEW"))
	sb.WriteString("\n")
	sb.WriteString(components.MetaStyle.Render(v.session.Meta()))
	sb.WriteString("\n")
	sb.WriteString(components.SubtitleStyle.Render(viewer.SliceLabel(v.index, v.total)))
	sb.WriteString("\n")

	if v.slice != nil && v.session.Nav.Count() > 0 {
		sb.WriteString(HalfBlocks(Fit(v.slice, v.width, v.height-chromeLines)))
	} else {
		sb.WriteString(components.HintStyle.Render("No imaging available for this patient."))
	}
	sb.WriteString("\n")

	if v.err != nil {
		sb.WriteString(components.ErrorStyle.Render("✗ " + v.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString(components.FindingsStyle.Render(viewer.FindingsText(v.findings)))
	sb.WriteString("\n\n")

	if v.showHelp {
		sb.WriteString(components.KeysView(v.width / 2))
		sb.WriteString("\n")
	}
	sb.WriteString(components.HintStyle.Render("↑/↓: Slice | 1/2/3: Lung/Soft/Bone | a: Auto | ?: Help | q: Quit"))

	return sb.String()
}

// Err returns the error of the last navigation, if any.
func (v *Viewer) Err() error {
	return v.err
}

// Fit scales s to the largest size that fits cols terminal columns and lines
// terminal lines, two pixel rows per line, keeping the aspect ratio. The
// result is never empty.
func Fit(s *imaging.RenderedSlice, cols, lines int) *imaging.RenderedSlice {
	if cols < 1 {
		cols = 1
	}
	if lines < 1 {
		lines = 1
	}

	scale := float64(cols) / float64(s.Columns)
	if h := float64(2*lines) / float64(s.Rows); h < scale {
		scale = h
	}

	w := max(1, int(float64(s.Columns)*scale))
	h := max(1, int(float64(s.Rows)*scale))
	return imaging.Resize(s, w, h, draw.ApproxBiLinear)
}

// HalfBlocks draws s with one "▀" per two vertically stacked pixels: the
// foreground is the upper pixel, the background the lower one. An odd last
// row is drawn over black.
func HalfBlocks(s *imaging.RenderedSlice) string {
	var sb strings.Builder
	for y := 0; y < s.Rows; y += 2 {
		if y > 0 {
			sb.WriteString("\n")
		}
		for x := 0; x < s.Columns; x++ {
			var bottom byte
			if y+1 < s.Rows {
				bottom = s.At(x, y+1)
			}
			cell := lipgloss.NewStyle().
				Foreground(gray(s.At(x, y))).
				Background(gray(bottom))
			sb.WriteString(cell.Render("▀"))
		}
	}
	return sb.String()
}

func gray(v byte) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", v, v, v))
}

// RunViewer runs v full screen until the user quits.
func RunViewer(v *Viewer) error {
	p := tea.NewProgram(v, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
