package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrsinham/dicomview/internal/imaging"
	"github.com/mrsinham/dicomview/internal/report"
	"github.com/mrsinham/dicomview/internal/viewer"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestViewer(t *testing.T, cfg viewer.OpenConfig) (*Viewer, *viewer.Session) {
	t.Helper()
	sess := viewer.NewSession(nil)
	v := NewViewer(sess)
	req := report.SeriesRequest{PatientID: "P-1024", Findings: []string{"Ground-glass opacity"}}
	if err := sess.Open(context.Background(), req, cfg); err != nil {
		t.Fatalf("open session: %v", err)
	}
	return v, sess
}

func TestHalfBlocks(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		cols      int
		wantLines int
	}{
		{"even rows", 4, 3, 2},
		{"odd rows", 3, 3, 2},
		{"single row", 1, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &imaging.RenderedSlice{Rows: tt.rows, Columns: tt.cols, Pix: make([]byte, tt.rows*tt.cols)}
			lines := strings.Split(HalfBlocks(s), "\n")
			if len(lines) != tt.wantLines {
				t.Fatalf("got %d lines, want %d", len(lines), tt.wantLines)
			}
			for i, line := range lines {
				if n := strings.Count(line, "▀"); n != tt.cols {
					t.Errorf("line %d has %d blocks, want %d", i, n, tt.cols)
				}
			}
		})
	}
}

func TestFit(t *testing.T) {
	square := &imaging.RenderedSlice{Rows: 256, Columns: 256, Pix: make([]byte, 256*256)}
	wide := &imaging.RenderedSlice{Rows: 10, Columns: 40, Pix: make([]byte, 400)}

	tests := []struct {
		name         string
		src          *imaging.RenderedSlice
		cols, lines  int
		wantW, wantH int
	}{
		{"limited by lines", square, 80, 30, 60, 60},
		{"limited by columns", square, 64, 100, 64, 64},
		{"wide image", wide, 20, 50, 20, 5},
		{"no space", square, 0, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fit(tt.src, tt.cols, tt.lines)
			if got.Columns != tt.wantW || got.Rows != tt.wantH {
				t.Errorf("Fit = %dx%d, want %dx%d", got.Columns, got.Rows, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestViewer_Keys(t *testing.T) {
	v, sess := newTestViewer(t, viewer.OpenConfig{Forced: viewer.ModeSynthetic, SyntheticSize: 16, SyntheticSlices: 10})

	steps := []struct {
		msg       tea.KeyMsg
		wantIndex int
		wantWL    imaging.WindowLevel
	}{
		{runes("k"), 1, imaging.DefaultWindow},
		{tea.KeyMsg{Type: tea.KeyUp}, 2, imaging.DefaultWindow},
		{runes("j"), 1, imaging.DefaultWindow},
		{tea.KeyMsg{Type: tea.KeyPgUp}, 9, imaging.DefaultWindow},
		{tea.KeyMsg{Type: tea.KeyHome}, 0, imaging.DefaultWindow},
		{tea.KeyMsg{Type: tea.KeyEnd}, 9, imaging.DefaultWindow},
		{tea.KeyMsg{Type: tea.KeyPgDown}, 0, imaging.DefaultWindow},
		{runes("2"), 0, imaging.WindowLevel{Center: 40, Width: 400}},
		{runes("]"), 0, imaging.WindowLevel{Center: 50, Width: 400}},
		{runes("+"), 0, imaging.WindowLevel{Center: 50, Width: 450}},
		{runes("-"), 0, imaging.WindowLevel{Center: 50, Width: 400}},
		{runes("3"), 0, imaging.WindowLevel{Center: 300, Width: 1500}},
		{runes("1"), 0, imaging.WindowLevel{Center: -600, Width: 1500}},
	}

	for i, st := range steps {
		_, cmd := v.Update(st.msg)
		if cmd != nil {
			t.Fatalf("step %d (%s): unexpected command", i, st.msg)
		}
		if v.Err() != nil {
			t.Fatalf("step %d (%s): %v", i, st.msg, v.Err())
		}
		if v.index != st.wantIndex || sess.Nav.Index() != st.wantIndex {
			t.Errorf("step %d (%s): index = %d, want %d", i, st.msg, v.index, st.wantIndex)
		}
		if got := sess.Nav.WindowLevel(); got != st.wantWL {
			t.Errorf("step %d (%s): window = %v, want %v", i, st.msg, got, st.wantWL)
		}
	}

	v.Update(runes("a"))
	if v.Err() != nil || sess.Nav.WindowLevel() == imaging.DefaultWindow {
		t.Errorf("auto window not applied: %v, %v", sess.Nav.WindowLevel(), v.Err())
	}

	v.Update(runes("?"))
	if !v.showHelp || !strings.Contains(v.View(), "KEYS") {
		t.Error("? should show the key panel")
	}

	_, cmd := v.Update(runes("q"))
	if cmd == nil {
		t.Error("q should quit")
	}
	t.Logf("✓ key bindings drive the session")
}

func TestViewer_WindowKeysClamp(t *testing.T) {
	wl := imaging.WindowLevel{Center: 1195, Width: 20}
	if got := adjust(wl, "]"); got.Center != imaging.MaxDisplayCenter {
		t.Errorf("center = %v, want clamp at %v", got.Center, imaging.MaxDisplayCenter)
	}
	if got := adjust(wl, "-"); got.Width != imaging.MinDisplayWidth {
		t.Errorf("width = %v, want clamp at %v", got.Width, imaging.MinDisplayWidth)
	}
}

func TestViewer_View(t *testing.T) {
	v, _ := newTestViewer(t, viewer.OpenConfig{Forced: viewer.ModeSynthetic, SyntheticSize: 16, SyntheticSlices: 4})
	v.Update(tea.WindowSizeMsg{Width: 60, Height: 30})

	out := v.View()
	for _, want := range []string{
		"Patient: P-1024 | Slices: 4 | Mode: Synthetic | WL: -600 / 1500",
		"Slice: 1 / 4",
		"• Ground-glass opacity",
		"▀",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view lacks %q", want)
		}
	}
}

func TestViewer_Empty(t *testing.T) {
	v, _ := newTestViewer(t, viewer.OpenConfig{AssetRoot: t.TempDir(), NoFallback: true})

	out := v.View()
	if !strings.Contains(out, "No imaging available") || !strings.Contains(out, "Slice: - / -") {
		t.Errorf("empty view = %q", out)
	}

	v.Update(runes("k"))
	if v.Err() == nil {
		t.Error("navigating an empty session should surface an error")
	}
	if !strings.Contains(v.View(), "no series bound") {
		t.Error("error should be shown in the view")
	}
}
