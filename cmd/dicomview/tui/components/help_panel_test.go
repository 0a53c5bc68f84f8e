package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/dicomview/cmd/dicomview/tui/help"
)

func TestHelpPanel_View(t *testing.T) {
	p := NewHelpPanel()
	if !strings.Contains(p.View(), "Move to a field") {
		t.Errorf("unfocused view = %q", p.View())
	}

	for field, text := range help.Texts {
		p.SetField(field)
		if !strings.Contains(p.View(), text.Title) {
			t.Errorf("%s: view does not show title %q", field, text.Title)
		}
	}
}

func TestKeysView(t *testing.T) {
	out := KeysView(80)
	for _, k := range help.ViewerKeys {
		if !strings.Contains(out, k.Keys) || !strings.Contains(out, k.Description) {
			t.Errorf("missing binding %q", k.Keys)
		}
	}

	// Narrow terminals still get a readable panel.
	if w := lipgloss.Width(KeysView(0)); w < minPanelWidth {
		t.Errorf("panel is %d columns, want at least %d", w, minPanelWidth)
	}
	t.Logf("✓ %d key bindings listed", len(help.ViewerKeys))
}
