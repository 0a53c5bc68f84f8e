package imaging

import (
	"fmt"
	"sort"
	"strings"
)

// Preset is a named window.
type Preset struct {
	Name   string
	Window WindowLevel
}

// DefaultWindow is the lung window the synthetic chest series is tuned for.
var DefaultWindow = WindowLevel{Center: -600, Width: 1500}

// CT window presets. lung, soft and bone are the viewer's shortcut buttons;
// the rest are common reading presets.
var presets = map[string]WindowLevel{
	"lung":        {Center: -600, Width: 1500},
	"soft":        {Center: 40, Width: 400},
	"bone":        {Center: 300, Width: 1500},
	"brain":       {Center: 40, Width: 80},
	"subdural":    {Center: 75, Width: 215},
	"mediastinum": {Center: 40, Width: 400},
	"abdomen":     {Center: 40, Width: 350},
	"liver":       {Center: 60, Width: 150},
}

// ShortcutPresets are the presets bound to single keys in interactive viewers.
var ShortcutPresets = []string{"lung", "soft", "bone"}

// LookupPreset returns the preset window for name (case-insensitive).
func LookupPreset(name string) (WindowLevel, error) {
	wl, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return WindowLevel{}, fmt.Errorf("unknown window preset %q, valid options: %v", name, PresetNames())
	}
	return wl, nil
}

// RegisterPreset adds or replaces a preset. Width is normalized.
func RegisterPreset(name string, wl WindowLevel) {
	presets[strings.ToLower(strings.TrimSpace(name))] = wl.Normalized()
}

// PresetNames returns all preset names sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Presets returns all presets sorted by name.
func Presets() []Preset {
	names := PresetNames()
	out := make([]Preset, len(names))
	for i, name := range names {
		out[i] = Preset{Name: name, Window: presets[name]}
	}
	return out
}
