package imaging

import (
	"math"
	"strings"
	"testing"
)

func TestComputeStats(t *testing.T) {
	st := ComputeStats([]int16{-1000, 0, 0, 1000, 500})
	if st.Min != -1000 || st.Max != 1000 || st.Mean != 100 || st.Median != 0 {
		t.Errorf("stats = %+v", st)
	}
	if st.StdDev <= 0 {
		t.Errorf("StdDev = %v, want > 0", st.StdDev)
	}
	if ComputeStats(nil) != (SampleStats{}) {
		t.Error("empty input should give zero stats")
	}
}

func TestAutoWindow(t *testing.T) {
	flat := AutoWindow(ComputeStats([]int16{42, 42, 42}))
	if flat.Center != 42 || flat.Width != 1 {
		t.Errorf("flat AutoWindow = %v", flat)
	}

	st := ComputeStats([]int16{-1000, -1000, 0, 0, 1000, 1000})
	wl := AutoWindow(st)
	low, high := wl.Center-wl.Width/2, wl.Center+wl.Width/2
	if low < st.Min-1e-9 || high > st.Max+1e-9 || math.IsNaN(wl.Width) {
		t.Errorf("AutoWindow %v escapes [%v, %v]", wl, st.Min, st.Max)
	}
}

func TestPresets(t *testing.T) {
	tests := []struct {
		name string
		want WindowLevel
	}{
		{"lung", WindowLevel{Center: -600, Width: 1500}},
		{"SOFT", WindowLevel{Center: 40, Width: 400}},
		{" bone ", WindowLevel{Center: 300, Width: 1500}},
		{"brain", WindowLevel{Center: 40, Width: 80}},
	}
	for _, tt := range tests {
		got, err := LookupPreset(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("LookupPreset(%q) = %v, %v; want %v", tt.name, got, err, tt.want)
		}
	}

	_, err := LookupPreset("lungs")
	if err == nil || !strings.Contains(err.Error(), "valid options") {
		t.Errorf("unknown preset error = %v", err)
	}

	RegisterPreset("Narrow", WindowLevel{Center: 10, Width: 0})
	if got, _ := LookupPreset("narrow"); got.Width != 1 {
		t.Errorf("registered preset width = %v, want normalized 1", got.Width)
	}

	for _, name := range ShortcutPresets {
		if _, err := LookupPreset(name); err != nil {
			t.Errorf("shortcut preset %q missing", name)
		}
	}
	if names := PresetNames(); len(names) != len(Presets()) {
		t.Errorf("PresetNames and Presets disagree: %d vs %d", len(names), len(Presets()))
	}
}
