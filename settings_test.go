package dpix

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("DefaultSettings().Validate() = %v", err)
	}
	if s.SampleSpacing != 2 {
		t.Errorf("SampleSpacing = %v, want 2", s.SampleSpacing)
	}
	if !s.DrawProfiles || !s.CheckVisibility {
		t.Error("profiles and visibility should be enabled by default")
	}
}

func TestParseSettings(t *testing.T) {
	data := []byte(`
draw_profiles = false
check_priority = true
filter = "median"
sample_spacing = 4.0
focus_mode = "screen"

[focus_point]
x = 0.5
y = 0.25
`)
	s, err := ParseSettings(data)
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	if s.DrawProfiles {
		t.Error("DrawProfiles = true, want false")
	}
	if !s.CheckPriority {
		t.Error("CheckPriority = false, want true")
	}
	if s.Filter != FilterMedian {
		t.Errorf("Filter = %v, want median", s.Filter)
	}
	if s.SampleSpacing != 4 {
		t.Errorf("SampleSpacing = %v, want 4", s.SampleSpacing)
	}
	if s.FocusMode != FocusScreen {
		t.Errorf("FocusMode = %v, want screen", s.FocusMode)
	}
	if !s.FocusPoint.Approx(V3(0.5, 0.25, 0), 1e-6) {
		t.Errorf("FocusPoint = %v", s.FocusPoint)
	}
	// Untouched keys keep their defaults.
	if s.KernelScaleX != 1 || !s.CheckVisibility {
		t.Error("defaults not preserved")
	}
}

func TestParseSettings_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "bogus = 1", "parse settings"},
		{"bad filter", `filter = "gaussian"`, "unknown filter"},
		{"bad spacing", "sample_spacing = 0.0", "sample spacing"},
		{"bad supersample", "visibility_supersample = 0", "supersample"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseSettings(%q) error = %v, want containing %q", tt.data, err, tt.want)
			}
		})
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	s := DefaultSettings()
	s.FilterPriority = true
	s.Filter = FilterSmoothAndThreshold
	s.Workers = 3
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if got != s {
		t.Errorf("LoadSettings() = %+v, want %+v", got, s)
	}
}

func TestLoadSettings_Missing(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadSettings() of a missing file should fail")
	}
}
