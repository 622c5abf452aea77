package dpix

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// FilterKind selects the atlas smoothing filter.
type FilterKind uint8

// Atlas filters.
const (
	FilterBilateral FilterKind = iota
	FilterMedian
	FilterSmoothAndThreshold
)

var filterKindNames = [...]string{
	FilterBilateral:          "bilateral",
	FilterMedian:             "median",
	FilterSmoothAndThreshold: "smooth_and_threshold",
}

// String returns the filter name.
func (k FilterKind) String() string {
	if int(k) < len(filterKindNames) {
		return filterKindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k FilterKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FilterKind) UnmarshalText(b []byte) error {
	for i, n := range filterKindNames {
		if n == string(b) {
			*k = FilterKind(i)
			return nil
		}
	}
	return fmt.Errorf("dpix: unknown filter %q", b)
}

// FocusMode selects how the focal point for priority is chosen.
type FocusMode uint8

// Focus modes.
const (
	FocusNone FocusMode = iota
	FocusCamera
	FocusWorld
	FocusScreen
	FocusObject
)

var focusModeNames = [...]string{
	FocusNone:   "none",
	FocusCamera: "camera",
	FocusWorld:  "world",
	FocusScreen: "screen",
	FocusObject: "object",
}

// String returns the focus mode name.
func (m FocusMode) String() string {
	if int(m) < len(focusModeNames) {
		return focusModeNames[m]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (m FocusMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FocusMode) UnmarshalText(b []byte) error {
	for i, n := range focusModeNames {
		if n == string(b) {
			*m = FocusMode(i)
			return nil
		}
	}
	return fmt.Errorf("dpix: unknown focus mode %q", b)
}

// Settings controls the line pipeline. The zero value is not useful; start
// from DefaultSettings.
type Settings struct {
	// DrawProfiles includes profile edges. Toggling it rebuilds the
	// path vertex atlas.
	DrawProfiles bool `toml:"draw_profiles"`

	CheckVisibility  bool `toml:"check_visibility"`
	CheckPriority    bool `toml:"check_priority"`
	FilterVisibility bool `toml:"filter_visibility"`
	FilterPriority   bool `toml:"filter_priority"`

	// Filter smooths the visibility atlas; PriorityFilter the priority
	// atlas.
	Filter         FilterKind `toml:"filter"`
	PriorityFilter FilterKind `toml:"priority_filter"`

	// SampleSpacing is the screen distance in pixels between atlas samples.
	SampleSpacing float32 `toml:"sample_spacing"`

	// VisibilitySupersample scales the depth buffer resolution.
	VisibilitySupersample int `toml:"visibility_supersample"`

	// DepthScale scales the depth test tolerance.
	DepthScale float32 `toml:"depth_scale"`

	// KernelScaleX and KernelScaleY scale the 3x3 depth test footprint.
	KernelScaleX float32 `toml:"kernel_scale_x"`
	KernelScaleY float32 `toml:"kernel_scale_y"`

	FocusMode  FocusMode `toml:"focus_mode"`
	FocusPoint Vec3      `toml:"focus_point"`

	// Workers bounds the goroutines used by the software device;
	// zero means GOMAXPROCS.
	Workers int `toml:"workers"`
}

// DefaultSettings returns the default pipeline settings.
func DefaultSettings() Settings {
	return Settings{
		DrawProfiles:          true,
		CheckVisibility:       true,
		Filter:                FilterSmoothAndThreshold,
		PriorityFilter:        FilterBilateral,
		SampleSpacing:         2,
		VisibilitySupersample: 1,
		DepthScale:            1,
		KernelScaleX:          1,
		KernelScaleY:          1,
	}
}

// DepthBias is the depth test tolerance in [0,1] depth units.
func (s *Settings) DepthBias() float32 {
	return s.DepthScale * 1e-3
}

// Validate reports settings that would make the pipeline misbehave.
func (s *Settings) Validate() error {
	if s.SampleSpacing <= 0 {
		return fmt.Errorf("dpix: sample spacing must be positive, got %v", s.SampleSpacing)
	}
	if s.VisibilitySupersample < 1 {
		return fmt.Errorf("dpix: visibility supersample must be at least 1, got %d", s.VisibilitySupersample)
	}
	if s.Workers < 0 {
		return fmt.Errorf("dpix: negative worker count %d", s.Workers)
	}
	return nil
}

// LoadSettings reads a TOML settings file. Keys missing from the file
// keep their default values.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("dpix: read settings: %w", err)
	}
	return ParseSettings(data)
}

// ParseSettings decodes TOML settings on top of DefaultSettings.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Settings{}, fmt.Errorf("dpix: parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save writes the settings as TOML.
func (s Settings) Save(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("dpix: encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dpix: write settings: %w", err)
	}
	return nil
}
