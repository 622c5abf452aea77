package dpix

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// TransferFunc names one of the style's transfer ramps.
type TransferFunc uint8

// Transfer functions driven by focus or priority values.
const (
	FocusTransfer TransferFunc = iota
	LineOpacity
	LineTexture
	LineWidth
	LineOvershoot
	LineElision
	ColorFade
	ColorDesat
	ColorBlur
	PriorityWidth
	PriorityCount
	PaperParams
	numTransferFuncs
)

var transferNames = [numTransferFuncs]string{
	FocusTransfer: "focus_transfer",
	LineOpacity:   "line_opacity",
	LineTexture:   "line_texture",
	LineWidth:     "line_width",
	LineOvershoot: "line_overshoot",
	LineElision:   "line_elision",
	ColorFade:     "color_fade",
	ColorDesat:    "color_desat",
	ColorBlur:     "color_blur",
	PriorityWidth: "priority_width",
	PriorityCount: "priority_count",
	PaperParams:   "paper_params",
}

// String returns the name used in style files.
func (f TransferFunc) String() string {
	if f < numTransferFuncs {
		return transferNames[f]
	}
	return "unknown"
}

// Style is the read-only style provider consulted by the priority pass
// and the stroke renderer.
type Style struct {
	Name       string  `toml:"name"`
	LineColor  Vec3    `toml:"line_color"`
	Background Vec3    `toml:"background"`
	BaseWidth  float32 `toml:"base_width"`

	// DrawInvisibleLines keeps hidden samples with reduced opacity.
	DrawInvisibleLines bool `toml:"draw_invisible_lines"`

	transfers [numTransferFuncs]Transfer
}

// DefaultStyle returns a style with reasonable transfer ramps.
func DefaultStyle() *Style {
	s := &Style{
		Name:       "Base Style",
		Background: V3(1, 1, 1),
		BaseWidth:  2,
	}
	s.transfers[LineOpacity] = Transfer{0, 0.5, 0, 1}
	s.transfers[LineTexture] = Transfer{0, 1, 0, 1}
	s.transfers[LineWidth] = Transfer{0, 0.5, 0, 1}
	s.transfers[LineOvershoot] = Transfer{0, 0, 0.2, 0.8}
	s.transfers[LineElision] = Transfer{0, 0, 0, 1}
	s.transfers[ColorFade] = Transfer{0.4, 0.8, 0, 1}
	s.transfers[ColorDesat] = Transfer{0, 0.8, 0, 1}
	s.transfers[ColorBlur] = Transfer{0, 0.3, 0, 1}
	s.transfers[FocusTransfer] = Transfer{0, 1, 0.2, 0.8}
	s.transfers[PriorityWidth] = Transfer{0.5, 1, 0, 1}
	s.transfers[PriorityCount] = Transfer{0, 1, 0, 1}
	s.transfers[PaperParams] = Transfer{0.15, 0, 0, 1}
	return s
}

// Transfer returns the ramp for f.
func (s *Style) Transfer(f TransferFunc) Transfer {
	return s.transfers[f]
}

// SetTransfer replaces the ramp for f.
func (s *Style) SetTransfer(f TransferFunc, t Transfer) {
	s.transfers[f] = t
}

// TransferByName looks up a ramp by its style-file name.
func (s *Style) TransferByName(name string) (Transfer, bool) {
	for i, n := range transferNames {
		if n == name {
			return s.transfers[i], true
		}
	}
	return Transfer{}, false
}

type styleFile struct {
	Style
	Transfers map[string]Transfer `toml:"transfer_functions"`
}

// LoadStyle reads a TOML style file on top of DefaultStyle.
func LoadStyle(path string) (*Style, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dpix: read style: %w", err)
	}
	return ParseStyle(data)
}

// ParseStyle decodes TOML style data on top of DefaultStyle.
func ParseStyle(data []byte) (*Style, error) {
	f := styleFile{Style: *DefaultStyle()}
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("dpix: parse style: %w", err)
	}
	s := f.Style
	for name, t := range f.Transfers {
		found := false
		for i, n := range transferNames {
			if n == name {
				s.transfers[i] = t
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("dpix: parse style: unknown transfer function %q", name)
		}
	}
	return &s, nil
}
