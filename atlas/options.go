package atlas

import "github.com/gogpu/dpix"

// Option configures a SegmentAtlas during creation.
//
// Example:
//
//	sa, err := atlas.New(dev,
//		atlas.WithSettings(settings),
//		atlas.WithStyle(style))
type Option func(*options)

type options struct {
	settings dpix.Settings
	style    *dpix.Style
	depth    DepthSource
	priority PrioritySource
}

func defaultOptions() options {
	return options{
		settings: dpix.DefaultSettings(),
		style:    dpix.DefaultStyle(),
	}
}

// WithSettings sets the pipeline settings. They can be changed later with
// SetSettings.
func WithSettings(s dpix.Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithStyle sets the style consulted by the priority pass.
func WithStyle(s *dpix.Style) Option {
	return func(o *options) {
		if s != nil {
			o.style = s
		}
	}
}

// WithDepthSource replaces the built-in software depth rasterizer.
func WithDepthSource(d DepthSource) Option {
	return func(o *options) {
		o.depth = d
	}
}

// WithPrioritySource replaces the built-in priority buffer.
func WithPrioritySource(p PrioritySource) Option {
	return func(o *options) {
		o.priority = p
	}
}
