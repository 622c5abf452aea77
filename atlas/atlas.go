package atlas

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/mathx"
	"github.com/gogpu/dpix/render"
)

// Atlas limits.
const (
	// MaximumSamples bounds the number of samples per frame.
	MaximumSamples = 1 << 20

	// MaximumSegmentLength caps the samples of one segment. It is also the
	// margin kept free at the end of every atlas row, so a run starting
	// before the wrap width always fits in its row.
	MaximumSegmentLength = 1 << 10

	// DefaultSampleSpacing is the screen distance between samples in pixels.
	DefaultSampleSpacing = 2.0
)

// Which selects one of the atlas buffers.
type Which int

// Atlas buffers.
const (
	Visibility Which = iota
	Priority
	numBuffers
)

// String returns the buffer name.
func (w Which) String() string {
	switch w {
	case Visibility:
		return "visibility"
	case Priority:
		return "priority"
	}
	return fmt.Sprintf("Which(%d)", int(w))
}

// FilterState tracks whether a buffer's filtered copy matches its raw
// contents.
type FilterState int

// Filter states.
const (
	FilterStale FilterState = iota
	FilterCurrent
)

// String returns the state name.
func (s FilterState) String() string {
	if s == FilterCurrent {
		return "current"
	}
	return "stale"
}

// DepthSource renders the scene depth that samples are tested against.
type DepthSource interface {
	RenderDepth(cam *dpix.Camera, scene *dpix.Scene) (gpucore.TextureID, error)
}

// PrioritySource renders the per-pixel winning path priority.
type PrioritySource interface {
	RenderPriority(cam *dpix.Camera, scene *dpix.Scene, settings *dpix.Settings, style *dpix.Style) (gpucore.TextureID, error)
}

// supersampler is implemented by depth sources rendering above the camera
// resolution.
type supersampler interface {
	Supersample() int
}

// Path vertex texture attachments.
const (
	attVert0 = iota
	attVert1
	attNormal0
	attNormal1
	attPathStartEnd
	numPathTextures
)

// Clip texture attachments.
const (
	attClip0 = iota
	attClip1
	attLengths
	numClipTextures
)

// pathState records what the path vertex textures were built from.
type pathState struct {
	scene    *dpix.Scene
	revision uint64
	profiles bool
	valid    bool
}

// SegmentAtlas owns the atlas pipeline's device resources.
//
// A SegmentAtlas is not safe for concurrent use.
type SegmentAtlas struct {
	adapter  gpucore.Adapter
	settings dpix.Settings
	style    *dpix.Style
	depth    DepthSource
	priority PrioritySource
	owned    []interface{ Close() }

	programs map[string]*gpucore.Program

	pathFB      *gpucore.Framebuffer
	clipFB      *gpucore.Framebuffer
	sumFB       [2]*gpucore.Framebuffer
	farFB       *gpucore.Framebuffer
	atlasFB     [numBuffers]*gpucore.Framebuffer
	filteredFB  [numBuffers]*gpucore.Framebuffer
	filterState [numBuffers]FilterState

	path     pathState
	pathData [numPathTextures][]float32

	totalSegments int
	side          int
	totalSamples  int
	offsetsFB     *gpucore.Framebuffer
	offsetsAtt    int

	width, height, wrap int
	cam                 dpix.Camera
	drawn               bool

	err     error
	dumpDir string
}

// New creates a segment atlas on a. The atlas is as wide as the device's
// largest texture and has enough rows of WrapWidth samples to hold
// MaximumSamples.
func New(a gpucore.Adapter, opts ...Option) (*SegmentAtlas, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.settings.Validate(); err != nil {
		return nil, err
	}

	limits := a.Limits()
	width := limits.MaxTextureSize
	if width <= MaximumSegmentLength {
		return nil, fmt.Errorf("%w: atlas: max texture size %d leaves no room for segments of %d samples",
			gpucore.ErrCapacity, width, MaximumSegmentLength)
	}
	height := mathx.CeilDiv(MaximumSamples, width-MaximumSegmentLength)
	if height > limits.MaxTextureSize {
		return nil, fmt.Errorf("%w: atlas: %d samples need %d rows, device allows %d",
			gpucore.ErrCapacity, MaximumSamples, height, limits.MaxTextureSize)
	}
	if limits.MaxColorAttachments < numPathTextures {
		return nil, fmt.Errorf("%w: atlas: need %d color attachments, device has %d",
			gpucore.ErrCapacity, numPathTextures, limits.MaxColorAttachments)
	}

	sa := &SegmentAtlas{
		adapter:  a,
		settings: o.settings,
		style:    o.style,
		depth:    o.depth,
		priority: o.priority,
		programs: make(map[string]*gpucore.Program),
		pathFB:   gpucore.NewFramebuffer(a, "path_vertex"),
		clipFB:   gpucore.NewFramebuffer(a, "clip"),
		farFB:    gpucore.NewFramebuffer(a, "far_plane"),
		width:    width,
		height:   height,
		wrap:     width - MaximumSegmentLength,
	}
	sa.sumFB[0] = gpucore.NewFramebuffer(a, "sum_ping")
	sa.sumFB[1] = gpucore.NewFramebuffer(a, "sum_pong")
	for w := range numBuffers {
		sa.atlasFB[w] = gpucore.NewFramebuffer(a, "atlas_"+w.String())
	}

	var depthRaster *render.DepthRasterizer
	if sa.depth == nil {
		depthRaster = render.NewDepthRasterizer(a, o.settings.VisibilitySupersample, o.settings.Workers)
		sa.depth = depthRaster
		sa.owned = append(sa.owned, depthRaster)
	}
	if sa.priority == nil {
		pb := render.NewPriorityBuffer(a, depthRaster)
		sa.priority = pb
		sa.owned = append(sa.owned, pb)
	}

	gpucore.Logger().Debug("atlas: created", "device", a.Name(),
		"width", width, "height", height, "wrap", sa.wrap)
	return sa, nil
}

// Err returns the device error that poisoned the atlas, or nil.
func (a *SegmentAtlas) Err() error { return a.err }

// Adapter returns the device the atlas runs on.
func (a *SegmentAtlas) Adapter() gpucore.Adapter { return a.adapter }

// Settings returns the current settings.
func (a *SegmentAtlas) Settings() dpix.Settings { return a.settings }

// SetSettings replaces the settings. They take effect on the next Draw.
func (a *SegmentAtlas) SetSettings(s dpix.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.settings = s
	return nil
}

// Style returns the style used by the priority pass.
func (a *SegmentAtlas) Style() *dpix.Style { return a.style }

// Camera returns the camera of the last frame.
func (a *SegmentAtlas) Camera() dpix.Camera { return a.cam }

// Focus returns the focal point uniform of the last frame, as
// dpix.Settings.FocusParams computes it.
func (a *SegmentAtlas) Focus() [4]float32 {
	if a.path.scene == nil {
		return [4]float32{}
	}
	return a.settings.FocusParams(a.cam, a.path.scene)
}

// TotalSegments returns the number of segments in the path vertex
// textures.
func (a *SegmentAtlas) TotalSegments() int { return a.totalSegments }

// TotalSamples returns the sample count of the last frame.
func (a *SegmentAtlas) TotalSamples() int { return a.totalSamples }

// Side returns the side of the square per-segment textures.
func (a *SegmentAtlas) Side() int { return a.side }

// Width returns the atlas texture width.
func (a *SegmentAtlas) Width() int { return a.width }

// Height returns the atlas texture height.
func (a *SegmentAtlas) Height() int { return a.height }

// WrapWidth returns the column at which sample runs wrap to the next row.
func (a *SegmentAtlas) WrapWidth() int { return a.wrap }

// SampleSpacing returns the screen distance between samples.
func (a *SegmentAtlas) SampleSpacing() float32 { return a.settings.SampleSpacing }

// PathStartEndBuffer returns the per-segment texture of (first segment,
// last segment, path priority, 0) of the owning path.
func (a *SegmentAtlas) PathStartEndBuffer() gpucore.TextureID {
	return a.pathFB.ColorTexture(attPathStartEnd)
}

// ClipBuffer returns the clipped endpoint texture of endpoint i (0 or 1):
// (x, y, depth, t) per segment.
func (a *SegmentAtlas) ClipBuffer(i int) gpucore.TextureID {
	if i != 0 && i != 1 {
		return gpucore.InvalidID
	}
	return a.clipFB.ColorTexture(attClip0 + i)
}

// SegmentLengths returns the per-segment (samples, pixel length, 0, 0)
// texture.
func (a *SegmentAtlas) SegmentLengths() gpucore.TextureID {
	return a.clipFB.ColorTexture(attLengths)
}

// OffsetBuffer returns the inclusive prefix sum of sample counts.
func (a *SegmentAtlas) OffsetBuffer() gpucore.TextureID {
	if a.offsetsFB == nil {
		return gpucore.InvalidID
	}
	return a.offsetsFB.ColorTexture(a.offsetsAtt)
}

// FilterState returns the state of which's filtered copy.
func (a *SegmentAtlas) FilterState(which Which) FilterState {
	return a.filterState[which]
}

// AtlasBuffer returns the texture consumers read for which: the filtered
// copy when it is current, the raw atlas otherwise.
func (a *SegmentAtlas) AtlasBuffer(which Which) gpucore.TextureID {
	if a.filterState[which] == FilterCurrent && a.filteredFB[which] != nil {
		return a.filteredFB[which].ColorTexture(0)
	}
	return a.atlasFB[which].ColorTexture(0)
}

// Drawn reports whether the last Draw produced an atlas.
func (a *SegmentAtlas) Drawn() bool { return a.drawn }

// Draw runs the atlas pipeline for one frame. It reports false without an
// error when there is nothing to draw or a capacity limit was hit; such
// frames draw no lines. Any other error poisons the atlas.
func (a *SegmentAtlas) Draw(ctx context.Context, scene *dpix.Scene, cam *dpix.Camera) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	a.cam = *cam
	a.drawn = false
	a.totalSamples = 0
	for w := range a.filterState {
		a.filterState[w] = FilterStale
	}

	if err := a.refreshPathData(scene); err != nil {
		return false, a.degrade("path vertex atlas", err)
	}
	if a.totalSegments == 0 {
		return false, nil
	}

	depth, err := a.depthTexture(scene, cam)
	if err != nil {
		return false, a.degrade("depth buffer", err)
	}
	if err := a.clip(); err != nil {
		return false, a.degrade("clip", err)
	}
	if err := a.prefixSum(ctx); err != nil {
		return false, a.degrade("prefix sum", err)
	}
	if err := a.rasterize(Visibility, depth); err != nil {
		return false, a.degrade("visibility", err)
	}
	if a.settings.FilterVisibility {
		if err := a.Filter(Visibility, a.settings.Filter); err != nil {
			return false, err
		}
	}

	if a.settings.CheckPriority {
		prio, err := a.priority.RenderPriority(cam, scene, &a.settings, a.style)
		if err != nil {
			return false, a.degrade("priority buffer", err)
		}
		if err := a.CheckPriority(prio); err != nil {
			return false, err
		}
		if a.settings.FilterPriority {
			if err := a.Filter(Priority, a.settings.PriorityFilter); err != nil {
				return false, err
			}
		}
	}

	a.drawn = true
	gpucore.Logger().Debug("atlas: frame", "segments", a.totalSegments, "samples", a.totalSamples)

	if a.dumpDir != "" {
		dir := a.dumpDir
		a.dumpDir = ""
		if err := a.dump(ctx, dir); err != nil {
			gpucore.Logger().Warn("atlas: dump failed", "dir", dir, "err", err)
		}
	}
	return true, nil
}

// CheckPriority rasterizes the priority atlas against a priority buffer.
// The visibility atlas of the current frame masks the result.
func (a *SegmentAtlas) CheckPriority(priorityBuffer gpucore.TextureID) error {
	if a.err != nil {
		return a.err
	}
	if a.totalSegments == 0 {
		return nil
	}
	if err := a.rasterize(Priority, priorityBuffer); err != nil {
		return a.degrade("priority", err)
	}
	return nil
}

// degrade handles a stage failure: capacity problems are logged and
// swallowed, anything else poisons the atlas.
func (a *SegmentAtlas) degrade(stage string, err error) error {
	if gpucore.IsCapacity(err) {
		gpucore.Logger().Warn("atlas: capacity exceeded, frame skipped", "stage", stage, "err", err)
		return nil
	}
	a.fail(fmt.Errorf("atlas: %s: %w", stage, err))
	return a.err
}

func (a *SegmentAtlas) fail(err error) {
	if a.err == nil {
		a.err = err
		gpucore.Logger().Error("atlas: device failure", "err", err)
	}
}

// program returns the cached binding of a named program.
func (a *SegmentAtlas) program(name string) (*gpucore.Program, error) {
	if p, ok := a.programs[name]; ok {
		return p, nil
	}
	p, err := gpucore.BindProgram(a.adapter, name)
	if err != nil {
		return nil, err
	}
	a.programs[name] = p
	return p, nil
}

// drawInto runs fn with fb bound.
func drawInto(fb *gpucore.Framebuffer, fn func() error) error {
	fb.Bind()
	defer fb.Unbind()
	return fn()
}

// depthTexture returns the depth buffer samples are tested against. With
// visibility checks off, every sample passes against a far plane.
func (a *SegmentAtlas) depthTexture(scene *dpix.Scene, cam *dpix.Camera) (gpucore.TextureID, error) {
	if !a.settings.CheckVisibility {
		if !a.farFB.Initialized() {
			if err := a.farFB.Init(1, 1, 1); err != nil {
				return gpucore.InvalidID, err
			}
			if err := a.farFB.Clear([4]float32{1, 1, 1, 1}); err != nil {
				return gpucore.InvalidID, err
			}
		}
		return a.farFB.ColorTexture(0), nil
	}
	return a.depth.RenderDepth(cam, scene)
}

// referenceScale maps camera pixels to depth and priority buffer texels.
func (a *SegmentAtlas) referenceScale() float32 {
	if s, ok := a.depth.(supersampler); ok {
		return float32(s.Supersample())
	}
	return 1
}

// Destroy releases every device resource, including built-in depth and
// priority sources.
func (a *SegmentAtlas) Destroy() {
	fbs := []*gpucore.Framebuffer{a.pathFB, a.clipFB, a.farFB, a.sumFB[0], a.sumFB[1]}
	fbs = append(fbs, a.atlasFB[:]...)
	for _, fb := range append(fbs, a.filteredFB[:]...) {
		if fb != nil {
			fb.Destroy()
		}
	}
	for _, c := range a.owned {
		c.Close()
	}
	a.owned = nil
	if a.err == nil {
		a.err = errDestroyed
	}
}

var errDestroyed = errors.New("atlas: destroyed")
