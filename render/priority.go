package render

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/kernels"
)

// PriorityBuffer renders, for every pixel, the highest path priority of
// the visible strokes covering it. Stroke width follows the style's
// priority width ramp of the focus-weighted priority. The segment atlas
// compares each sample's path priority against this buffer.
type PriorityBuffer struct {
	fb     *gpucore.Framebuffer
	depth  *DepthRasterizer
	texels *gpucore.Texels
}

// NewPriorityBuffer creates a priority buffer. Strokes are depth tested
// against depth's last buffer when depth is non-nil, and the buffer uses
// depth's supersampled resolution.
func NewPriorityBuffer(a gpucore.Adapter, depth *DepthRasterizer) *PriorityBuffer {
	return &PriorityBuffer{fb: gpucore.NewFramebuffer(a, "priority"), depth: depth}
}

// Texels returns the host copy of the last priority buffer.
func (b *PriorityBuffer) Texels() *gpucore.Texels {
	return b.texels
}

// RenderPriority draws every visible segment of the sorted path list as
// a stroke of the style's priority width and uploads the buffer.
func (b *PriorityBuffer) RenderPriority(cam *dpix.Camera, scene *dpix.Scene, settings *dpix.Settings, style *dpix.Style) (gpucore.TextureID, error) {
	ss := 1
	var depth *gpucore.Texels
	if b.depth != nil {
		ss = b.depth.Supersample()
		depth = b.depth.Texels()
	}
	width, height := cam.Width*ss, cam.Height*ss
	if err := b.fb.Init(1, width, height); err != nil {
		return gpucore.InvalidID, fmt.Errorf("render: priority buffer: %w", err)
	}
	if b.texels == nil || b.texels.Width != width || b.texels.Height != height {
		b.texels = gpucore.NewTexels(width, height)
	}
	buf := b.texels
	buf.Fill([4]float32{})

	scale := float32(ss)
	viewProj := cam.ViewProjection()
	viewport := [4]float32{0, 0, float32(width), float32(height)}
	focus := settings.FocusParams(*cam, scene)
	focusTransfer := style.Transfer(dpix.FocusTransfer).Array()
	widthTransfer := style.Transfer(dpix.PriorityWidth)
	bias := settings.DepthBias()
	unit := [2]float32{1, 1}

	scene.VisitSegments(settings.DrawProfiles, func(seg *dpix.WorldSegment) {
		if seg.Profile && !kernels.IsSilhouette(seg.N0, seg.N1, seg.V0.Add(seg.V1).Mul(0.5), cam.Eye) {
			return
		}
		cs, ok := kernels.ClipSegment(viewProj, viewport, seg.V0, seg.V1)
		if !ok {
			return
		}
		n := max(int(math32.Ceil(cs.Length())), 1)
		for k := range n {
			t := kernels.SampleParam(k, n)
			x := cs.X0 + (cs.X1-cs.X0)*t
			y := cs.Y0 + (cs.Y1-cs.Y0)*t
			z := cs.Depth0 + (cs.Depth1-cs.Depth0)*t
			if depth != nil && kernels.DepthVisibility(depth, x, y, z, bias, unit, unit) < 0.5 {
				continue
			}
			p := kernels.SamplePriority(seg.Priority, x/scale, y/scale, focus, focusTransfer)
			radius := max(0.5, 0.5*style.BaseWidth*widthTransfer.Compute(p)*scale)
			stampMax(buf, x, y, radius, seg.Priority)
		}
	})

	if err := b.fb.Upload(0, buf.Pix); err != nil {
		return gpucore.InvalidID, err
	}
	return b.fb.ColorTexture(0), nil
}

// stampMax raises every texel whose center lies within the square of
// half-side radius around (x, y) to at least v.
func stampMax(buf *gpucore.Texels, x, y, radius, v float32) {
	x0 := max(int(math32.Ceil(x-radius-0.5)), 0)
	x1 := min(int(math32.Floor(x+radius-0.5)), buf.Width-1)
	y0 := max(int(math32.Ceil(y-radius-0.5)), 0)
	y1 := min(int(math32.Floor(y+radius-0.5)), buf.Height-1)
	for py := y0; py <= y1; py++ {
		for px := x0; px <= x1; px++ {
			if buf.At(px, py)[0] < v {
				buf.Set(px, py, [4]float32{v, v, v, 1})
			}
		}
	}
}

// Close releases the priority texture.
func (b *PriorityBuffer) Close() {
	b.fb.Destroy()
}
