package stroke

import (
	"context"
	"fmt"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/atlas"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/kernels"
)

// hiddenOpacity is the alpha of occluded samples when the style draws
// invisible lines.
const hiddenOpacity = 0.25

// Quad is the stroke of one atlas sample: a line from P0 to P1 in
// viewport pixels, y up.
type Quad struct {
	P0, P1  [2]float32
	Width   float32
	Alpha   float32
	Segment int
}

// QuadSink draws stroke quads.
type QuadSink interface {
	DrawQuads(quads []Quad) error
}

// Renderer builds stroke quads from a segment atlas. It reuses its quad
// buffer between frames and is not safe for concurrent use.
type Renderer struct {
	quads []Quad
}

// NewRenderer creates a stroke renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// atlasView holds the host copies of the atlas textures of one frame.
type atlasView struct {
	clip0, clip1 *gpucore.Texels
	lengths      *gpucore.Texels
	offsets      *gpucore.Texels
	pathInfo     *gpucore.Texels
	values       *gpucore.Texels
}

func readView(ctx context.Context, sa *atlas.SegmentAtlas, which atlas.Which) (*atlasView, error) {
	ids := []gpucore.TextureID{
		sa.ClipBuffer(0), sa.ClipBuffer(1), sa.SegmentLengths(),
		sa.OffsetBuffer(), sa.PathStartEndBuffer(), sa.AtlasBuffer(which),
	}
	tex := make([]*gpucore.Texels, len(ids))
	for i, id := range ids {
		t, err := sa.Adapter().ReadTexture(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("stroke: read atlas: %w", err)
		}
		tex[i] = t
	}
	return &atlasView{
		clip0: tex[0], clip1: tex[1], lengths: tex[2],
		offsets: tex[3], pathInfo: tex[4], values: tex[5],
	}, nil
}

// Render emits one quad per drawn sample of the atlas's last frame and
// returns the number of quads. The priority buffer is used when the
// atlas checks priority, the visibility buffer otherwise. Nothing is
// drawn when the atlas holds no samples.
func (r *Renderer) Render(ctx context.Context, sa *atlas.SegmentAtlas, style *dpix.Style, sink QuadSink) (int, error) {
	if !sa.Drawn() || sa.TotalSegments() == 0 || sa.TotalSamples() == 0 {
		return 0, nil
	}
	which := atlas.Visibility
	settings := sa.Settings()
	if settings.CheckPriority {
		which = atlas.Priority
	}
	view, err := readView(ctx, sa, which)
	if err != nil {
		return 0, err
	}

	focus := sa.Focus()
	focusTransfer := style.Transfer(dpix.FocusTransfer).Array()
	widthTransfer := style.Transfer(dpix.PriorityWidth)
	wrap := sa.WrapWidth()

	r.quads = r.quads[:0]
	for s := range sa.TotalSegments() {
		n := int(view.lengths.Index(s)[0])
		if n <= 0 {
			continue
		}
		start := int(view.offsets.Index(s)[0]) - n
		c0, c1 := view.clip0.Index(s), view.clip1.Index(s)
		pathPriority := view.pathInfo.Index(s)[2]
		for k := range n {
			x, y := kernels.AtlasCoord(start, k, wrap)
			if y >= sa.Height() {
				break
			}
			alpha := view.values.At(x, y)[0]
			if style.DrawInvisibleLines {
				alpha = max(alpha, hiddenOpacity)
			}
			if alpha <= 0 {
				continue
			}
			t0, t1 := float32(k)/float32(n), float32(k+1)/float32(n)
			p0 := [2]float32{c0[0] + (c1[0]-c0[0])*t0, c0[1] + (c1[1]-c0[1])*t0}
			p1 := [2]float32{c0[0] + (c1[0]-c0[0])*t1, c0[1] + (c1[1]-c0[1])*t1}
			mx, my := (p0[0]+p1[0])/2, (p0[1]+p1[1])/2
			prio := kernels.SamplePriority(pathPriority, mx, my, focus, focusTransfer)
			r.quads = append(r.quads, Quad{
				P0:      p0,
				P1:      p1,
				Width:   style.BaseWidth * widthTransfer.Compute(prio),
				Alpha:   min(alpha, 1),
				Segment: s,
			})
		}
	}
	if len(r.quads) == 0 {
		return 0, nil
	}
	if err := sink.DrawQuads(r.quads); err != nil {
		return 0, fmt.Errorf("stroke: draw quads: %w", err)
	}
	gpucore.Logger().Debug("stroke: rendered", "buffer", which, "quads", len(r.quads))
	return len(r.quads), nil
}
