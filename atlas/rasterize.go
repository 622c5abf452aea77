package atlas

import (
	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/programs"
)

// rasterize scatters every segment's samples into the atlas buffer which,
// testing them against reference: the depth buffer for Visibility, the
// priority buffer for Priority. The buffer is cleared first, so texels no
// sample maps to read as empty.
func (a *SegmentAtlas) rasterize(which Which, reference gpucore.TextureID) error {
	fb := a.atlasFB[which]
	if err := fb.Init(1, a.width, a.height); err != nil {
		return err
	}
	name, refName := programs.SegmentAtlas, "depth_buffer"
	if which == Priority {
		name, refName = programs.SegmentAtlasPrio, "priority_buffer"
	}
	p, err := a.program(name)
	if err != nil {
		return err
	}

	rs := a.referenceScale()
	p.SetUniform1f("atlas_width", float32(a.wrap))
	p.SetUniform1f("total_segments", float32(a.totalSegments))
	p.SetUniform1f("depth_bias", a.settings.DepthBias())
	p.SetUniform2f("kernel_scale", a.settings.KernelScaleX, a.settings.KernelScaleY)
	p.SetUniform2f("reference_scale", rs, rs)
	p.BindNamedTexture(refName, reference)
	p.BindNamedTexture("clip_vert_0_buffer", a.ClipBuffer(0))
	p.BindNamedTexture("clip_vert_1_buffer", a.ClipBuffer(1))
	p.BindNamedTexture("segment_lengths", a.SegmentLengths())
	p.BindNamedTexture("offset_buffer", a.OffsetBuffer())
	if which == Priority {
		p.SetUniform4fv("focus", a.settings.FocusParams(a.cam, a.path.scene))
		p.SetUniform4fv("transfer_focus", a.style.Transfer(dpix.FocusTransfer).Array())
		p.BindNamedTexture("path_start_end_ptrs", a.PathStartEndBuffer())
		p.BindNamedTexture("visibility_buffer", a.AtlasBuffer(Visibility))
	}

	a.filterState[which] = FilterStale
	return drawInto(fb, func() error {
		if err := fb.Clear([4]float32{}); err != nil {
			return err
		}
		return p.Draw(a.totalSegments)
	})
}
