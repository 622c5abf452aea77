package atlas

import (
	"fmt"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/programs"
)

// overshootOffset is the dilation in samples applied by the smooth and
// threshold filter.
const overshootOffset = 1

var filterPrograms = map[dpix.FilterKind]string{
	dpix.FilterBilateral:          programs.BilateralFilter,
	dpix.FilterMedian:             programs.MedianFilter,
	dpix.FilterSmoothAndThreshold: programs.SmoothAndThreshold,
}

// Filter smooths the atlas buffer which along each segment's run into its
// filtered copy and marks the copy current. Samples of different segments
// never mix.
func (a *SegmentAtlas) Filter(which Which, kind dpix.FilterKind) error {
	if a.err != nil {
		return a.err
	}
	if which < 0 || which >= numBuffers {
		return fmt.Errorf("atlas: filter: unknown buffer %v", which)
	}
	name, ok := filterPrograms[kind]
	if !ok {
		return fmt.Errorf("atlas: filter: unknown filter %v", kind)
	}
	src := a.atlasFB[which]
	if !src.Initialized() {
		return fmt.Errorf("atlas: filter %v: buffer not drawn", which)
	}

	if a.filteredFB[which] == nil {
		a.filteredFB[which] = gpucore.NewFramebuffer(a.adapter, "atlas_filtered_"+which.String())
	}
	dst := a.filteredFB[which]
	if err := dst.Init(1, a.width, a.height); err != nil {
		return a.degrade("filter", err)
	}
	p, err := a.program(name)
	if err != nil {
		return a.degrade("filter", err)
	}
	if kind == dpix.FilterSmoothAndThreshold {
		p.SetUniform1f("overshoot_offset", overshootOffset)
	}
	p.BindNamedTexture("source_buffer", src.ColorTexture(0))

	a.filterState[which] = FilterStale
	if err := drawInto(dst, func() error { return p.Draw(a.width * a.height) }); err != nil {
		return a.degrade("filter", err)
	}
	a.filterState[which] = FilterCurrent
	return nil
}
