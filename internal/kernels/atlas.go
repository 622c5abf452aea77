// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/mathx"
)

// PriorityTolerance is how far below the stored buffer priority a path
// may be and still win the priority test.
const PriorityTolerance = 1e-4

// AtlasCoord returns the atlas texel of sample k of a segment whose run
// starts at linear offset start.
func AtlasCoord(start, k, wrapWidth int) (x, y int) {
	return start%wrapWidth + k, start / wrapWidth
}

// SampleParam returns the parameter along the clipped segment of sample k
// out of n.
func SampleParam(k, n int) float32 {
	return (float32(k) + 0.5) / float32(n)
}

// FocusFactor maps the screen position (x, y) to a priority factor in
// [0,1]. focus is (x, y, radius, enabled); the transfer ramp maps the
// distance to the focal point, in units of radius, to de-emphasis.
func FocusFactor(x, y float32, focus, transfer [4]float32) float32 {
	if focus[3] <= 0.5 || focus[2] <= 0 {
		return 1
	}
	d := math32.Hypot(x-focus[0], y-focus[1]) / focus[2]
	t := dpix.Transfer{V1: transfer[0], V2: transfer[1], Near: transfer[2], Far: transfer[3]}
	return mathx.Clamp(1-t.Compute(d), 0, 1)
}

// SamplePriority combines a path priority with the focus factor.
func SamplePriority(pathPriority, x, y float32, focus, transfer [4]float32) float32 {
	return pathPriority * FocusFactor(x, y, focus, transfer)
}

// atlasParams are the uniforms shared by both atlas kernels.
type atlasParams struct {
	wrap      int
	total     int
	bias      float32
	kernel    [2]float32
	reference [2]float32
}

func readAtlasParams(call *gpucore.DrawCall) atlasParams {
	ks := call.Vec4("kernel_scale")
	rs := call.Vec4("reference_scale")
	return atlasParams{
		wrap:      int(call.Float("atlas_width")),
		total:     int(call.Float("total_segments")),
		bias:      call.Float("depth_bias"),
		kernel:    [2]float32{ks[0], ks[1]},
		reference: [2]float32{rs[0], rs[1]},
	}
}

// sampleRun describes the samples of one segment.
type sampleRun struct {
	count  int
	startX int
	row    int
	c0, c1 [4]float32
}

// run locates segment s in the atlas; ok is false for segments without
// samples and for runs past the last atlas row.
func (p *atlasParams) run(s int, lengths, offsets, clip0, clip1, atlas *gpucore.Texels) (sampleRun, bool) {
	if s >= p.total || p.wrap <= 0 {
		return sampleRun{}, false
	}
	count := int(lengths.Index(s)[0])
	if count <= 0 {
		return sampleRun{}, false
	}
	start := int(offsets.Index(s)[0]) - count
	x, y := AtlasCoord(start, 0, p.wrap)
	if y >= atlas.Height {
		return sampleRun{}, false
	}
	return sampleRun{count: count, startX: x, row: y, c0: clip0.Index(s), c1: clip1.Index(s)}, true
}

// position returns the screen position and depth of sample k.
func (r *sampleRun) position(k int) (x, y, depth float32) {
	t := SampleParam(k, r.count)
	return lerp(r.c0[0], r.c1[0], t), lerp(r.c0[1], r.c1[1], t), lerp(r.c0[2], r.c1[2], t)
}

// DepthVisibility returns the fraction of a 3x3 footprint around (x, y)
// at which depth passes the test against the depth buffer.
func DepthVisibility(depth *gpucore.Texels, x, y, z, bias float32, kernel, reference [2]float32) float32 {
	if depth.Width == 0 || depth.Height == 0 {
		return 1
	}
	rx, ry := x*reference[0], y*reference[1]
	passed := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			tx := mathx.Clamp(int(math32.Floor(rx+float32(dx)*kernel[0])), 0, depth.Width-1)
			ty := mathx.Clamp(int(math32.Floor(ry+float32(dy)*kernel[1])), 0, depth.Height-1)
			if z <= depth.At(tx, ty)[0]+bias {
				passed++
			}
		}
	}
	return float32(passed) / 9
}

// segmentAtlas scatters the samples of segment i with their depth test
// result. Invocation i owns exactly the texels of segment i's run.
func segmentAtlas(call *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	p := readAtlasParams(call)
	depth, clip0, clip1, lengths, offsets := in[0], in[1], in[2], in[3], in[4]
	atlas := out[0]

	return func(lo, hi int) {
		for s := lo; s < hi; s++ {
			r, ok := p.run(s, lengths, offsets, clip0, clip1, atlas)
			if !ok {
				continue
			}
			for k := range r.count {
				x, y, z := r.position(k)
				vis := DepthVisibility(depth, x, y, z, p.bias, p.kernel, p.reference)
				atlas.Set(r.startX+k, r.row, [4]float32{vis, float32(s), float32(k), 1})
			}
		}
	}
}

// segmentAtlasPriority scatters the samples of segment i. A sample whose
// path priority is below the priority buffer is suppressed; a winning
// sample keeps its visibility, faded by the focus factor.
func segmentAtlasPriority(call *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	p := readAtlasParams(call)
	focus := call.Vec4("focus")
	transfer := call.Vec4("transfer_focus")
	prio, clip0, clip1, lengths, offsets, pathInfo, visibility := in[0], in[1], in[2], in[3], in[4], in[5], in[6]
	atlas := out[0]

	return func(lo, hi int) {
		for s := lo; s < hi; s++ {
			r, ok := p.run(s, lengths, offsets, clip0, clip1, atlas)
			if !ok {
				continue
			}
			pathPriority := pathInfo.Index(s)[2]
			for k := range r.count {
				x, y, _ := r.position(k)
				px := mathx.Clamp(int(math32.Floor(x*p.reference[0])), 0, max(prio.Width-1, 0))
				py := mathx.Clamp(int(math32.Floor(y*p.reference[1])), 0, max(prio.Height-1, 0))
				var v float32
				if pathPriority >= prio.At(px, py)[0]-PriorityTolerance {
					v = visibility.At(r.startX+k, r.row)[0] * FocusFactor(x, y, focus, transfer)
				}
				atlas.Set(r.startX+k, r.row, [4]float32{v, float32(s), float32(k), 1})
			}
		}
	}
}
