// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
)

// ClippedSegment is a segment clipped to the view volume and mapped to
// the viewport. T0 and T1 are the surviving parameter range on the
// unclipped segment.
type ClippedSegment struct {
	X0, Y0, Depth0, T0 float32
	X1, Y1, Depth1, T1 float32
}

// Length returns the screen-space length in pixels.
func (c ClippedSegment) Length() float32 {
	return math32.Hypot(c.X1-c.X0, c.Y1-c.Y0)
}

// clipDistances returns the signed distances of a homogeneous point to
// the six clip planes; a point is inside when all are non-negative.
func clipDistances(p dpix.Vec4) [6]float32 {
	return [6]float32{
		p.W + p.X, p.W - p.X,
		p.W + p.Y, p.W - p.Y,
		p.W + p.Z, p.W - p.Z,
	}
}

// ClipSegment clips the world-space segment v0-v1 against the view volume
// of viewProj. ok is false when nothing of the segment is visible.
func ClipSegment(viewProj dpix.Mat4, viewport [4]float32, v0, v1 dpix.Vec3) (ClippedSegment, bool) {
	p0 := viewProj.MulVec4(v0.Extend(1))
	p1 := viewProj.MulVec4(v1.Extend(1))
	d0 := clipDistances(p0)
	d1 := clipDistances(p1)

	t0, t1 := float32(0), float32(1)
	for i := range d0 {
		a, b := d0[i], d1[i]
		switch {
		case a < 0 && b < 0:
			return ClippedSegment{}, false
		case a < 0:
			t0 = max(t0, a/(a-b))
		case b < 0:
			t1 = min(t1, a/(a-b))
		}
	}
	if t0 > t1 {
		return ClippedSegment{}, false
	}

	c0 := lerp4(p0, p1, t0)
	c1 := lerp4(p0, p1, t1)
	if c0.W <= 1e-12 || c1.W <= 1e-12 {
		return ClippedSegment{}, false
	}
	x0, y0, z0 := toViewport(c0, viewport)
	x1, y1, z1 := toViewport(c1, viewport)
	return ClippedSegment{
		X0: x0, Y0: y0, Depth0: z0, T0: t0,
		X1: x1, Y1: y1, Depth1: z1, T1: t1,
	}, true
}

func lerp4(a, b dpix.Vec4, t float32) dpix.Vec4 {
	return dpix.V4(lerp(a.X, b.X, t), lerp(a.Y, b.Y, t), lerp(a.Z, b.Z, t), lerp(a.W, b.W, t))
}

func toViewport(p dpix.Vec4, viewport [4]float32) (x, y, depth float32) {
	inv := 1 / p.W
	x = viewport[0] + (p.X*inv*0.5+0.5)*viewport[2]
	y = viewport[1] + (p.Y*inv*0.5+0.5)*viewport[3]
	depth = p.Z*inv*0.5 + 0.5
	return x, y, depth
}

// IsSilhouette reports whether the edge between faces with normals n0 and
// n1 separates a front face from a back face as seen from viewPos.
func IsSilhouette(n0, n1, mid, viewPos dpix.Vec3) bool {
	e := viewPos.Sub(mid)
	return n0.Dot(e)*n1.Dot(e) <= 0
}

// SampleCount returns the number of atlas samples for a clipped segment
// of screen length length.
func SampleCount(length, step, maxSegmentLength float32) int {
	if length <= 0 || step <= 0 {
		return 0
	}
	return int(min(math32.Ceil(length/step), maxSegmentLength))
}

// clipBuffer clips every segment and sizes its sample run. Texel i holds
// segment i; the vertex textures carry the profile flag in vert1.w.
func clipBuffer(call *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	viewProj := dpix.Mat4(call.Mat4("view_projection"))
	viewport := call.Vec4("viewport")
	vp := call.Vec4("view_pos")
	viewPos := dpix.V3(vp[0], vp[1], vp[2])
	step := call.Float("sample_step")
	maxLen := call.Float("max_segment_length")
	total := int(call.Float("total_segments"))
	vert0, vert1, normal0, normal1 := in[0], in[1], in[2], in[3]
	clip0, clip1, lengths := out[0], out[1], out[2]

	return func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var c0, c1, l [4]float32
			if i < total {
				c0, c1, l = clipOne(i, viewProj, viewport, viewPos, step, maxLen, vert0, vert1, normal0, normal1)
			}
			clip0.SetIndex(i, c0)
			clip1.SetIndex(i, c1)
			lengths.SetIndex(i, l)
		}
	}
}

func clipOne(i int, viewProj dpix.Mat4, viewport [4]float32, viewPos dpix.Vec3, step, maxLen float32,
	vert0, vert1, normal0, normal1 *gpucore.Texels) (c0, c1, l [4]float32) {
	a := vert0.Index(i)
	b := vert1.Index(i)
	v0 := dpix.V3(a[0], a[1], a[2])
	v1 := dpix.V3(b[0], b[1], b[2])

	if b[3] > 0.5 {
		n0 := normal0.Index(i)
		n1 := normal1.Index(i)
		mid := v0.Add(v1).Mul(0.5)
		if !IsSilhouette(dpix.V3(n0[0], n0[1], n0[2]), dpix.V3(n1[0], n1[1], n1[2]), mid, viewPos) {
			return c0, c1, l
		}
	}

	seg, ok := ClipSegment(viewProj, viewport, v0, v1)
	if !ok {
		return c0, c1, l
	}
	length := seg.Length()
	c0 = [4]float32{seg.X0, seg.Y0, seg.Depth0, seg.T0}
	c1 = [4]float32{seg.X1, seg.Y1, seg.Depth1, seg.T1}
	l = [4]float32{float32(SampleCount(length, step, maxLen)), length, 0, 0}
	return c0, c1, l
}
