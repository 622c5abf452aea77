// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import "github.com/gogpu/dpix/gpucore"

// clipBufferSum is one Hillis-Steele step of an inclusive prefix sum over
// the x channel.
func clipBufferSum(call *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	step := int(call.Float("step_size"))
	total := int(call.Float("total_segments"))
	src, dst := in[0], out[0]

	return func(lo, hi int) {
		for i := lo; i < hi; i++ {
			v := src.Index(i)
			if i < total && i >= step {
				v[0] += src.Index(i - step)[0]
			}
			dst.SetIndex(i, v)
		}
	}
}
