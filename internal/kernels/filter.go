// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernels

import (
	"slices"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix/gpucore"
)

// Filter parameters. All filters run along atlas rows and only mix
// samples of the same segment.
const (
	SmoothSigma    = 1.0
	RangeSigma     = 0.3
	MedianRadius   = 2
	ThresholdLevel = 0.5
)

// smoothWeights is the spatial Gaussian used by the bilateral and
// smoothing filters.
var smoothWeights = GaussianWeights(SmoothSigma)

// GaussianWeights returns a normalized 1D Gaussian of 2*ceil(3*sigma)+1
// taps. A non-positive sigma gives the identity kernel.
func GaussianWeights(sigma float32) []float32 {
	if sigma <= 0 {
		return []float32{1}
	}
	half := int(math32.Ceil(sigma * 3))
	w := make([]float32, 2*half+1)
	twoSigmaSq := 2 * sigma * sigma
	var sum float32
	for i := range w {
		x := float32(i - half)
		w[i] = math32.Exp(-x * x / twoSigmaSq)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// rowNeighbor returns the value of the texel dx away from (x, y) and
// whether it is a sample of segment seg.
func rowNeighbor(src *gpucore.Texels, x, y, dx int, seg float32) (float32, bool) {
	n := src.At(x+dx, y)
	if n[3] <= 0 || n[1] != seg {
		return 0, false
	}
	return n[0], true
}

// filterRange runs fn for each occupied texel, clearing empty ones.
func filterRange(src, dst *gpucore.Texels, fn func(x, y int, c [4]float32) float32) Range {
	return func(lo, hi int) {
		for i := lo; i < hi; i++ {
			c := src.Index(i)
			if c[3] <= 0 {
				dst.SetIndex(i, [4]float32{})
				continue
			}
			x, y := i%src.Width, i/src.Width
			c[0] = fn(x, y, c)
			dst.SetIndex(i, c)
		}
	}
}

// smoothAt is the Gaussian average of the same-segment neighborhood.
func smoothAt(src *gpucore.Texels, x, y int, seg float32) float32 {
	half := len(smoothWeights) / 2
	var sum, norm float32
	for j, w := range smoothWeights {
		if v, ok := rowNeighbor(src, x, y, j-half, seg); ok {
			sum += w * v
			norm += w
		}
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}

func bilateralFilter(_ *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	src := in[0]
	half := len(smoothWeights) / 2
	twoRangeSq := float32(2 * RangeSigma * RangeSigma)
	return filterRange(src, out[0], func(x, y int, c [4]float32) float32 {
		var sum, norm float32
		for j, ws := range smoothWeights {
			v, ok := rowNeighbor(src, x, y, j-half, c[1])
			if !ok {
				continue
			}
			d := v - c[0]
			w := ws * math32.Exp(-d*d/twoRangeSq)
			sum += w * v
			norm += w
		}
		return sum / norm
	})
}

func medianFilter(_ *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	src := in[0]
	return filterRange(src, out[0], func(x, y int, c [4]float32) float32 {
		var buf [2*MedianRadius + 1]float32
		vals := buf[:0]
		for dx := -MedianRadius; dx <= MedianRadius; dx++ {
			if v, ok := rowNeighbor(src, x, y, dx, c[1]); ok {
				vals = append(vals, v)
			}
		}
		slices.Sort(vals)
		return vals[len(vals)/2]
	})
}

// smoothAndThreshold smooths, thresholds, then extends every passing run
// by overshoot_offset samples on both sides.
func smoothAndThreshold(call *gpucore.DrawCall, in, out []*gpucore.Texels) Range {
	src := in[0]
	overshoot := int(math32.Round(call.Float("overshoot_offset")))
	return filterRange(src, out[0], func(x, y int, c [4]float32) float32 {
		for dx := -overshoot; dx <= overshoot; dx++ {
			if dx != 0 {
				if _, ok := rowNeighbor(src, x, y, dx, c[1]); !ok {
					continue
				}
			}
			if smoothAt(src, x+dx, y, c[1]) >= ThresholdLevel {
				return 1
			}
		}
		return 0
	})
}
