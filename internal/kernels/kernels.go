// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernels is the CPU reference implementation of every named
// program in internal/programs.
//
// Each kernel is written as the body of one GPU invocation and is
// executed over invocation ranges, possibly from several goroutines at
// once. Full-screen kernels write only texel i of their targets; scatter
// kernels write only texels owned by their segment. No kernel writes a
// texture it reads.
package kernels

import (
	"fmt"

	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/programs"
)

// Range executes invocations [lo, hi).
type Range func(lo, hi int)

// Kernel prepares a draw call for execution. in holds the input textures
// in layout order and out the active draw buffers.
type Kernel func(call *gpucore.DrawCall, in, out []*gpucore.Texels) Range

var registry = map[string]Kernel{
	programs.ClipBuffer:         clipBuffer,
	programs.ClipBufferSum:      clipBufferSum,
	programs.SegmentAtlas:       segmentAtlas,
	programs.SegmentAtlasPrio:   segmentAtlasPriority,
	programs.BilateralFilter:    bilateralFilter,
	programs.MedianFilter:       medianFilter,
	programs.SmoothAndThreshold: smoothAndThreshold,
}

// Lookup returns the kernel implementing a program.
func Lookup(name string) (Kernel, error) {
	k, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("kernels: no CPU kernel for %w: %s", gpucore.ErrUnknownProgram, name)
	}
	return k, nil
}

// vec4 helpers operating on texel values.

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
