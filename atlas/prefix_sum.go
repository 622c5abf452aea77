package atlas

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/programs"
)

// prefixSum turns the per-segment sample counts into inclusive offsets
// with a Hillis-Steele scan and reads back the frame's sample total.
// Pass k adds the value 2^k texels back, so ceil(log2(n)) passes cover n
// segments. With a single segment the counts already are the offsets.
func (a *SegmentAtlas) prefixSum(ctx context.Context) error {
	n := a.totalSegments
	a.offsetsFB, a.offsetsAtt = a.clipFB, attLengths

	if n > 1 {
		p, err := a.program(programs.ClipBufferSum)
		if err != nil {
			return err
		}
		for i := range a.sumFB {
			if err := a.sumFB[i].Init(1, a.side, a.side); err != nil {
				return err
			}
		}
		p.SetUniform1f("total_segments", float32(n))
		src := a.clipFB.ColorTexture(attLengths)
		for step, pass := 1, 0; step < n; step, pass = step*2, pass+1 {
			dst := a.sumFB[pass%2]
			p.SetUniform1f("step_size", float32(step))
			p.BindNamedTexture("last_pass_buf", src)
			if err := drawInto(dst, func() error { return p.Draw(a.side * a.side) }); err != nil {
				return err
			}
			src = dst.ColorTexture(0)
			a.offsetsFB, a.offsetsAtt = dst, 0
		}
	}

	last := n - 1
	v, err := a.offsetsFB.ReadTexel(ctx, a.offsetsAtt, last%a.side, last/a.side)
	if err != nil {
		return err
	}
	total := v[0]
	if total < 0 || total != math32.Floor(total) || math32.IsInf(total, 0) {
		return &gpucore.DeviceError{Op: "readback", Program: programs.ClipBufferSum,
			Err: fmt.Errorf("sample total %v is not a count", total)}
	}
	a.totalSamples = int(total)

	if a.totalSamples+1 >= MaximumSamples {
		gpucore.Logger().Warn("atlas: ran out of space in segment atlas",
			"samples", a.totalSamples, "max", MaximumSamples)
	}
	return nil
}
