package atlas

import (
	"context"
	"fmt"

	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/programs"
)

// clip projects and clips every segment and computes its sample count.
func (a *SegmentAtlas) clip() error {
	if err := a.clipFB.Init(numClipTextures, a.side, a.side); err != nil {
		return err
	}
	p, err := a.program(programs.ClipBuffer)
	if err != nil {
		return err
	}
	eye := a.cam.Eye
	p.SetUniformMatrix4fv("view_projection", a.cam.ViewProjection())
	p.SetUniform4fv("viewport", a.cam.Viewport())
	p.SetUniform3fv("view_pos", [3]float32{eye.X, eye.Y, eye.Z})
	p.SetUniform1f("sample_step", a.settings.SampleSpacing)
	p.SetUniform1f("max_segment_length", MaximumSegmentLength)
	p.SetUniform1f("total_segments", float32(a.totalSegments))
	p.BindNamedTexture("vert0_tex", a.pathFB.ColorTexture(attVert0))
	p.BindNamedTexture("vert1_tex", a.pathFB.ColorTexture(attVert1))
	p.BindNamedTexture("face_normal0_tex", a.pathFB.ColorTexture(attNormal0))
	p.BindNamedTexture("face_normal1_tex", a.pathFB.ColorTexture(attNormal1))

	return drawInto(a.clipFB, func() error {
		a.clipFB.DrawToAllBuffers()
		return p.Draw(a.side * a.side)
	})
}

// ClippedLine is a segment's visible part in pixel coordinates.
type ClippedLine struct {
	Segment        int
	X0, Y0, X1, Y1 float32
	Samples        int
}

// ClippedLines reads back the clip textures of the last frame and returns
// the segments that produced samples. It costs three full readbacks and
// is meant for debugging.
func (a *SegmentAtlas) ClippedLines(ctx context.Context) ([]ClippedLine, error) {
	if a.err != nil {
		return nil, a.err
	}
	if !a.drawn {
		return nil, nil
	}
	var tex [numClipTextures]*gpucore.Texels
	for i := range numClipTextures {
		t, err := a.clipFB.ReadTexture(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("atlas: clipped lines: %w", err)
		}
		tex[i] = t
	}
	var out []ClippedLine
	for s := range a.totalSegments {
		n := int(tex[attLengths].Pix[s*4])
		if n <= 0 {
			continue
		}
		v0 := tex[attClip0].Pix[s*4:]
		v1 := tex[attClip1].Pix[s*4:]
		out = append(out, ClippedLine{
			Segment: s,
			X0:      v0[0], Y0: v0[1],
			X1: v1[0], Y1: v1[1],
			Samples: n,
		})
	}
	return out, nil
}
