package atlas

import (
	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/mathx"
)

// needsRefresh reports whether the path vertex textures must be rebuilt
// for scene.
func (a *SegmentAtlas) needsRefresh(scene *dpix.Scene) bool {
	p := &a.path
	return !p.valid ||
		p.scene != scene ||
		p.revision != scene.Revision() ||
		p.profiles != a.settings.DrawProfiles ||
		scene.HasAnimatedDrawables()
}

// refreshPathData lays the world-space segments of the sorted path list
// into square textures, one texel per segment:
//
//	vert0      (x, y, z, 1)
//	vert1      (x, y, z, profile ? 1 : 0)
//	normal0/1  (x, y, z, 0), zero for non-profile segments
//	start_end  (first segment, last segment, path priority, 0)
func (a *SegmentAtlas) refreshPathData(scene *dpix.Scene) error {
	if !a.needsRefresh(scene) {
		return nil
	}
	a.path.valid = false
	a.totalSegments = 0

	profiles := a.settings.DrawProfiles
	total, paths := scene.SegmentCount(profiles)
	if total > 0 {
		side := mathx.SquareSide(total)
		if err := a.pathFB.Init(numPathTextures, side, side); err != nil {
			return err
		}
		n := side * side * 4
		for i := range a.pathData {
			if cap(a.pathData[i]) < n {
				a.pathData[i] = make([]float32, n)
			}
			a.pathData[i] = a.pathData[i][:n]
			clear(a.pathData[i])
		}

		d := &a.pathData
		scene.VisitSegments(profiles, func(seg *dpix.WorldSegment) {
			o := seg.Index * 4
			profile := float32(0)
			if seg.Profile {
				profile = 1
			}
			copy(d[attVert0][o:], []float32{seg.V0.X, seg.V0.Y, seg.V0.Z, 1})
			copy(d[attVert1][o:], []float32{seg.V1.X, seg.V1.Y, seg.V1.Z, profile})
			if seg.Profile {
				copy(d[attNormal0][o:], []float32{seg.N0.X, seg.N0.Y, seg.N0.Z, 0})
				copy(d[attNormal1][o:], []float32{seg.N1.X, seg.N1.Y, seg.N1.Z, 0})
			}
			copy(d[attPathStartEnd][o:], []float32{float32(seg.PathStart), float32(seg.PathEnd), seg.Priority, 0})
		})
		for i := range numPathTextures {
			if err := a.pathFB.Upload(i, a.pathData[i]); err != nil {
				return err
			}
		}
		a.side = side
		gpucore.Logger().Debug("atlas: path vertex textures rebuilt",
			"segments", total, "paths", paths, "side", side)
	}

	a.totalSegments = total
	a.path = pathState{
		scene:    scene,
		revision: scene.Revision(),
		profiles: profiles,
		valid:    true,
	}
	return nil
}
