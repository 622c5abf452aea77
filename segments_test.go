package dpix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// profileScene has one three-segment crease strip and one profile edge
// whose face normals point away from each other.
func profileScene(t *testing.T) *Scene {
	t.Helper()
	s := NewScene()
	g := &Geometry{
		Name:       "mixed",
		Vertices:   []Vec3{V3(0, 0, 0), V3(1, 0, 0), V3(2, 0, 0), V3(3, 0, 0), V3(0, 1, 0), V3(0, 2, 0)},
		Normals:    []Vec3{{}, {}, {}, {}, V3(0, 0, 1), V3(0, 0, -1)},
		LineStrips: [][]int{{0, 1, 2, 3}},
		Profiles:   []int{4, 5},
	}
	gid, err := s.AddGeometry(g)
	require.NoError(t, err)
	_, err = s.AddDrawable(gid, Translate4(V3(0, 0, 2)))
	require.NoError(t, err)
	return s
}

func TestVisitSegments(t *testing.T) {
	s := profileScene(t)

	segs, paths := s.SegmentCount(true)
	assert.Equal(t, 4, segs)
	assert.Equal(t, 2, paths)

	var got []WorldSegment
	s.VisitSegments(true, func(seg *WorldSegment) { got = append(got, *seg) })
	require.Len(t, got, 4)

	// The profile edge is shorter, so it sorts first.
	assert.True(t, got[0].Profile)
	assert.Equal(t, 0, got[0].PathStart)
	assert.Equal(t, 0, got[0].PathEnd)
	assert.InDelta(t, 0.5, got[0].Priority, 1e-6)
	assert.Equal(t, V3(0, 0, 1), got[0].N0.Neg(), "n0 flipped to face n1's side")
	assert.Equal(t, V3(0, 0, -1), got[0].N1)

	for i, seg := range got[1:] {
		assert.Equal(t, i+1, seg.Index)
		assert.False(t, seg.Profile)
		assert.Equal(t, 1, seg.PathStart)
		assert.Equal(t, 3, seg.PathEnd)
		assert.InDelta(t, 1, seg.Priority, 1e-6)
		assert.InDelta(t, 2, seg.V0.Z, 1e-6, "model transform applied")
	}
}

func TestVisitSegmentsWithoutProfiles(t *testing.T) {
	s := profileScene(t)

	segs, paths := s.SegmentCount(false)
	assert.Equal(t, 3, segs)
	assert.Equal(t, 1, paths)

	n := 0
	s.VisitSegments(false, func(seg *WorldSegment) {
		assert.Equal(t, n, seg.Index)
		assert.False(t, seg.Profile)
		n++
	})
	assert.Equal(t, 3, n)
}

func TestVisitSegmentsEmptyScene(t *testing.T) {
	s := NewScene()
	s.VisitSegments(true, func(*WorldSegment) { t.Error("visited a segment of an empty scene") })
}

func TestFocusParams(t *testing.T) {
	cam := NewCamera(200, 100)
	scene := profileScene(t)
	radius := float32(0.5 * 223.60679)

	tests := []struct {
		name   string
		mode   FocusMode
		point  Vec3
		want   [2]float32
		enable float32
	}{
		{"none", FocusNone, Vec3{}, [2]float32{0, 0}, 0},
		{"camera", FocusCamera, Vec3{}, [2]float32{100, 50}, 1},
		{"screen", FocusScreen, V3(0.25, 0.5, 0), [2]float32{50, 50}, 1},
		{"world origin", FocusWorld, V3(0, 0, 0), [2]float32{100, 50}, 1},
		{"world behind eye", FocusWorld, V3(0, 0, 10), [2]float32{0, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			s.FocusMode = tt.mode
			s.FocusPoint = tt.point
			got := s.FocusParams(cam, scene)
			assert.InDelta(t, tt.want[0], got[0], 1e-3)
			assert.InDelta(t, tt.want[1], got[1], 1e-3)
			assert.InDelta(t, radius, got[2], 1e-3)
			assert.Equal(t, tt.enable, got[3])
		})
	}
}
