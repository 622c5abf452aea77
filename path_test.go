package dpix

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPath_ReverseAndSegments(t *testing.T) {
	p := NewFixedPath(Attr{}, 1, 2, 3, 4)
	assert.Equal(t, 3, p.NumSegments())
	p.Reverse()
	assert.Equal(t, []int{4, 3, 2, 1}, p.Verts)

	single := NewFixedPath(Attr{}, 7)
	assert.Equal(t, 0, single.NumSegments())
}

func TestFixedPath_ComputeLength(t *testing.T) {
	g := &Geometry{Vertices: []Vec3{V3(0, 0, 0), V3(3, 4, 0), V3(3, 4, 2)}}
	p := NewFixedPath(Attr{}, 0, 1, 2)
	p.ComputeLength(g)
	assert.InDelta(t, 7.0, p.Attr.StaticLength, 1e-5)

	// Transformed lengths do not touch the cached value.
	assert.InDelta(t, 14.0, p.ArcLength(g, Scale4(V3(2, 2, 2))), 1e-4)
	assert.InDelta(t, 7.0, p.Attr.StaticLength, 1e-5)
}

func TestFixedPath_OrientToMajorAxis(t *testing.T) {
	g := &Geometry{Vertices: []Vec3{
		V3(0, 0, 0), V3(1, 0, 0), V3(1, 1, 0), V3(3, 1, 0),
	}}

	tests := []struct {
		name  string
		verts []int
		want  []int
	}{
		{"left turn kept", []int{0, 1, 2}, []int{0, 1, 2}},
		{"right turn reversed", []int{2, 1, 0}, []int{0, 1, 2}},
		{"two vertices untouched", []int{1, 0}, []int{1, 0}},
		{"s-curve dominated by right turn", []int{0, 1, 2, 3}, []int{3, 2, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFixedPath(Attr{}, slices.Clone(tt.verts)...)
			p.OrientToMajorAxis(g)
			assert.Equal(t, tt.want, p.Verts)

			once := slices.Clone(p.Verts)
			p.OrientToMajorAxis(g)
			assert.Equal(t, once, p.Verts, "orientation must be idempotent")
		})
	}
}

func TestFixedPath_OrientIdempotentNonPlanar(t *testing.T) {
	g := &Geometry{Vertices: []Vec3{
		V3(0, 0, 0), V3(1, 0, 0.2), V3(1, 1, -0.4), V3(0, 1, 1), V3(-1, 0.5, 0.3),
	}}
	for _, order := range [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}} {
		p := NewFixedPath(Attr{}, slices.Clone(order)...)
		p.OrientToMajorAxis(g)
		once := slices.Clone(p.Verts)
		p.OrientToMajorAxis(g)
		assert.Equal(t, once, p.Verts)
	}
}

func TestComparePaths(t *testing.T) {
	short := &FixedPath{Attr: Attr{StaticLength: 1, StaticID: 5}}
	long := &FixedPath{Attr: Attr{StaticLength: 2, StaticID: 1}}
	tieLow := &FixedPath{Attr: Attr{StaticLength: 2, StaticID: 0}}

	assert.Negative(t, ComparePaths(short, long))
	assert.Positive(t, ComparePaths(long, short))
	assert.Negative(t, ComparePaths(tieLow, long))
	assert.Zero(t, ComparePaths(long, long))
}
