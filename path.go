package dpix

import "github.com/chewxy/math32"

// GeometryID is a handle to a Geometry owned by a Scene. The zero value
// means "no geometry".
type GeometryID int32

// DrawableID is a handle to a Drawable owned by a Scene. The zero value
// means "no drawable".
type DrawableID int32

// Attr holds the per-path attributes shared with the stroke renderer.
type Attr struct {
	Type LineType

	// StaticID is 1-based and stable for the lifetime of the path set.
	StaticID uint32

	// ModelID identifies the source model for style lookups.
	ModelID uint32

	// StaticLength is the object-space arc length, computed once.
	StaticLength float32
}

// FixedPath is an ordered list of vertex indices into a shared geometry.
// Consecutive vertex pairs form the path's segments.
type FixedPath struct {
	Verts []int
	Attr  Attr

	// Geometry and Drawable are non-owning back-references.
	Geometry GeometryID
	Drawable DrawableID
}

// NewFixedPath creates a path with the given vertex indices.
func NewFixedPath(attr Attr, verts ...int) *FixedPath {
	return &FixedPath{Verts: verts, Attr: attr}
}

// Len returns the number of vertices.
func (p *FixedPath) Len() int {
	return len(p.Verts)
}

// NumSegments returns the number of segments (vertices minus one).
func (p *FixedPath) NumSegments() int {
	if len(p.Verts) < 2 {
		return 0
	}
	return len(p.Verts) - 1
}

// IsProfile reports whether the path is a two-vertex profile edge.
func (p *FixedPath) IsProfile() bool {
	return p.Attr.Type == Profile
}

// Vertex returns the position of the i-th vertex of the path.
func (p *FixedPath) Vertex(g *Geometry, i int) Vec3 {
	return g.Vertices[p.Verts[i]]
}

// Normal returns the normal of the i-th vertex of the path.
func (p *FixedPath) Normal(g *Geometry, i int) Vec3 {
	return g.Normal(p.Verts[i])
}

// Reverse reverses the vertex order in place.
func (p *FixedPath) Reverse() {
	for i, j := 0, len(p.Verts)-1; i < j; i, j = i+1, j-1 {
		p.Verts[i], p.Verts[j] = p.Verts[j], p.Verts[i]
	}
}

// ArcLength returns the path length with every vertex transformed by xf.
func (p *FixedPath) ArcLength(g *Geometry, xf Mat4) float32 {
	var length float32
	for i := 0; i+1 < len(p.Verts); i++ {
		a := xf.TransformPoint(p.Vertex(g, i))
		b := xf.TransformPoint(p.Vertex(g, i+1))
		length += b.Sub(a).Length()
	}
	return length
}

// ComputeLength caches the object-space arc length in Attr.StaticLength.
func (p *FixedPath) ComputeLength(g *Geometry) {
	p.Attr.StaticLength = p.ArcLength(g, Identity4())
}

// turnNormal sums the cross products of consecutive segment pairs. For a
// three-vertex path this is the normal of the plane through its vertices.
// Reversing the path negates the result exactly.
func (p *FixedPath) turnNormal(g *Geometry) Vec3 {
	var n Vec3
	for i := 0; i+2 < len(p.Verts); i++ {
		e0 := p.Vertex(g, i+1).Sub(p.Vertex(g, i))
		e1 := p.Vertex(g, i+2).Sub(p.Vertex(g, i+1))
		n = n.Add(e0.Cross(e1))
	}
	return n
}

// OrientToMajorAxis canonicalizes the path direction: the path is reversed
// when the dominant component of its plane normal is negative. Paths with
// fewer than three vertices are left unchanged.
func (p *FixedPath) OrientToMajorAxis(g *Geometry) {
	if len(p.Verts) <= 2 {
		return
	}
	n := p.turnNormal(g)
	major := 0
	for i := 1; i < 3; i++ {
		if math32.Abs(n.Component(i)) > math32.Abs(n.Component(major)) {
			major = i
		}
	}
	if n.Component(major) < 0 {
		p.Reverse()
	}
}

// ComparePaths orders paths by cached length, then by static ID.
// It returns a negative number when a sorts before b.
func ComparePaths(a, b *FixedPath) int {
	switch {
	case a.Attr.StaticLength < b.Attr.StaticLength:
		return -1
	case a.Attr.StaticLength > b.Attr.StaticLength:
		return 1
	case a.Attr.StaticID < b.Attr.StaticID:
		return -1
	case a.Attr.StaticID > b.Attr.StaticID:
		return 1
	}
	return 0
}
