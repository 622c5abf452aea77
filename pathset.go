package dpix

import "slices"

// PathSet holds every path extracted from one geometry. It is built once
// and is append-only afterwards.
type PathSet struct {
	geom     *Geometry
	geomID   GeometryID
	drawable DrawableID
	paths    []*FixedPath
}

// NewPathSet extracts paths from g: line soup is stitched into contour
// paths, line strips become crease paths, and every profile pair becomes
// a two-vertex profile path. Static IDs, lengths, and orientation are
// assigned before returning.
func NewPathSet(g *Geometry) *PathSet {
	return newPathSet(g, 0, 0)
}

func newPathSet(g *Geometry, gid GeometryID, did DrawableID) *PathSet {
	s := &PathSet{geom: g, geomID: gid, drawable: did}

	for _, p := range StitchLines(g, g.Lines, Attr{Type: Contour}) {
		s.Add(p)
	}
	for _, strip := range g.LineStrips {
		if len(strip) < 2 {
			continue
		}
		s.Add(NewFixedPath(Attr{Type: Crease}, slices.Clone(strip)...))
	}
	for i := 0; i+1 < len(g.Profiles); i += 2 {
		s.Add(NewFixedPath(Attr{Type: Profile}, g.Profiles[i], g.Profiles[i+1]))
	}

	s.AssignStaticIDs()
	s.AssignStaticLengths()
	s.OrientPaths()
	return s
}

// Geometry returns the geometry the paths index into.
func (s *PathSet) Geometry() *Geometry {
	return s.geom
}

// Len returns the number of paths.
func (s *PathSet) Len() int {
	return len(s.paths)
}

// Path returns the i-th path.
func (s *PathSet) Path(i int) *FixedPath {
	return s.paths[i]
}

// Paths returns the paths in their current order. The slice must not be
// modified.
func (s *PathSet) Paths() []*FixedPath {
	return s.paths
}

// Add appends a path, filling in its back-references.
func (s *PathSet) Add(p *FixedPath) {
	p.Geometry = s.geomID
	p.Drawable = s.drawable
	s.paths = append(s.paths, p)
}

// NumSegments returns the total number of segments over all paths.
func (s *PathSet) NumSegments() int {
	n := 0
	for _, p := range s.paths {
		n += p.NumSegments()
	}
	return n
}

// AssignStaticIDs numbers the paths 1..N in their current order.
func (s *PathSet) AssignStaticIDs() {
	for i, p := range s.paths {
		p.Attr.StaticID = uint32(i + 1)
	}
}

// AssignStaticLengths caches each path's object-space arc length.
func (s *PathSet) AssignStaticLengths() {
	for _, p := range s.paths {
		p.ComputeLength(s.geom)
	}
}

// OrientPaths canonicalizes the direction of every path.
func (s *PathSet) OrientPaths() {
	for _, p := range s.paths {
		p.OrientToMajorAxis(s.geom)
	}
}

// Sort orders paths by ascending cached length, ties by static ID.
func (s *PathSet) Sort() {
	slices.SortStableFunc(s.paths, ComparePaths)
}
