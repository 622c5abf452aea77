package dpix

// WorldSegment is one segment of the sorted path list, transformed to
// world space.
type WorldSegment struct {
	// Index is the global segment index in atlas order.
	Index int

	V0, V1 Vec3

	// N0 and N1 are the world-space face normals of a profile edge.
	// N0 is flipped when the two normals point into opposite half-spaces.
	N0, N1  Vec3
	Profile bool

	// PathStart and PathEnd are the global indices of the first and last
	// segment of the owning path.
	PathStart, PathEnd int

	// Priority is the path rank mapped to (0,1]: longer paths rank higher.
	Priority float32
}

// includePath reports whether the segment layout covers p.
func includePath(p *FixedPath, drawProfiles bool) bool {
	return p.NumSegments() > 0 && (drawProfiles || !p.IsProfile())
}

// SegmentCount returns the number of segments and paths the segment
// layout covers.
func (s *Scene) SegmentCount(drawProfiles bool) (segments, paths int) {
	for _, p := range s.SortedPaths() {
		if includePath(p, drawProfiles) {
			segments += p.NumSegments()
			paths++
		}
	}
	return segments, paths
}

// VisitSegments calls fn for every segment of the sorted path list in
// global index order. Profile paths are skipped unless drawProfiles is
// set. The WorldSegment is reused between calls.
func (s *Scene) VisitSegments(drawProfiles bool, fn func(seg *WorldSegment)) {
	_, numPaths := s.SegmentCount(drawProfiles)
	if numPaths == 0 {
		return
	}

	type transforms struct{ model, normal Mat4 }
	cache := make(map[DrawableID]transforms)
	xfOf := func(id DrawableID) transforms {
		if t, ok := cache[id]; ok {
			return t
		}
		m := s.Drawable(id).ComposedTransform()
		t := transforms{model: m, normal: m.NormalMatrix()}
		cache[id] = t
		return t
	}

	var seg WorldSegment
	index, rank := 0, 0
	for _, p := range s.SortedPaths() {
		if !includePath(p, drawProfiles) {
			continue
		}
		rank++
		g := s.Geometry(p.Geometry)
		xf := xfOf(p.Drawable)
		n := p.NumSegments()

		seg.PathStart = index
		seg.PathEnd = index + n - 1
		seg.Priority = float32(rank) / float32(numPaths)
		seg.Profile = p.IsProfile()
		for k := range n {
			seg.Index = index
			seg.V0 = xf.model.TransformPoint(p.Vertex(g, k))
			seg.V1 = xf.model.TransformPoint(p.Vertex(g, k+1))
			seg.N0, seg.N1 = Vec3{}, Vec3{}
			if seg.Profile {
				seg.N0 = xf.normal.TransformDir(p.Normal(g, k)).Normalize()
				seg.N1 = xf.normal.TransformDir(p.Normal(g, k+1)).Normalize()
				if seg.N0.Dot(seg.N1) < 0 {
					seg.N0 = seg.N0.Neg()
				}
			}
			fn(&seg)
			index++
		}
	}
}
