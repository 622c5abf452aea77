package dpix

import "fmt"

// Geometry is an immutable vertex buffer plus the primitive lists that
// paths are extracted from. It is owned by a Scene and shared by every
// drawable and path that refers to it.
type Geometry struct {
	// Name identifies the geometry in logs.
	Name string

	// Vertices are object-space positions.
	Vertices []Vec3

	// Normals are per-vertex normals. For profile edges they hold the
	// normal of the face each profile vertex was emitted for.
	Normals []Vec3

	// Triangles are vertex index triples used by the depth rasterizer.
	Triangles []int

	// Lines are undirected segment index pairs (line soup).
	Lines []int

	// LineStrips are ordered polylines kept as crease paths.
	LineStrips [][]int

	// Profiles are index pairs, one pair per profile edge.
	Profiles []int
}

// Validate checks that every primitive index references a vertex and that
// pair lists have even length.
func (g *Geometry) Validate() error {
	n := len(g.Vertices)
	check := func(kind string, idx []int) error {
		for _, i := range idx {
			if i < 0 || i >= n {
				return fmt.Errorf("dpix: geometry %q: %s index %d out of range [0,%d)", g.Name, kind, i, n)
			}
		}
		return nil
	}
	if len(g.Lines)%2 != 0 {
		return fmt.Errorf("dpix: geometry %q: odd line index count %d", g.Name, len(g.Lines))
	}
	if len(g.Profiles)%2 != 0 {
		return fmt.Errorf("dpix: geometry %q: odd profile index count %d", g.Name, len(g.Profiles))
	}
	if len(g.Triangles)%3 != 0 {
		return fmt.Errorf("dpix: geometry %q: triangle index count %d not a multiple of 3", g.Name, len(g.Triangles))
	}
	if len(g.Profiles) > 0 && len(g.Normals) != n {
		return fmt.Errorf("dpix: geometry %q: profiles need one normal per vertex", g.Name)
	}
	if err := check("line", g.Lines); err != nil {
		return err
	}
	if err := check("profile", g.Profiles); err != nil {
		return err
	}
	if err := check("triangle", g.Triangles); err != nil {
		return err
	}
	for _, s := range g.LineStrips {
		if err := check("strip", s); err != nil {
			return err
		}
	}
	return nil
}

// Normal returns the normal of vertex i, or the zero vector when the
// geometry carries no normals.
func (g *Geometry) Normal(i int) Vec3 {
	if i < len(g.Normals) {
		return g.Normals[i]
	}
	return Vec3{}
}
