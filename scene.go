package dpix

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownHandle is returned for geometry or drawable handles that do
// not refer to a live scene entry.
var ErrUnknownHandle = errors.New("dpix: unknown handle")

// Drawable places a geometry in the world. Each drawable owns the path
// set extracted from its geometry.
type Drawable struct {
	ID       DrawableID
	Geometry GeometryID

	// Transform is the model-to-world matrix.
	Transform Mat4

	// Anim optionally moves the drawable along a path.
	Anim *AnimController

	ModelID uint32
	Visible bool

	paths *PathSet
}

// Paths returns the drawable's path set.
func (d *Drawable) Paths() *PathSet {
	return d.paths
}

// ComposedTransform returns the animation transform applied after the
// model transform.
func (d *Drawable) ComposedTransform() Mat4 {
	if d.Anim != nil {
		return d.Anim.Transform().Mul(d.Transform)
	}
	return d.Transform
}

// Scene owns geometries and drawables and maintains the global sorted
// path list. Paths and drawables refer to each other through handles.
type Scene struct {
	geoms     []*Geometry
	drawables []*Drawable

	sorted      []*FixedPath
	sortedValid bool
	revision    uint64
}

// NewScene creates an empty scene.
func NewScene() *Scene {
	return &Scene{}
}

// AddGeometry registers g and returns its handle.
func (s *Scene) AddGeometry(g *Geometry) (GeometryID, error) {
	if err := g.Validate(); err != nil {
		return 0, err
	}
	s.geoms = append(s.geoms, g)
	return GeometryID(len(s.geoms)), nil
}

// Geometry returns the geometry for a handle, or nil.
func (s *Scene) Geometry(id GeometryID) *Geometry {
	if id <= 0 || int(id) > len(s.geoms) {
		return nil
	}
	return s.geoms[id-1]
}

// AddDrawable instantiates geometry gid with the given model transform.
// Its paths are extracted immediately.
func (s *Scene) AddDrawable(gid GeometryID, transform Mat4) (DrawableID, error) {
	g := s.Geometry(gid)
	if g == nil {
		return 0, fmt.Errorf("dpix: add drawable: geometry %d: %w", gid, ErrUnknownHandle)
	}
	id := DrawableID(len(s.drawables) + 1)
	d := &Drawable{
		ID:        id,
		Geometry:  gid,
		Transform: transform,
		Visible:   true,
		paths:     newPathSet(g, gid, id),
	}
	s.drawables = append(s.drawables, d)
	s.invalidate()
	return id, nil
}

// Drawable returns the drawable for a handle, or nil.
func (s *Scene) Drawable(id DrawableID) *Drawable {
	if id <= 0 || int(id) > len(s.drawables) {
		return nil
	}
	return s.drawables[id-1]
}

// Drawables returns the live drawables in creation order.
func (s *Scene) Drawables() []*Drawable {
	out := make([]*Drawable, 0, len(s.drawables))
	for _, d := range s.drawables {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

// RemoveDrawable deletes a drawable. Its handle is never reused.
func (s *Scene) RemoveDrawable(id DrawableID) error {
	if s.Drawable(id) == nil {
		return fmt.Errorf("dpix: remove drawable %d: %w", id, ErrUnknownHandle)
	}
	s.drawables[id-1] = nil
	s.invalidate()
	return nil
}

// SetVisible shows or hides a drawable.
func (s *Scene) SetVisible(id DrawableID, visible bool) error {
	d := s.Drawable(id)
	if d == nil {
		return fmt.Errorf("dpix: set visible %d: %w", id, ErrUnknownHandle)
	}
	if d.Visible != visible {
		d.Visible = visible
		s.invalidate()
	}
	return nil
}

// SetTransform replaces a drawable's model transform. World-space path
// data must be rebuilt afterwards, so the scene revision changes.
func (s *Scene) SetTransform(id DrawableID, transform Mat4) error {
	d := s.Drawable(id)
	if d == nil {
		return fmt.Errorf("dpix: set transform %d: %w", id, ErrUnknownHandle)
	}
	d.Transform = transform
	s.revision++
	return nil
}

// SetAnimation attaches an animation controller to a drawable.
func (s *Scene) SetAnimation(id DrawableID, anim *AnimController) error {
	d := s.Drawable(id)
	if d == nil {
		return fmt.Errorf("dpix: set animation %d: %w", id, ErrUnknownHandle)
	}
	d.Anim = anim
	s.invalidate()
	return nil
}

// SetFrame advances every animation controller to frame n.
func (s *Scene) SetFrame(n int) {
	for _, d := range s.drawables {
		if d != nil && d.Anim != nil {
			d.Anim.SetFrame(n)
		}
	}
}

// HasAnimatedDrawables reports whether any visible drawable moves, in
// which case world-space path data changes every frame.
func (s *Scene) HasAnimatedDrawables() bool {
	for _, d := range s.drawables {
		if d != nil && d.Visible && d.Anim != nil && d.Anim.NumFrames() > 0 {
			return true
		}
	}
	return false
}

// Revision changes whenever the set of drawables or their visibility
// changes.
func (s *Scene) Revision() uint64 {
	return s.revision
}

func (s *Scene) invalidate() {
	s.sortedValid = false
	s.revision++
}

// SortedPaths returns every path of every visible drawable, ordered by
// cached length, then static ID, then drawable handle. The list is rebuilt
// only after the drawable set changed. The slice must not be modified.
func (s *Scene) SortedPaths() []*FixedPath {
	if s.sortedValid {
		return s.sorted
	}
	s.sorted = s.sorted[:0]
	for _, d := range s.drawables {
		if d == nil || !d.Visible {
			continue
		}
		s.sorted = append(s.sorted, d.paths.Paths()...)
	}
	slices.SortStableFunc(s.sorted, func(a, b *FixedPath) int {
		if c := ComparePaths(a, b); c != 0 {
			return c
		}
		return int(a.Drawable) - int(b.Drawable)
	})
	s.sortedValid = true
	return s.sorted
}

// TotalSegments returns the number of segments in the sorted path list.
func (s *Scene) TotalSegments() int {
	n := 0
	for _, p := range s.SortedPaths() {
		n += p.NumSegments()
	}
	return n
}

// Bounds returns the world-space bounding box of visible drawables.
// ok is false for a scene without vertices.
func (s *Scene) Bounds() (lo, hi Vec3, ok bool) {
	for _, d := range s.drawables {
		if d == nil || !d.Visible {
			continue
		}
		xf := d.ComposedTransform()
		for _, v := range s.Geometry(d.Geometry).Vertices {
			w := xf.TransformPoint(v)
			if !ok {
				lo, hi, ok = w, w, true
				continue
			}
			lo = V3(min(lo.X, w.X), min(lo.Y, w.Y), min(lo.Z, w.Z))
			hi = V3(max(hi.X, w.X), max(hi.Y, w.Y), max(hi.Z, w.Z))
		}
	}
	return lo, hi, ok
}
