package dpix

import (
	"errors"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix/internal/mathx"
)

// ErrNoAnimationPath is returned when a geometry yields no path to drive
// an animation along.
var ErrNoAnimationPath = errors.New("dpix: animation geometry has no paths")

// AnimController moves a drawable along a driving path. Frame n places
// the drawable n*speed units along the path, rotated so that its initial
// heading follows the current segment direction.
type AnimController struct {
	geom   *Geometry
	path   *FixedPath
	center Vec3

	totalLength float32
	speed       float32
	numFrames   int
	frame       int

	segment    int
	traversed  float32
	segLength  float32
	dir        Vec3
	initialDir Vec3
	axis       Vec3
	angle      float32

	transform Mat4
}

// NewAnimController builds the path set of g and drives along its first
// path. center is the pivot the drawable rotates about.
func NewAnimController(g *Geometry, center Vec3) (*AnimController, error) {
	set := NewPathSet(g)
	if set.Len() == 0 || set.Path(0).NumSegments() == 0 {
		return nil, ErrNoAnimationPath
	}
	a := &AnimController{
		geom:      g,
		path:      set.Path(0),
		center:    center,
		transform: Identity4(),
	}
	a.totalLength = a.path.Attr.StaticLength
	a.Reset()
	return a, nil
}

// TotalLength returns the length of the driving path.
func (a *AnimController) TotalLength() float32 { return a.totalLength }

// Speed returns the distance advanced per frame.
func (a *AnimController) Speed() float32 { return a.speed }

// NumFrames returns the cycle length in frames; zero means static.
func (a *AnimController) NumFrames() int { return a.numFrames }

// Frame returns the current frame within the cycle.
func (a *AnimController) Frame() int { return a.frame }

// Segment returns the index of the current segment of the driving path.
func (a *AnimController) Segment() int { return a.segment }

// Traversed returns the path distance covered before the current segment.
func (a *AnimController) Traversed() float32 { return a.traversed }

// Transform returns the current animation transform.
func (a *AnimController) Transform() Mat4 { return a.transform }

// SetSpeed sets the distance advanced per frame and resets the controller.
// A non-positive speed disables the animation.
func (a *AnimController) SetSpeed(speed float32) {
	a.speed = speed
	if speed > 0 {
		a.numFrames = int(math32.Floor(a.totalLength/speed)) + 1
	} else {
		a.numFrames = 0
	}
	a.Reset()
}

// Reset rewinds to the start of the driving path.
func (a *AnimController) Reset() {
	a.frame = 0
	a.segment = 0
	a.traversed = 0
	a.dir = Vec3{}
	a.updateSegmentLength()
	a.initialDir = a.dir
	a.axis = V3(0, 0, 1)
	a.updateRotation()
	a.transform = Identity4()
}

// SetFrame moves to frame n of the cycle. Moving backwards, including
// wrapping past the cycle end, restarts from the beginning of the path.
func (a *AnimController) SetFrame(n int) {
	if a.numFrames == 0 {
		return
	}
	nf := mathx.Mod(n, a.numFrames)
	if nf < a.frame {
		a.Reset()
	}
	a.frame = nf
	a.updateTransform()
}

func (a *AnimController) updateSegmentLength() {
	v0 := a.path.Vertex(a.geom, a.segment)
	v1 := a.path.Vertex(a.geom, a.segment+1)
	d := v1.Sub(v0)
	a.segLength = d.Length()
	// Zero-length segments keep the previous heading.
	if a.segLength > 1e-12 {
		a.dir = d.Mul(1 / a.segLength)
	}
}

func (a *AnimController) updateRotation() {
	if a.dir.LengthSq() == 0 || a.initialDir.LengthSq() == 0 {
		a.angle = 0
		return
	}
	if axis := a.initialDir.Cross(a.dir); axis.LengthSq() > 0.001 {
		a.axis = axis
	}
	a.angle = math32.Acos(mathx.Clamp(a.initialDir.Dot(a.dir), -1, 1))
}

func (a *AnimController) updateTransform() {
	distance := float32(a.frame)*a.speed - a.traversed
	segments := a.path.NumSegments()
	for steps := 0; distance > a.segLength && steps < segments; steps++ {
		a.traversed += a.segLength
		distance -= a.segLength
		a.segment = (a.segment + 1) % segments
		a.updateSegmentLength()
		// Every segment passed may set the axis kept by antiparallel ones.
		a.updateRotation()
	}
	a.updateRotation()

	start := a.path.Vertex(a.geom, 0)
	segStart := a.path.Vertex(a.geom, a.segment)
	offset := a.dir.Mul(distance).Add(segStart).Sub(start)

	a.transform = Translate4(offset).
		Mul(Translate4(a.center)).
		Mul(Rotate4(a.angle, a.axis)).
		Mul(Translate4(a.center.Neg()))
}
