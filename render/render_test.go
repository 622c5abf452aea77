package render

import (
	"testing"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/backend"
	"github.com/gogpu/dpix/backend/software"
	"github.com/gogpu/dpix/gpucore"
)

func newDevice(t *testing.T) gpucore.Adapter {
	t.Helper()
	a := software.NewAdapter(backend.Config{Workers: 2})
	t.Cleanup(a.Destroy)
	return a
}

// quad returns a square of half-size h at depth z facing +z.
func quad(h, z float32) *dpix.Geometry {
	return &dpix.Geometry{
		Name: "quad",
		Vertices: []dpix.Vec3{
			dpix.V3(-h, -h, z), dpix.V3(h, -h, z), dpix.V3(h, h, z), dpix.V3(-h, h, z),
		},
		Triangles: []int{0, 1, 2, 0, 2, 3},
	}
}

func sceneOf(t *testing.T, geoms ...*dpix.Geometry) *dpix.Scene {
	t.Helper()
	s := dpix.NewScene()
	for _, g := range geoms {
		gid, err := s.AddGeometry(g)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.AddDrawable(gid, dpix.Identity4()); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func approx(a, b, eps float32) bool {
	return math32.Abs(a-b) <= eps
}

// =============================================================================
// Depth
// =============================================================================

func TestDepthQuad(t *testing.T) {
	a := newDevice(t)
	r := NewDepthRasterizer(a, 1, 2)
	defer r.Close()
	cam := dpix.NewCamera(20, 20)

	if _, err := r.RenderDepth(&cam, sceneOf(t, quad(1, 0))); err != nil {
		t.Fatalf("RenderDepth() error = %v", err)
	}
	d := r.Texels()
	_, _, want, _ := cam.Project(dpix.V3(0, 0, 0))
	if got := d.At(10, 10)[0]; !approx(got, want, 1e-4) {
		t.Errorf("center depth = %v, want %v", got, want)
	}
	if got := d.At(0, 0)[0]; got != 1 {
		t.Errorf("corner depth = %v, want cleared 1", got)
	}
}

func TestDepthNearestWins(t *testing.T) {
	a := newDevice(t)
	r := NewDepthRasterizer(a, 1, 0)
	defer r.Close()
	cam := dpix.NewCamera(16, 16)

	id, err := r.RenderDepth(&cam, sceneOf(t, quad(1, 0), quad(0.5, 1)))
	if err != nil {
		t.Fatal(err)
	}
	_, _, near, _ := cam.Project(dpix.V3(0, 0, 1))
	got, err := a.ReadTexel(t.Context(), id, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !approx(got[0], near, 1e-4) {
		t.Errorf("uploaded depth = %v, want near quad %v", got[0], near)
	}
}

func TestDepthNearPlaneClipping(t *testing.T) {
	a := newDevice(t)
	r := NewDepthRasterizer(a, 1, 1)
	defer r.Close()
	cam := dpix.NewCamera(20, 20)

	// A floor reaching behind the eye.
	floor := &dpix.Geometry{
		Vertices:  []dpix.Vec3{dpix.V3(-10, -1, -10), dpix.V3(10, -1, -10), dpix.V3(0, -1, 10)},
		Triangles: []int{0, 1, 2},
	}
	if _, err := r.RenderDepth(&cam, sceneOf(t, floor)); err != nil {
		t.Fatal(err)
	}
	d := r.Texels()
	for i := range d.Width * d.Height {
		if z := d.Index(i)[0]; math32.IsNaN(z) || z < 0 || z > 1 {
			t.Fatalf("texel %d depth %v outside [0,1]", i, z)
		}
	}
	if z := d.At(10, 0)[0]; z >= 1 {
		t.Errorf("floor below the eye not rasterized: %v", z)
	}
	if z := d.At(10, 19)[0]; z != 1 {
		t.Errorf("sky covered: %v", z)
	}
}

func TestDepthSupersample(t *testing.T) {
	a := newDevice(t)
	r := NewDepthRasterizer(a, 2, 1)
	defer r.Close()
	cam := dpix.NewCamera(10, 8)

	if _, err := r.RenderDepth(&cam, sceneOf(t, quad(1, 0))); err != nil {
		t.Fatal(err)
	}
	if d := r.Texels(); d.Width != 20 || d.Height != 16 {
		t.Errorf("size = %dx%d, want 20x16", d.Width, d.Height)
	}
}

func TestDepthWorkersAgree(t *testing.T) {
	a := newDevice(t)
	cam := dpix.NewCamera(40, 40)
	scene := sceneOf(t, quad(1, 0), quad(0.7, 0.5))

	var results [2]*gpucore.Texels
	for i, workers := range []int{1, 4} {
		r := NewDepthRasterizer(a, 1, workers)
		if _, err := r.RenderDepth(&cam, scene); err != nil {
			t.Fatal(err)
		}
		results[i] = r.Texels()
		r.Close()
	}
	for i := range results[0].Pix {
		if results[0].Pix[i] != results[1].Pix[i] {
			t.Fatalf("float %d differs: %v vs %v", i, results[0].Pix[i], results[1].Pix[i])
		}
	}
}

func TestClipNear(t *testing.T) {
	poly := []dpix.Vec4{dpix.V4(0, 0, 0, 1), dpix.V4(1, 0, -3, 1), dpix.V4(0, 1, 0, 1)}
	got := clipNear(nil, poly)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	for _, p := range got {
		if p.Z+p.W < -1e-6 {
			t.Errorf("vertex %+v behind the near plane", p)
		}
	}
	if got := clipNear(nil, []dpix.Vec4{dpix.V4(0, 0, -2, 1), dpix.V4(1, 0, -2, 1), dpix.V4(0, 1, -2, 1)}); len(got) != 0 {
		t.Errorf("fully clipped triangle kept %d vertices", len(got))
	}
}

// =============================================================================
// Priority
// =============================================================================

func lineGeometry(z float32) *dpix.Geometry {
	return &dpix.Geometry{
		Name:     "line",
		Vertices: []dpix.Vec3{dpix.V3(-1, 0, z), dpix.V3(1, 0, z)},
		Lines:    []int{0, 1},
	}
}

func TestPriorityBufferStroke(t *testing.T) {
	a := newDevice(t)
	depth := NewDepthRasterizer(a, 1, 1)
	defer depth.Close()
	prio := NewPriorityBuffer(a, depth)
	defer prio.Close()

	cam := dpix.NewCamera(32, 32)
	scene := sceneOf(t, lineGeometry(0))
	settings := dpix.DefaultSettings()
	style := dpix.DefaultStyle()

	if _, err := depth.RenderDepth(&cam, scene); err != nil {
		t.Fatal(err)
	}
	if _, err := prio.RenderPriority(&cam, scene, &settings, style); err != nil {
		t.Fatal(err)
	}
	buf := prio.Texels()
	if got := buf.At(16, 16)[0]; got != 1 {
		t.Errorf("on the stroke = %v, want path priority 1", got)
	}
	if got := buf.At(16, 28)[0]; got != 0 {
		t.Errorf("off the stroke = %v, want 0", got)
	}
}

func TestPriorityBufferOccluded(t *testing.T) {
	a := newDevice(t)
	depth := NewDepthRasterizer(a, 1, 1)
	defer depth.Close()
	prio := NewPriorityBuffer(a, depth)
	defer prio.Close()

	cam := dpix.NewCamera(32, 32)
	scene := sceneOf(t, lineGeometry(0), quad(2, 1))
	settings := dpix.DefaultSettings()

	if _, err := depth.RenderDepth(&cam, scene); err != nil {
		t.Fatal(err)
	}
	if _, err := prio.RenderPriority(&cam, scene, &settings, dpix.DefaultStyle()); err != nil {
		t.Fatal(err)
	}
	buf := prio.Texels()
	for i := range buf.Width * buf.Height {
		if v := buf.Index(i)[0]; v != 0 {
			t.Fatalf("hidden stroke wrote priority %v at texel %d", v, i)
		}
	}
}

func TestStampMax(t *testing.T) {
	buf := gpucore.NewTexels(4, 4)
	stampMax(buf, 2, 2, 1, 0.5)
	stampMax(buf, 2, 2, 0.5, 0.25)
	want := map[[2]int]float32{{1, 1}: 0.5, {2, 1}: 0.5, {1, 2}: 0.5, {2, 2}: 0.5}
	for y := range 4 {
		for x := range 4 {
			if got := buf.At(x, y)[0]; got != want[[2]int{x, y}] {
				t.Errorf("(%d,%d) = %v, want %v", x, y, got, want[[2]int{x, y}])
			}
		}
	}
}
