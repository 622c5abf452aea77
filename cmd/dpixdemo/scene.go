package main

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix"
)

// box returns the outline and faces of an axis-aligned box.
func box(name string, lo, hi dpix.Vec3) *dpix.Geometry {
	v := make([]dpix.Vec3, 8)
	for i := range v {
		v[i] = dpix.V3(
			pick(i&1 != 0, hi.X, lo.X),
			pick(i&2 != 0, hi.Y, lo.Y),
			pick(i&4 != 0, hi.Z, lo.Z),
		)
	}
	return &dpix.Geometry{
		Name:     name,
		Vertices: v,
		Lines: []int{
			0, 1, 1, 3, 3, 2, 2, 0,
			4, 5, 5, 7, 7, 6, 6, 4,
			0, 4, 1, 5, 2, 6, 3, 7,
		},
		Triangles: []int{
			0, 2, 1, 1, 2, 3, // -z
			4, 5, 6, 5, 7, 6, // +z
			0, 1, 4, 1, 5, 4, // -y
			2, 6, 3, 3, 6, 7, // +y
			0, 4, 2, 2, 4, 6, // -x
			1, 3, 5, 3, 7, 5, // +x
		},
	}
}

func pick(c bool, a, b float32) float32 {
	if c {
		return a
	}
	return b
}

// circle returns a closed crease polyline of n segments in the y=0 plane.
func circle(name string, radius float32, n int) *dpix.Geometry {
	g := &dpix.Geometry{Name: name, Vertices: make([]dpix.Vec3, n)}
	idx := make([]int, n+1)
	for i := range n {
		a := 2 * math32.Pi * float32(i) / float32(n)
		g.Vertices[i] = dpix.V3(radius*math32.Cos(a), 0, radius*math32.Sin(a))
		idx[i] = i
	}
	idx[n] = 0
	g.LineStrips = [][]int{idx}
	return g
}

// arrow is a small flat marker pointing along +x from the origin.
func arrow() *dpix.Geometry {
	return &dpix.Geometry{
		Name: "arrow",
		Vertices: []dpix.Vec3{
			dpix.V3(0, 0.05, 0), dpix.V3(0.4, 0.05, 0.15), dpix.V3(0.4, 0.05, -0.15),
		},
		LineStrips: [][]int{{0, 1, 2, 0}},
	}
}

// buildScene places a box behind a partly occluding box and an arrow that
// drives around both. It returns the scene and the number of animation
// frames per lap.
func buildScene(speed float32) (*dpix.Scene, int, error) {
	s := dpix.NewScene()
	add := func(g *dpix.Geometry, xf dpix.Mat4) (dpix.DrawableID, error) {
		gid, err := s.AddGeometry(g)
		if err != nil {
			return 0, err
		}
		return s.AddDrawable(gid, xf)
	}

	if _, err := add(box("back", dpix.V3(-1, -1, -1), dpix.V3(1, 1, 1)), dpix.Identity4()); err != nil {
		return nil, 0, err
	}
	front := dpix.Translate4(dpix.V3(0.8, 0.3, 1.8)).Mul(dpix.Rotate4(math32.Pi/6, dpix.V3(0, 1, 0)))
	if _, err := add(box("front", dpix.V3(-0.5, -0.5, -0.5), dpix.V3(0.5, 0.5, 0.5)), front); err != nil {
		return nil, 0, err
	}

	track := circle("track", 2.5, 48)
	anim, err := dpix.NewAnimController(track, dpix.Vec3{})
	if err != nil {
		return nil, 0, fmt.Errorf("animation: %w", err)
	}
	anim.SetSpeed(speed)
	id, err := add(arrow(), dpix.Translate4(track.Vertices[0].Add(dpix.V3(0, -1, 0))))
	if err != nil {
		return nil, 0, err
	}
	if err := s.SetAnimation(id, anim); err != nil {
		return nil, 0, err
	}
	return s, anim.NumFrames(), nil
}

// demoCamera looks at the scene from above and in front.
func demoCamera(width, height int) dpix.Camera {
	cam := dpix.NewCamera(width, height)
	cam.Eye = dpix.V3(2, 3, 7)
	return cam
}
