package render

import "github.com/gogpu/dpix"

// screenTri is a triangle in raster space: pixel coordinates and [0,1]
// depth.
type screenTri struct {
	x, y, z    [3]float32
	minY, maxY int
}

// clipNear clips a polygon in homogeneous clip space against z >= -w.
// The returned slice reuses dst.
func clipNear(dst, poly []dpix.Vec4) []dpix.Vec4 {
	dst = dst[:0]
	for i, cur := range poly {
		next := poly[(i+1)%len(poly)]
		dc := cur.Z + cur.W
		dn := next.Z + next.W
		if dc >= 0 {
			dst = append(dst, cur)
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			dst = append(dst, dpix.V4(
				cur.X+(next.X-cur.X)*t,
				cur.Y+(next.Y-cur.Y)*t,
				cur.Z+(next.Z-cur.Z)*t,
				cur.W+(next.W-cur.W)*t,
			))
		}
	}
	return dst
}

// setupTriangles projects every triangle of the scene's visible drawables
// to a width x height raster.
func setupTriangles(cam *dpix.Camera, scene *dpix.Scene, width, height int) []screenTri {
	vp := cam.ViewProjection()
	fw, fh := float32(width), float32(height)
	var tris []screenTri
	var poly, clipped []dpix.Vec4

	for _, d := range scene.Drawables() {
		if !d.Visible {
			continue
		}
		g := scene.Geometry(d.Geometry)
		xf := vp.Mul(d.ComposedTransform())
		for t := 0; t+2 < len(g.Triangles); t += 3 {
			poly = poly[:0]
			for _, vi := range g.Triangles[t : t+3] {
				poly = append(poly, xf.MulVec4(g.Vertices[vi].Extend(1)))
			}
			clipped = clipNear(clipped, poly)
			if len(clipped) < 3 {
				continue
			}
			var xs, ys, zs [8]float32
			for i, p := range clipped {
				inv := 1 / p.W
				xs[i] = (p.X*inv*0.5 + 0.5) * fw
				ys[i] = (p.Y*inv*0.5 + 0.5) * fh
				zs[i] = p.Z*inv*0.5 + 0.5
			}
			for i := 1; i+1 < len(clipped); i++ {
				tri := screenTri{
					x: [3]float32{xs[0], xs[i], xs[i+1]},
					y: [3]float32{ys[0], ys[i], ys[i+1]},
					z: [3]float32{zs[0], zs[i], zs[i+1]},
				}
				lo := min(tri.y[0], tri.y[1], tri.y[2])
				hi := max(tri.y[0], tri.y[1], tri.y[2])
				if hi < 0 || lo >= fh {
					continue
				}
				tri.minY = max(int(lo), 0)
				tri.maxY = min(int(hi), height-1)
				tris = append(tris, tri)
			}
		}
	}
	return tris
}

func edge(ax, ay, bx, by, px, py float32) float32 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// rasterizeRows depth-tests tri against rows [y0, y1) of zbuf, keeping
// the nearest depth per pixel. Pixel centers on an edge are covered.
func (tri *screenTri) rasterizeRows(zbuf []float32, width, y0, y1 int) {
	area := edge(tri.x[0], tri.y[0], tri.x[1], tri.y[1], tri.x[2], tri.y[2])
	if area == 0 {
		return
	}
	inv := 1 / area
	minX := max(int(min(tri.x[0], tri.x[1], tri.x[2])), 0)
	maxX := min(int(max(tri.x[0], tri.x[1], tri.x[2])), width-1)

	for py := max(y0, tri.minY); py <= min(y1-1, tri.maxY); py++ {
		cy := float32(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float32(px) + 0.5
			w0 := edge(tri.x[1], tri.y[1], tri.x[2], tri.y[2], cx, cy) * inv
			w1 := edge(tri.x[2], tri.y[2], tri.x[0], tri.y[0], cx, cy) * inv
			w2 := edge(tri.x[0], tri.y[0], tri.x[1], tri.y[1], cx, cy) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*tri.z[0] + w1*tri.z[1] + w2*tri.z[2]
			if z < 0 || z > 1 {
				continue
			}
			i := py*width + px
			if z < zbuf[i] {
				zbuf[i] = z
			}
		}
	}
}
