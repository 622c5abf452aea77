package render

import (
	"fmt"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/gpucore"
	"github.com/gogpu/dpix/internal/parallel"
)

// rowsPerBand is the height of the raster bands handed to workers.
const rowsPerBand = 16

// DepthRasterizer renders the scene's triangles into a depth texture.
// Depth is stored in the x channel in [0,1]; uncovered pixels hold 1.
type DepthRasterizer struct {
	fb          *gpucore.Framebuffer
	pool        *parallel.WorkerPool
	supersample int

	zbuf   []float32
	texels *gpucore.Texels
}

// NewDepthRasterizer creates a rasterizer whose buffer is supersample
// times the camera resolution on each axis. workers bounds the raster
// goroutines; zero means GOMAXPROCS.
func NewDepthRasterizer(a gpucore.Adapter, supersample, workers int) *DepthRasterizer {
	return &DepthRasterizer{
		fb:          gpucore.NewFramebuffer(a, "depth"),
		pool:        parallel.NewWorkerPool(workers),
		supersample: max(supersample, 1),
	}
}

// Supersample returns the resolution multiplier.
func (r *DepthRasterizer) Supersample() int {
	return r.supersample
}

// Texels returns the host copy of the last depth buffer, or nil before
// the first render.
func (r *DepthRasterizer) Texels() *gpucore.Texels {
	return r.texels
}

// RenderDepth rasterizes every visible drawable and uploads the result.
func (r *DepthRasterizer) RenderDepth(cam *dpix.Camera, scene *dpix.Scene) (gpucore.TextureID, error) {
	width, height := cam.Width*r.supersample, cam.Height*r.supersample
	if err := r.fb.Init(1, width, height); err != nil {
		return gpucore.InvalidID, fmt.Errorf("render: depth buffer: %w", err)
	}

	n := width * height
	if cap(r.zbuf) < n {
		r.zbuf = make([]float32, n)
	}
	zbuf := r.zbuf[:n]
	for i := range zbuf {
		zbuf[i] = 1
	}

	tris := setupTriangles(cam, scene, width, height)
	var bands []func()
	for y0 := 0; y0 < height; y0 += rowsPerBand {
		y1 := min(y0+rowsPerBand, height)
		bands = append(bands, func() {
			for i := range tris {
				if tris[i].maxY < y0 || tris[i].minY >= y1 {
					continue
				}
				tris[i].rasterizeRows(zbuf, width, y0, y1)
			}
		})
	}
	r.pool.ExecuteAll(bands)

	if r.texels == nil || r.texels.Width != width || r.texels.Height != height {
		r.texels = gpucore.NewTexels(width, height)
	}
	for i, z := range zbuf {
		r.texels.SetIndex(i, [4]float32{z, z, z, 1})
	}
	if err := r.fb.Upload(0, r.texels.Pix); err != nil {
		return gpucore.InvalidID, err
	}

	gpucore.Logger().Debug("render: depth buffer", "width", width, "height", height, "triangles", len(tris))
	return r.fb.ColorTexture(0), nil
}

// Close releases the depth texture and the raster workers.
func (r *DepthRasterizer) Close() {
	r.fb.Destroy()
	r.pool.Close()
}
