// Package dpix computes line visibility for non-photorealistic line
// drawings of 3D scenes at interactive rates.
//
// # Overview
//
// Feature lines (contours, creases, profile edges) are extracted from
// polygonal models as paths: polylines indexing a shared vertex buffer.
// Every frame the paths are clipped, sampled at a fixed screen spacing,
// and packed into a 2D segment atlas in which each texel records whether
// one sample is visible and how important it is. A stroke renderer then
// draws the lines from the atlas.
//
// # Architecture
//
// The module is organized into:
//   - dpix: scene, geometry, paths, stitching, animation, settings, style
//   - gpucore: device abstraction, named programs, framebuffers
//   - atlas: the segment atlas pipeline (clip, prefix sum, rasterize, filter)
//   - stroke: quads generated from the atlas for the final drawing
//   - render: depth and priority buffers consumed by the atlas
//   - backend/software: CPU device running the programs in parallel
//   - backend/wgpu: WebGPU device running the programs as compute shaders
//
// # Quick Start
//
//	scene := dpix.NewScene()
//	gid, _ := scene.AddGeometry(geom)
//	scene.AddDrawable(gid, dpix.Identity4())
//
//	dev := software.NewAdapter(software.Config{})
//	sa, _ := atlas.New(dev, atlas.WithSettings(dpix.DefaultSettings()))
//	ok, err := sa.Draw(ctx, scene, cam, depthTexture)
//
// # Logging
//
// dpix is silent by default. Call SetLogger to receive diagnostics.
package dpix

// Version is the current version of the module.
const Version = "0.3.0"
