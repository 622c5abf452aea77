// Package render produces the screen-space buffers the segment atlas
// tests line samples against: a depth buffer of the scene's triangles and
// a priority buffer of the strokes that win each pixel.
//
// Both are rasterized on the CPU and uploaded to the device as RGBA32F
// textures, so they work with every backend.
package render
