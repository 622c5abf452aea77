// Package stroke turns the segment atlas into stroke quads.
//
// The Renderer reads the atlas only through its accessors. Every sample
// with a non-zero atlas value becomes one Quad covering its stretch of
// the clipped segment; the quad's width follows the style's priority
// width ramp and its alpha is the atlas value. Quads are handed to a
// QuadSink. ImageSink draws them into an *image.RGBA.
//
//	r := stroke.NewRenderer()
//	sink := stroke.NewImageSink(w, h, style)
//	if _, err := r.Render(ctx, sa, style, sink); err != nil {
//		return err
//	}
//	img := sink.Image()
package stroke
