package stroke

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"

	"github.com/gogpu/dpix"
	"github.com/gogpu/dpix/internal/mathx"
)

// ImageSink draws quads into a CPU-backed *image.RGBA. Quads of one
// DrawQuads call are merged by maximum coverage before compositing, so
// overlapping samples of a line do not darken its joints.
type ImageSink struct {
	img        *image.RGBA
	line       dpix.Vec3
	background dpix.Vec3
	coverage   []float32
}

// NewImageSink creates a sink of the given size cleared to the style's
// background.
func NewImageSink(width, height int, style *dpix.Style) *ImageSink {
	return NewImageSinkFromImage(image.NewRGBA(image.Rect(0, 0, width, height)), style)
}

// NewImageSinkFromImage wraps img, which is cleared to the style's
// background. The image is used directly without copying.
func NewImageSinkFromImage(img *image.RGBA, style *dpix.Style) *ImageSink {
	s := &ImageSink{img: img, line: style.LineColor, background: style.Background}
	s.Clear()
	return s
}

// Width returns the image width in pixels.
func (s *ImageSink) Width() int { return s.img.Bounds().Dx() }

// Height returns the image height in pixels.
func (s *ImageSink) Height() int { return s.img.Bounds().Dy() }

// Image returns the underlying image.
func (s *ImageSink) Image() *image.RGBA { return s.img }

// Clear fills the image with the background color.
func (s *ImageSink) Clear() {
	c := toRGBA(s.background)
	b := s.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s.img.SetRGBA(x, y, c)
		}
	}
}

// DrawQuads implements QuadSink. Quad coordinates have y up; row 0 of
// the image is the top.
func (s *ImageSink) DrawQuads(quads []Quad) error {
	w, h := s.Width(), s.Height()
	if cap(s.coverage) < w*h {
		s.coverage = make([]float32, w*h)
	}
	cov := s.coverage[:w*h]
	clear(cov)

	for i := range quads {
		q := &quads[i]
		hw := max(q.Width/2, 0.5)
		x0 := max(int(math32.Floor(min(q.P0[0], q.P1[0])-hw-1)), 0)
		x1 := min(int(math32.Ceil(max(q.P0[0], q.P1[0])+hw+1)), w-1)
		y0 := max(int(math32.Floor(min(q.P0[1], q.P1[1])-hw-1)), 0)
		y1 := min(int(math32.Ceil(max(q.P0[1], q.P1[1])+hw+1)), h-1)
		for py := y0; py <= y1; py++ {
			for px := x0; px <= x1; px++ {
				d := segmentDistance(float32(px)+0.5, float32(py)+0.5, q.P0, q.P1)
				c := mathx.Clamp(hw+0.5-d, 0, 1) * q.Alpha
				idx := (h-1-py)*w + px
				cov[idx] = max(cov[idx], c)
			}
		}
	}

	b := s.img.Bounds()
	for i, c := range cov {
		if c <= 0 {
			continue
		}
		x, y := b.Min.X+i%w, b.Min.Y+i/w
		dst := s.img.RGBAAt(x, y)
		s.img.SetRGBA(x, y, color.RGBA{
			R: blend(dst.R, s.line.X, c),
			G: blend(dst.G, s.line.Y, c),
			B: blend(dst.B, s.line.Z, c),
			A: 255,
		})
	}
	return nil
}

// segmentDistance returns the distance from (x, y) to the segment a-b.
func segmentDistance(x, y float32, a, b [2]float32) float32 {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l2 := dx*dx + dy*dy
	t := float32(0)
	if l2 > 0 {
		t = mathx.Clamp(((x-a[0])*dx+(y-a[1])*dy)/l2, 0, 1)
	}
	return math32.Hypot(x-(a[0]+t*dx), y-(a[1]+t*dy))
}

func blend(dst uint8, src, alpha float32) uint8 {
	v := float32(dst)/255*(1-alpha) + mathx.Clamp(src, 0, 1)*alpha
	return uint8(math32.Round(v * 255))
}

func toRGBA(c dpix.Vec3) color.RGBA {
	return color.RGBA{
		R: uint8(math32.Round(mathx.Clamp(c.X, 0, 1) * 255)),
		G: uint8(math32.Round(mathx.Clamp(c.Y, 0, 1) * 255)),
		B: uint8(math32.Round(mathx.Clamp(c.Z, 0, 1) * 255)),
		A: 255,
	}
}
