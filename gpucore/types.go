package gpucore

import "fmt"

// TextureID is an opaque handle to an RGBA32F texture owned by an adapter.
type TextureID uint64

// InvalidID is the zero value, representing no texture.
const InvalidID TextureID = 0

// TexelSize is the size in bytes of one RGBA32F texel.
const TexelSize = 16

// TextureDesc describes a texture to create.
type TextureDesc struct {
	Label  string
	Width  int
	Height int
}

// Texels returns the texel count.
func (d *TextureDesc) Texels() int {
	return d.Width * d.Height
}

// Limits describes device capabilities that bound the pipeline.
type Limits struct {
	// MaxTextureSize is the largest texture side in texels.
	MaxTextureSize int

	// MaxColorAttachments is the largest number of draw buffers a
	// framebuffer may have.
	MaxColorAttachments int
}

// DefaultLimits returns limits every supported device meets.
func DefaultLimits() Limits {
	return Limits{MaxTextureSize: 8192, MaxColorAttachments: 8}
}

// Texels is a host-side RGBA32F image, row-major, four floats per texel.
type Texels struct {
	Width, Height int
	Pix           []float32
}

// NewTexels allocates a zeroed image.
func NewTexels(width, height int) *Texels {
	return &Texels{Width: width, Height: height, Pix: make([]float32, width*height*4)}
}

// At returns texel (x, y). Out-of-range coordinates read as zero.
func (t *Texels) At(x, y int) [4]float32 {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return [4]float32{}
	}
	return t.Index(y*t.Width + x)
}

// Index returns texel i in row-major order. Out-of-range indices read as
// zero.
func (t *Texels) Index(i int) [4]float32 {
	if i < 0 || i >= t.Width*t.Height {
		return [4]float32{}
	}
	o := i * 4
	return [4]float32{t.Pix[o], t.Pix[o+1], t.Pix[o+2], t.Pix[o+3]}
}

// Set writes texel (x, y). Out-of-range writes are dropped.
func (t *Texels) Set(x, y int, v [4]float32) {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return
	}
	t.SetIndex(y*t.Width+x, v)
}

// SetIndex writes texel i. Out-of-range writes are dropped.
func (t *Texels) SetIndex(i int, v [4]float32) {
	if i < 0 || i >= t.Width*t.Height {
		return
	}
	copy(t.Pix[i*4:i*4+4], v[:])
}

// Fill sets every texel to v.
func (t *Texels) Fill(v [4]float32) {
	for i := 0; i < len(t.Pix); i += 4 {
		copy(t.Pix[i:i+4], v[:])
	}
}

// CheckTextureData validates an upload against a descriptor.
func CheckTextureData(desc *TextureDesc, data []float32) error {
	if want := desc.Texels() * 4; len(data) != want {
		return fmt.Errorf("gpucore: texture %q: got %d floats, want %d", desc.Label, len(data), want)
	}
	return nil
}
