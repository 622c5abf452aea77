package gpucore

import (
	"context"
	"fmt"
	"sync/atomic"
)

// bound is the framebuffer currently receiving draws. At most one
// framebuffer may be bound process-wide.
var bound atomic.Pointer[Framebuffer]

// Bound returns the currently bound framebuffer, or nil.
func Bound() *Framebuffer {
	return bound.Load()
}

// Framebuffer is a set of equally sized RGBA32F color attachments.
// Programs draw into its active draw buffers while it is bound.
type Framebuffer struct {
	adapter Adapter
	label   string

	width, height int
	attachments   []TextureID
	drawBuffers   []int
}

// NewFramebuffer creates an uninitialized framebuffer.
func NewFramebuffer(a Adapter, label string) *Framebuffer {
	return &Framebuffer{adapter: a, label: label}
}

// Label returns the debug label.
func (f *Framebuffer) Label() string { return f.label }

// Width returns the attachment width.
func (f *Framebuffer) Width() int { return f.width }

// Height returns the attachment height.
func (f *Framebuffer) Height() int { return f.height }

// NumAttachments returns the number of color attachments.
func (f *Framebuffer) NumAttachments() int { return len(f.attachments) }

// Initialized reports whether Init has allocated attachments.
func (f *Framebuffer) Initialized() bool { return len(f.attachments) > 0 }

// Init allocates numAttachments textures of width x height. Calling Init
// again with the same shape keeps the existing textures and their
// contents. Sizes beyond the device limits fail with an error wrapping
// ErrCapacity and leave the framebuffer unchanged.
func (f *Framebuffer) Init(numAttachments, width, height int) error {
	if numAttachments == len(f.attachments) && width == f.width && height == f.height {
		return nil
	}
	limits := f.adapter.Limits()
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gpucore: framebuffer %s: invalid size %dx%d", f.label, width, height)
	}
	if width > limits.MaxTextureSize || height > limits.MaxTextureSize {
		return fmt.Errorf("%w: framebuffer %s: %dx%d exceeds max texture size %d",
			ErrCapacity, f.label, width, height, limits.MaxTextureSize)
	}
	if numAttachments < 1 || numAttachments > limits.MaxColorAttachments {
		return fmt.Errorf("%w: framebuffer %s: %d attachments, device supports %d",
			ErrCapacity, f.label, numAttachments, limits.MaxColorAttachments)
	}

	f.release()
	textures := make([]TextureID, 0, numAttachments)
	for i := range numAttachments {
		id, err := f.adapter.CreateTexture(&TextureDesc{
			Label:  fmt.Sprintf("%s[%d]", f.label, i),
			Width:  width,
			Height: height,
		})
		if err != nil {
			for _, t := range textures {
				f.adapter.DestroyTexture(t)
			}
			return deviceErr("create texture", "", err)
		}
		textures = append(textures, id)
	}
	f.attachments = textures
	f.width, f.height = width, height
	f.DrawToAllBuffers()

	Logger().Debug("gpucore: framebuffer init",
		"label", f.label, "width", width, "height", height, "attachments", numAttachments)
	return nil
}

// ColorTexture returns the texture of attachment i.
func (f *Framebuffer) ColorTexture(i int) TextureID {
	if i < 0 || i >= len(f.attachments) {
		return InvalidID
	}
	return f.attachments[i]
}

// Bind makes f the draw target. It panics if another framebuffer, or f
// itself, is already bound.
func (f *Framebuffer) Bind() {
	if !bound.CompareAndSwap(nil, f) {
		other := bound.Load()
		name := "<nil>"
		if other != nil {
			name = other.label
		}
		panic(fmt.Sprintf("gpucore: bind framebuffer %s while %s is bound", f.label, name))
	}
}

// Unbind releases the draw target. It panics if f is not the bound
// framebuffer.
func (f *Framebuffer) Unbind() {
	if !bound.CompareAndSwap(f, nil) {
		panic(fmt.Sprintf("gpucore: unbind framebuffer %s which is not bound", f.label))
	}
}

// IsBound reports whether f is the bound framebuffer.
func (f *Framebuffer) IsBound() bool {
	return bound.Load() == f
}

// DrawBuffer restricts draws to attachment i.
func (f *Framebuffer) DrawBuffer(i int) {
	if i < 0 || i >= len(f.attachments) {
		panic(fmt.Sprintf("gpucore: framebuffer %s has no attachment %d", f.label, i))
	}
	f.drawBuffers = append(f.drawBuffers[:0], i)
}

// DrawToAllBuffers makes every attachment an active draw buffer.
func (f *Framebuffer) DrawToAllBuffers() {
	f.drawBuffers = f.drawBuffers[:0]
	for i := range f.attachments {
		f.drawBuffers = append(f.drawBuffers, i)
	}
}

func (f *Framebuffer) activeTargets() []TextureID {
	out := make([]TextureID, len(f.drawBuffers))
	for i, b := range f.drawBuffers {
		out[i] = f.attachments[b]
	}
	return out
}

// Clear fills the active draw buffers with v.
func (f *Framebuffer) Clear(v [4]float32) error {
	for _, id := range f.activeTargets() {
		if err := f.adapter.ClearTexture(id, v); err != nil {
			return deviceErr("clear", "", err)
		}
	}
	return nil
}

// Upload replaces the contents of attachment i.
func (f *Framebuffer) Upload(i int, data []float32) error {
	id := f.ColorTexture(i)
	if id == InvalidID {
		return fmt.Errorf("gpucore: framebuffer %s has no attachment %d", f.label, i)
	}
	return deviceErr("upload", "", f.adapter.WriteTexture(id, data))
}

// ReadTexel reads one texel of attachment i.
func (f *Framebuffer) ReadTexel(ctx context.Context, i, x, y int) ([4]float32, error) {
	id := f.ColorTexture(i)
	if id == InvalidID {
		return [4]float32{}, fmt.Errorf("gpucore: framebuffer %s has no attachment %d", f.label, i)
	}
	v, err := f.adapter.ReadTexel(ctx, id, x, y)
	return v, deviceErr("readback", "", err)
}

// ReadTexture reads attachment i.
func (f *Framebuffer) ReadTexture(ctx context.Context, i int) (*Texels, error) {
	id := f.ColorTexture(i)
	if id == InvalidID {
		return nil, fmt.Errorf("gpucore: framebuffer %s has no attachment %d", f.label, i)
	}
	t, err := f.adapter.ReadTexture(ctx, id)
	return t, deviceErr("readback", "", err)
}

func (f *Framebuffer) release() {
	for _, id := range f.attachments {
		f.adapter.DestroyTexture(id)
	}
	f.attachments = nil
	f.drawBuffers = f.drawBuffers[:0]
	f.width, f.height = 0, 0
}

// Destroy releases the attachments. A bound framebuffer is unbound first.
func (f *Framebuffer) Destroy() {
	bound.CompareAndSwap(f, nil)
	f.release()
}
