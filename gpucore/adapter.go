package gpucore

import "context"

// Adapter abstracts the device that runs the line pipeline's programs.
//
// Textures are RGBA32F. Draws execute in submission order; writes made by
// one draw are visible to every later draw and readback. Implementations
// need not be safe for concurrent use: the pipeline issues commands from a
// single goroutine.
//
// Resource lifecycle:
//   - Textures are created via CreateTexture and released via DestroyTexture
//   - IDs become invalid after destruction and are never reused
//   - Destroy releases everything the adapter still owns
type Adapter interface {
	// Name identifies the adapter in logs.
	Name() string

	// Limits returns the device limits.
	Limits() Limits

	// CreateTexture allocates a zeroed texture.
	CreateTexture(desc *TextureDesc) (TextureID, error)

	// DestroyTexture releases a texture. Unknown IDs are ignored.
	DestroyTexture(id TextureID)

	// WriteTexture uploads a full texture: width*height*4 floats.
	WriteTexture(id TextureID, data []float32) error

	// ClearTexture sets every texel to v.
	ClearTexture(id TextureID, v [4]float32) error

	// ReadTexture downloads a full texture. It waits for pending draws.
	ReadTexture(ctx context.Context, id TextureID) (*Texels, error)

	// ReadTexel downloads a single texel. It waits for pending draws.
	ReadTexel(ctx context.Context, id TextureID, x, y int) ([4]float32, error)

	// Dispatch runs a draw call.
	Dispatch(call *DrawCall) error

	// Destroy releases the adapter and every resource it owns.
	Destroy()
}
