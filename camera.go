package dpix

import "github.com/chewxy/math32"

// Camera is a perspective pinhole camera.
type Camera struct {
	Eye    Vec3
	Target Vec3
	Up     Vec3

	// FovY is the vertical field of view in radians.
	FovY      float32
	Near, Far float32

	// Width and Height are the viewport size in pixels.
	Width, Height int
}

// NewCamera returns a camera at (0,0,5) looking at the origin.
func NewCamera(width, height int) Camera {
	return Camera{
		Eye:    V3(0, 0, 5),
		Target: V3(0, 0, 0),
		Up:     V3(0, 1, 0),
		FovY:   math32.Pi / 4,
		Near:   0.1,
		Far:    100,
		Width:  width,
		Height: height,
	}
}

// Aspect returns the viewport aspect ratio.
func (c Camera) Aspect() float32 {
	if c.Height == 0 {
		return 1
	}
	return float32(c.Width) / float32(c.Height)
}

// View returns the world-to-eye matrix.
func (c Camera) View() Mat4 {
	return LookAt(c.Eye, c.Target, c.Up)
}

// Projection returns the eye-to-clip matrix.
func (c Camera) Projection() Mat4 {
	return Perspective(c.FovY, c.Aspect(), c.Near, c.Far)
}

// ViewProjection returns the world-to-clip matrix.
func (c Camera) ViewProjection() Mat4 {
	return c.Projection().Mul(c.View())
}

// Direction returns the unit view direction.
func (c Camera) Direction() Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

// Viewport returns (x, y, width, height) as floats for shader uniforms.
func (c Camera) Viewport() [4]float32 {
	return [4]float32{0, 0, float32(c.Width), float32(c.Height)}
}

// Project maps a world-space point to pixel coordinates and [0,1] depth.
// ok is false for points behind the eye.
func (c Camera) Project(p Vec3) (x, y, depth float32, ok bool) {
	clip := c.ViewProjection().MulVec4(p.Extend(1))
	if clip.W <= 0 {
		return 0, 0, 0, false
	}
	inv := 1 / clip.W
	x = (clip.X*inv*0.5 + 0.5) * float32(c.Width)
	y = (clip.Y*inv*0.5 + 0.5) * float32(c.Height)
	depth = clip.Z*inv*0.5 + 0.5
	return x, y, depth, true
}
