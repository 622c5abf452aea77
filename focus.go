package dpix

import "github.com/chewxy/math32"

// FocusParams returns the focal point of the priority pass as a shader
// uniform: (x, y, radius, enabled) in viewport pixels. Distances to the
// focal point are measured in units of radius, half the viewport diagonal.
func (s *Settings) FocusParams(cam Camera, scene *Scene) [4]float32 {
	w, h := float32(cam.Width), float32(cam.Height)
	radius := 0.5 * math32.Hypot(w, h)
	at := func(x, y float32) [4]float32 {
		return [4]float32{x, y, radius, 1}
	}

	switch s.FocusMode {
	case FocusCamera:
		return at(w/2, h/2)
	case FocusScreen:
		return at(s.FocusPoint.X*w, s.FocusPoint.Y*h)
	case FocusWorld:
		if x, y, _, ok := cam.Project(s.FocusPoint); ok {
			return at(x, y)
		}
	case FocusObject:
		if lo, hi, ok := scene.Bounds(); ok {
			if x, y, _, ok := cam.Project(lo.Add(hi).Mul(0.5)); ok {
				return at(x, y)
			}
		}
		return at(w/2, h/2)
	}
	return [4]float32{0, 0, radius, 0}
}
