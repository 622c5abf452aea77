package dpix

// Transfer is a clamped linear ramp: values below Near map to V1, values
// above Far map to V2, and values in between are interpolated. A ramp
// with Near > Far is constant V1.
type Transfer struct {
	V1   float32 `toml:"v1"`
	V2   float32 `toml:"v2"`
	Near float32 `toml:"near"`
	Far  float32 `toml:"far"`
}

// Compute evaluates the ramp at f.
func (t Transfer) Compute(f float32) float32 {
	switch {
	case t.Near > t.Far, f < t.Near:
		return t.V1
	case f > t.Far:
		return t.V2
	case t.Far == t.Near:
		return t.V1
	}
	alpha := (f - t.Near) / (t.Far - t.Near)
	return t.V1 + (t.V2-t.V1)*alpha
}

// Array packs the ramp into a vec4 uniform (v1, v2, near, far).
func (t Transfer) Array() [4]float32 {
	return [4]float32{t.V1, t.V2, t.Near, t.Far}
}

// ScaledArray packs the ramp with its endpoint values remapped from [0,1]
// into [lo, hi].
func (t Transfer) ScaledArray(lo, hi float32) [4]float32 {
	a := t.Array()
	a[0] = (1-t.V1)*lo + t.V1*hi
	a[1] = (1-t.V2)*lo + t.V2*hi
	return a
}
