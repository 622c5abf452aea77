package dpix

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestMat4_MulOrder(t *testing.T) {
	m := Translate4(V3(1, 0, 0)).Mul(Scale4(V3(2, 2, 2)))
	got := m.TransformPoint(V3(1, 1, 1))
	if !got.Approx(V3(3, 2, 2), 1e-6) {
		t.Errorf("T*S applied to (1,1,1) = %v, want (3,2,2)", got)
	}
}

func TestMat4_Rotate(t *testing.T) {
	tests := []struct {
		name  string
		angle float32
		axis  Vec3
		in    Vec3
		want  Vec3
	}{
		{"z quarter", math32.Pi / 2, V3(0, 0, 1), V3(1, 0, 0), V3(0, 1, 0)},
		{"x half", math32.Pi, V3(1, 0, 0), V3(0, 1, 0), V3(0, -1, 0)},
		{"unnormalized axis", math32.Pi / 2, V3(0, 3, 0), V3(0, 0, 1), V3(1, 0, 0)},
		{"zero axis", 1, Vec3{}, V3(1, 2, 3), V3(1, 2, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rotate4(tt.angle, tt.axis).TransformPoint(tt.in)
			if !got.Approx(tt.want, 1e-5) {
				t.Errorf("Rotate4(%v, %v) * %v = %v, want %v", tt.angle, tt.axis, tt.in, got, tt.want)
			}
		})
	}
}

func TestMat4_Inverse(t *testing.T) {
	m := Translate4(V3(1, -2, 3)).Mul(Rotate4(0.7, V3(1, 1, 0))).Mul(Scale4(V3(2, 3, 4)))
	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("Inverse() reported singular matrix")
	}
	if got := m.Mul(inv); !got.Approx(Identity4(), 1e-5) {
		t.Errorf("m * inverse(m) = %v, want identity", got)
	}

	var singular Mat4
	if _, ok := singular.Inverse(); ok {
		t.Error("Inverse() of zero matrix should report singular")
	}
}

func TestMat4_NormalMatrix(t *testing.T) {
	m := Scale4(V3(2, 1, 1))
	// The plane x+y=0 has normal (1,1,0); after scaling x by 2 the plane
	// normal becomes (1,2,0) up to scale.
	n := m.NormalMatrix().TransformDir(V3(1, 1, 0)).Normalize()
	want := V3(1, 2, 0).Normalize()
	if !n.Approx(want, 1e-5) {
		t.Errorf("normal = %v, want %v", n, want)
	}
}

func TestCamera_Project(t *testing.T) {
	cam := NewCamera(200, 100)
	x, y, depth, ok := cam.Project(V3(0, 0, 0))
	if !ok {
		t.Fatal("origin should be in front of the camera")
	}
	if math32.Abs(x-100) > 1e-3 || math32.Abs(y-50) > 1e-3 {
		t.Errorf("Project(origin) = (%v, %v), want (100, 50)", x, y)
	}
	if depth <= 0 || depth >= 1 {
		t.Errorf("depth = %v, want in (0,1)", depth)
	}
	if _, _, _, ok := cam.Project(V3(0, 0, 10)); ok {
		t.Error("point behind the eye should not project")
	}
}
