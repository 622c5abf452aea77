package dpix

import "testing"

func TestTransfer_Compute(t *testing.T) {
	ramp := Transfer{V1: 0, V2: 1, Near: 0.2, Far: 0.8}
	tests := []struct {
		name string
		tr   Transfer
		in   float32
		want float32
	}{
		{"below near", ramp, 0.1, 0},
		{"above far", ramp, 0.9, 1},
		{"midpoint", ramp, 0.5, 0.5},
		{"at near", ramp, 0.2, 0},
		{"inverted range is constant", Transfer{V1: 0.3, V2: 1, Near: 1, Far: 0}, 0.5, 0.3},
		{"degenerate range", Transfer{V1: 0.3, V2: 1, Near: 0.5, Far: 0.5}, 0.5, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.tr.Compute(tt.in)
			if d := got - tt.want; d > 1e-6 || d < -1e-6 {
				t.Errorf("Compute(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTransfer_ScaledArray(t *testing.T) {
	tr := Transfer{V1: 0, V2: 1, Near: 0.1, Far: 0.9}
	got := tr.ScaledArray(2, 6)
	want := [4]float32{2, 6, 0.1, 0.9}
	if got != want {
		t.Errorf("ScaledArray(2, 6) = %v, want %v", got, want)
	}
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle([]byte(`
name = "ink"
base_width = 3.0

[transfer_functions.focus_transfer]
v1 = 1.0
v2 = 0.0
near = 0.0
far = 0.5
`))
	if err != nil {
		t.Fatalf("ParseStyle() error = %v", err)
	}
	if s.Name != "ink" || s.BaseWidth != 3 {
		t.Errorf("style = %+v", s)
	}
	want := Transfer{V1: 1, V2: 0, Near: 0, Far: 0.5}
	if got := s.Transfer(FocusTransfer); got != want {
		t.Errorf("focus transfer = %+v, want %+v", got, want)
	}
	if got, ok := s.TransferByName("line_width"); !ok || got != DefaultStyle().Transfer(LineWidth) {
		t.Errorf("line_width = %+v, %v; want default", got, ok)
	}

	if _, err := ParseStyle([]byte("[transfer_functions.nope]\nv1 = 1.0\n")); err == nil {
		t.Error("unknown transfer function should fail")
	}
}
