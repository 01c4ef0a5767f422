package geometry

import (
	"math"
	"testing"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestMatrixInvertRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"identity", Identity()},
		{"translate", Translate(12.5, -300)},
		{"scale", ScaleXY(2.5, 0.4)},
		{"sheared", Matrix{A: 1.2, B: 0.3, C: -0.7, D: 2, E: 40, F: -9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, ok := tt.m.Invert()
			if !ok {
				t.Fatalf("Invert() reported singular for %+v", tt.m)
			}

			p := V(123.25, -87.5)
			back := inv.Apply(tt.m.Apply(p))
			if !approxEqual(back.X, p.X, 1e-12) || !approxEqual(back.Y, p.Y, 1e-12) {
				t.Errorf("round trip = %+v, want %+v", back, p)
			}

			id := tt.m.Multiply(inv)
			if !approxEqual(id.A, 1, 1e-12) || !approxEqual(id.D, 1, 1e-12) ||
				math.Abs(id.B) > 1e-12 || math.Abs(id.C) > 1e-12 ||
				math.Abs(id.E) > 1e-9 || math.Abs(id.F) > 1e-9 {
				t.Errorf("m × inv = %+v, want identity", id)
			}
		})
	}
}

func TestMatrixInvertSingular(t *testing.T) {
	singular := []Matrix{
		{},
		{A: 1, B: 2, C: 2, D: 4},
		{A: math.Inf(1), D: 1},
		{A: math.NaN(), D: 1},
	}
	for _, m := range singular {
		if _, ok := m.Invert(); ok {
			t.Errorf("Invert(%+v) should report singular", m)
		}
	}
}

func TestMatrixMultiplyOrder(t *testing.T) {
	// scale first, then translate
	m := Translate(10, 20).Multiply(ScaleXY(2, 3))
	got := m.Apply(V(1, 1))
	if got.X != 12 || got.Y != 23 {
		t.Errorf("Apply = %+v, want {12 23}", got)
	}
}
