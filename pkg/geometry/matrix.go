package geometry

// Matrix is a 2D affine transform laid out like an SVGMatrix:
//
//	| A C E |
//	| B D F |
//	| 0 0 1 |
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity transform
func Identity() Matrix {
	return Matrix{A: 1, D: 1}
}

// Translate returns a pure translation
func Translate(tx, ty float64) Matrix {
	return Matrix{A: 1, D: 1, E: tx, F: ty}
}

// ScaleXY returns a pure axis-aligned scale
func ScaleXY(sx, sy float64) Matrix {
	return Matrix{A: sx, D: sy}
}

// IsZero reports whether m is the zero value (no transform configured)
func (m Matrix) IsZero() bool {
	return m == Matrix{}
}

// Apply maps p through m
func (m Matrix) Apply(p Vec2) Vec2 {
	return Vec2{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Multiply returns m × n, i.e. the transform that applies n first and then m
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Determinant returns the determinant of the linear part
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Invert returns the algebraic inverse of m. ok is false when m is singular
// or not finite, in which case the returned matrix must not be used.
func (m Matrix) Invert() (inv Matrix, ok bool) {
	det := m.Determinant()
	if det == 0 || !isFinite(det) {
		return Matrix{}, false
	}
	inv = Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}
	return inv, true
}
