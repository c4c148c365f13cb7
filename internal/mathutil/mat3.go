package mathutil

// Mat3 is a row-major 3×3 matrix.
type Mat3 [9]float64

func Mat3Identity() Mat3 { return Mat3Diag(1, 1, 1) }

func Mat3Diag(x, y, z float64) Mat3 {
	return Mat3{0: x, 4: y, 8: z}
}

func (m Mat3) row(r int) Vec3 { return Vec3{m[r*3], m[r*3+1], m[r*3+2]} }

func (m Mat3) col(c int) Vec3 { return Vec3{m[c], m[3+c], m[6+c]} }

// Mat3Mul returns a × b.
func Mat3Mul(a, b Mat3) Mat3 {
	var m Mat3
	for i := range m {
		m[i] = a.row(i / 3).Dot(b.col(i % 3))
	}
	return m
}

// MulVec3 returns m × v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{m.row(0).Dot(v), m.row(1).Dot(v), m.row(2).Dot(v)}
}

// Det is the scalar triple product of the rows.
func (m Mat3) Det() float64 {
	return m.row(0).Dot(m.row(1).Cross(m.row(2)))
}

// Inverse returns the inverse of m, or the identity when m is singular.
// The rows of the inverse are the cross products of m's columns over Det.
func (m Mat3) Inverse() Mat3 {
	d := m.Det()
	if d == 0 {
		return Mat3Identity()
	}
	c0, c1, c2 := m.col(0), m.col(1), m.col(2)
	var inv Mat3
	for r, v := range [3]Vec3{c1.Cross(c2), c2.Cross(c0), c0.Cross(c1)} {
		copy(inv[r*3:], v.Scale(1/d).Slice())
	}
	return inv
}
