package types

import "github.com/go-gl/mathgl/mgl32"

// A 4x4 matrix stored in column-major order.
type Mat4 mgl32.Mat4

// Create a 4x4 identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Build a matrix whose first three columns are the supplied basis vectors
// and whose translation column is the supplied origin.
func FromBasis(u, v, w, origin Vec3) Mat4 {
	return Mat4{
		u[0], u[1], u[2], 0,
		v[0], v[1], v[2], 0,
		w[0], w[1], w[2], 0,
		origin[0], origin[1], origin[2], 1,
	}
}

// Multiply two matrices.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Multiply matrix with a 4 component column vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v)))
}

// Transform a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Transform a direction (w = 0).
func (m Mat4) TransformDir(d Vec3) Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// Calculate matrix inverse. A singular matrix yields the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Returns true if the matrix is (approximately) the identity matrix.
func (m Mat4) IsIdent() bool {
	return mgl32.Mat4(m).ApproxEqualThreshold(mgl32.Ident4(), 1e-4)
}

// Calculate the matrix used for transforming surface normals (the inverse
// transpose of m).
func (m Mat4) NormalMat() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv().Transpose())
}
