package renderer

import (
	"math"

	"github.com/goksuguvendiren/optix-renderer/types"
)

// Arcball maps 2D cursor positions in normalized window coordinates to
// rotations on a virtual sphere.
type Arcball struct {
	Center types.Vec2
	Radius float32
}

func DefaultArcball() Arcball {
	return Arcball{
		Center: types.XY(0.5, 0.5),
		Radius: 0.45,
	}
}

// Project a normalized window position (y pointing down) onto the unit
// sphere. Points outside the sphere are projected onto its silhouette.
func (a Arcball) ToSphere(v types.Vec2) types.Vec3 {
	x := (v[0] - a.Center[0]) / a.Radius
	y := (1 - v[1] - a.Center[1]) / a.Radius

	var z float32
	len2 := x*x + y*y
	if len2 > 1 {
		l := float32(math.Sqrt(float64(len2)))
		x, y = x/l, y/l
	} else {
		z = float32(math.Sqrt(float64(1 - len2)))
	}
	return types.XYZ(x, y, z)
}

// Get the rotation that takes the sphere projection of from onto the sphere
// projection of to.
func (a Arcball) Rotate(from, to types.Vec2) types.Mat4 {
	return types.QuatBetween(a.ToSphere(from), a.ToSphere(to)).Mat4()
}
