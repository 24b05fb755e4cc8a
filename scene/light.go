package scene

import (
	"fmt"

	"github.com/goksuguvendiren/optix-renderer/types"
)

// A point light emitting uniformly in all directions.
type PointLight struct {
	Position types.Vec3
	Emission types.Vec3
}

// A parallelogram-shaped light spanned by two edge vectors.
type AreaLight struct {
	Corner   types.Vec3
	V1       types.Vec3
	V2       types.Vec3
	Normal   types.Vec3
	Emission types.Vec3
}

// Create a new area light. The light normal is derived from the edge
// vectors which must be non-zero and non-parallel.
func NewAreaLight(corner, v1, v2, emission types.Vec3) (AreaLight, error) {
	n := v1.Cross(v2)
	if v1.IsZero() || v2.IsZero() || n.IsZero() {
		return AreaLight{}, fmt.Errorf("%w: area light edges %v and %v do not span a plane", ErrDegenerateGeometry, v1, v2)
	}

	return AreaLight{
		Corner:   corner,
		V1:       v1,
		V2:       v2,
		Normal:   n.Normalize(),
		Emission: emission,
	}, nil
}

// Area of the light surface.
func (l AreaLight) Area() float32 {
	return l.V1.Cross(l.V2).Len()
}
