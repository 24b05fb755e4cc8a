package scene

import (
	"fmt"

	"github.com/goksuguvendiren/optix-renderer/types"
)

// A parallelogram anchored at a point and spanned by two offset vectors.
type Parallelogram struct {
	Anchor types.Vec3
	V1     types.Vec3
	V2     types.Vec3

	// Name of the material used for shading; resolved when the geometry
	// is materialized.
	Material string

	// Fallback display color.
	Color types.Vec3
}

// The plane equation and scaled edge vectors used by the parallelogram
// intersection program.
type PlaneEquation struct {
	// Plane normal in xyz and the plane offset in w.
	Plane types.Vec4

	// Edge vectors scaled by the reciprocal of their squared length so that
	// projecting a hit point on them yields barycentric coordinates.
	V1 types.Vec3
	V2 types.Vec3
}

// Compute the plane equation for the parallelogram.
func (p Parallelogram) PlaneEquation() (PlaneEquation, error) {
	n := p.V1.Cross(p.V2)
	if p.V1.IsZero() || p.V2.IsZero() || n.IsZero() {
		return PlaneEquation{}, fmt.Errorf("%w: parallelogram edges %v and %v do not span a plane", ErrDegenerateGeometry, p.V1, p.V2)
	}

	normal := n.Normalize()
	return PlaneEquation{
		Plane: normal.Vec4(normal.Dot(p.Anchor)),
		V1:    p.V1.Mul(1.0 / p.V1.Dot(p.V1)),
		V2:    p.V2.Mul(1.0 / p.V2.Dot(p.V2)),
	}, nil
}

// Axis-aligned bounds of the parallelogram.
func (p Parallelogram) BBox() [2]types.Vec3 {
	corners := [4]types.Vec3{
		p.Anchor,
		p.Anchor.Add(p.V1),
		p.Anchor.Add(p.V2),
		p.Anchor.Add(p.V1).Add(p.V2),
	}
	bbox := [2]types.Vec3{corners[0], corners[0]}
	for _, c := range corners[1:] {
		bbox[0] = types.MinVec3(bbox[0], c)
		bbox[1] = types.MaxVec3(bbox[1], c)
	}
	return bbox
}

// A single mesh triangle.
type Triangle struct {
	Vertices [3]types.Vec3
	Normals  [3]types.Vec3
	UVs      [3]types.Vec2
}

// A triangle mesh loaded from a wavefront obj file.
type TriangleMesh struct {
	// Path to the obj file, relative to the scene file.
	File string

	// Name of the material used for shading.
	Material string

	// Transformation applied to the mesh vertices while loading.
	Transform types.Mat4

	Triangles []Triangle
	BBox      [2]types.Vec3

	// True if every triangle carries vertex normals.
	HasNormals bool
}
