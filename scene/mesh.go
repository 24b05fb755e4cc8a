package scene

import (
	"fmt"

	"github.com/fogleman/fauxgl"
	"github.com/goksuguvendiren/optix-renderer/types"
)

// Load the mesh triangles from a wavefront obj file, applying the mesh
// transform to every vertex. Normals are only kept if every triangle
// provides them.
func (m *TriangleMesh) Load(path string) error {
	src, err := fauxgl.LoadOBJ(path)
	if err != nil {
		return fmt.Errorf("scene: could not load mesh %s: %w", path, err)
	}
	if len(src.Triangles) == 0 {
		return fmt.Errorf("%w: %s", ErrMeshNotLoaded, path)
	}

	xform := m.Transform
	if xform == (types.Mat4{}) {
		xform = types.Ident4()
	}
	normalXform := xform.NormalMat()

	m.Triangles = make([]Triangle, len(src.Triangles))
	m.HasNormals = true
	for triIndex, tri := range src.Triangles {
		vertices := [3]fauxgl.Vertex{tri.V1, tri.V2, tri.V3}
		out := &m.Triangles[triIndex]
		for i, v := range vertices {
			out.Vertices[i] = xform.TransformPoint(fromFauxgl(v.Position))
			out.UVs[i] = types.XY(float32(v.Texture.X), float32(v.Texture.Y))

			n := fromFauxgl(v.Normal)
			if n.IsZero() {
				m.HasNormals = false
				continue
			}
			out.Normals[i] = normalXform.TransformDir(n).Normalize()
		}

		if triIndex == 0 {
			m.BBox = [2]types.Vec3{out.Vertices[0], out.Vertices[0]}
		}
		for _, v := range out.Vertices {
			m.BBox[0] = types.MinVec3(m.BBox[0], v)
			m.BBox[1] = types.MaxVec3(m.BBox[1], v)
		}
	}

	if !m.HasNormals {
		for i := range m.Triangles {
			m.Triangles[i].Normals = [3]types.Vec3{}
		}
	}

	return nil
}

func fromFauxgl(v fauxgl.Vector) types.Vec3 {
	return types.XYZ(float32(v.X), float32(v.Y), float32(v.Z))
}
