package tracer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/goksuguvendiren/optix-renderer/scene"
	"github.com/goksuguvendiren/optix-renderer/types"
)

// Device-side record layouts. All vectors are padded to 16 bytes to match
// the alignment of 3-component vectors in device programs.
type pointLightRecord struct {
	Position [4]float32
	Emission [4]float32
}

type areaLightRecord struct {
	Corner   [4]float32
	V1       [4]float32
	V2       [4]float32
	Normal   [4]float32
	Emission [4]float32
}

var (
	pointLightRecordSize = binary.Size(pointLightRecord{})
	areaLightRecordSize  = binary.Size(areaLightRecord{})
)

func float4(v types.Vec3) [4]float32 {
	return [4]float32{v[0], v[1], v[2], 0}
}

func pointLightRecords(lights []scene.PointLight) []pointLightRecord {
	out := make([]pointLightRecord, len(lights))
	for index, l := range lights {
		out[index] = pointLightRecord{
			Position: float4(l.Position),
			Emission: float4(l.Emission),
		}
	}
	return out
}

func areaLightRecords(lights []scene.AreaLight) []areaLightRecord {
	out := make([]areaLightRecord, len(lights))
	for index, l := range lights {
		out[index] = areaLightRecord{
			Corner:   float4(l.Corner),
			V1:       float4(l.V1),
			V2:       float4(l.V2),
			Normal:   float4(l.Normal),
			Emission: float4(l.Emission),
		}
	}
	return out
}

// Encode records into dst using the little-endian device byte order.
func packRecords(dst []byte, records interface{}) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, records); err != nil {
		return fmt.Errorf("tracer: could not encode records: %w", err)
	}
	if buf.Len() != len(dst) {
		return fmt.Errorf("%w: encoded %d bytes into a buffer of %d bytes", ErrBufferSize, buf.Len(), len(dst))
	}
	copy(dst, buf.Bytes())
	return nil
}

// Flatten triangle mesh attributes into vertex, normal and texcoord streams.
func meshStreams(mesh *scene.TriangleMesh) (vertices []types.Vec3, normals []types.Vec3, uvs []types.Vec2) {
	vertices = make([]types.Vec3, 0, 3*len(mesh.Triangles))
	uvs = make([]types.Vec2, 0, 3*len(mesh.Triangles))
	if mesh.HasNormals {
		normals = make([]types.Vec3, 0, 3*len(mesh.Triangles))
	}
	for _, tri := range mesh.Triangles {
		vertices = append(vertices, tri.Vertices[:]...)
		uvs = append(uvs, tri.UVs[:]...)
		if mesh.HasNormals {
			normals = append(normals, tri.Normals[:]...)
		}
	}
	return vertices, normals, uvs
}
