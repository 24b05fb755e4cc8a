package reader

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/goksuguvendiren/optix-renderer/types"
)

// The scene document layout. Every field is kept raw so that missing and
// malformed values can be reported together with their document path.
type jsonScene struct {
	Camera          *jsonCamera
	Lights          json.RawMessage
	Plane           *jsonPlane
	SPP             json.RawMessage
	BadColor        json.RawMessage
	BackgroundColor json.RawMessage
	SceneEpsilon    json.RawMessage
	RRBeginDepth    json.RawMessage

	SampleName               json.RawMessage
	RayGenerationProgramFile json.RawMessage
	RayGenerationProgram     json.RawMessage
	ExceptionProgram         json.RawMessage
	MissProgramFile          json.RawMessage
	MissProgram              json.RawMessage

	Materials []jsonMaterial
	Geometry  *jsonGeometry
}

type jsonCamera struct {
	Eye    json.RawMessage
	Lookat json.RawMessage
	Up     json.RawMessage
}

type jsonPlane struct {
	Width  json.RawMessage
	Height json.RawMessage
}

type jsonLights struct {
	PointLights []jsonPointLight
	AreaLights  []jsonAreaLight
}

// A single entry of the array form of the Lights field.
type jsonLightEntry struct {
	PointLight *jsonPointLight
	AreaLight  *jsonAreaLight
}

type jsonPointLight struct {
	Position json.RawMessage
	Emission json.RawMessage
}

type jsonAreaLight struct {
	Corner   json.RawMessage
	V1       json.RawMessage
	V2       json.RawMessage
	Emission json.RawMessage
}

type jsonMaterial struct {
	Type          json.RawMessage
	Name          json.RawMessage
	Source        json.RawMessage
	ClosestHit    json.RawMessage
	AnyHit        json.RawMessage
	DiffuseColor  json.RawMessage
	SpecularColor json.RawMessage
	Exponent      json.RawMessage
	Emission      json.RawMessage
}

type jsonGeometry struct {
	Parallelograms []jsonParallelogram
	Meshes         []jsonMesh
}

type jsonParallelogram struct {
	Anchor   json.RawMessage
	V1       json.RawMessage
	V2       json.RawMessage
	Material json.RawMessage
	Color    json.RawMessage
}

type jsonMesh struct {
	File      json.RawMessage
	Material  json.RawMessage
	Transform json.RawMessage
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Decode a raw field into dst. Returns false if the field is absent and
// not required.
func decodeField(raw json.RawMessage, path string, required bool, dst interface{}) (bool, error) {
	if isAbsent(raw) {
		if required {
			return false, fmt.Errorf("%w %s", ErrMissingField, path)
		}
		return false, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%w %s: %s", ErrMalformedField, path, err)
	}
	return true, nil
}

func decodeVec3(raw json.RawMessage, path string, required bool) (types.Vec3, error) {
	var v []float32
	present, err := decodeField(raw, path, required, &v)
	if err != nil || !present {
		return types.Vec3{}, err
	}
	if len(v) != 3 {
		return types.Vec3{}, fmt.Errorf("%w %s: expected a 3-element array; got %d elements", ErrMalformedField, path, len(v))
	}
	return types.XYZ(v[0], v[1], v[2]), nil
}

// Decode a 4x4 transformation written as 16 numbers in row-major order.
func decodeMat4(raw json.RawMessage, path string) (types.Mat4, error) {
	var v []float32
	present, err := decodeField(raw, path, false, &v)
	if err != nil {
		return types.Mat4{}, err
	}
	if !present {
		return types.Ident4(), nil
	}
	if len(v) != 16 {
		return types.Mat4{}, fmt.Errorf("%w %s: expected a 16-element array; got %d elements", ErrMalformedField, path, len(v))
	}

	var m types.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			m[col*4+row] = v[row*4+col]
		}
	}
	return m, nil
}

func decodeString(raw json.RawMessage, path string, required bool) (string, error) {
	var s string
	if _, err := decodeField(raw, path, required, &s); err != nil {
		return "", err
	}
	if required && s == "" {
		return "", fmt.Errorf("%w %s", ErrMissingField, path)
	}
	return s, nil
}

func decodeUint32(raw json.RawMessage, path string, required bool, def uint32) (uint32, error) {
	var v uint32
	present, err := decodeField(raw, path, required, &v)
	if err != nil || !present {
		return def, err
	}
	return v, nil
}

func decodeFloat32(raw json.RawMessage, path string, required bool, def float32) (float32, error) {
	var v float32
	present, err := decodeField(raw, path, required, &v)
	if err != nil || !present {
		return def, err
	}
	return v, nil
}
