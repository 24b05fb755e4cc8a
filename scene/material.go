package scene

import "github.com/goksuguvendiren/optix-renderer/types"

// A parsed material definition. The Type field selects the material kind
// that will be instantiated when the scene is materialized.
type MaterialDesc struct {
	Type string
	Name string

	// Program source file and the closest/any hit entry points.
	Source     string
	ClosestHit string
	AnyHit     string

	DiffuseColor  types.Vec3
	SpecularColor types.Vec3
	Exponent      float32

	// Non-zero for light emitting surfaces.
	Emission types.Vec3
}

// Returns true if surfaces using this material emit light.
func (m MaterialDesc) IsEmissive() bool {
	return !m.Emission.IsZero()
}
