package material

import (
	"fmt"
	"sort"

	"github.com/goksuguvendiren/optix-renderer/scene"
)

// Handle identifies a set of closest/any hit programs that have been bound
// on a render device.
type Handle uint32

// Instance is a geometry instance that accepts per-instance shading variables.
type Instance interface {
	SetVariable(name string, value interface{}) error
}

// Binder compiles the hit programs for a material and returns a handle to them.
type Binder interface {
	BindMaterial(source, closestHit, anyHit string) (Handle, error)
}

// Material is a named shading model that knows how to set its parameters on
// a geometry instance.
type Material interface {
	Name() string
	Kind() string
	Handle() Handle
	Emissive() bool

	// Set the material parameters on a geometry instance.
	Apply(Instance) error
}

// A Factory creates a material of a particular kind from a parsed description
// and the handle of its bound programs.
type Factory func(desc scene.MaterialDesc, handle Handle) Material

var factories = map[string]Factory{
	KindBlinnPhong: newBlinnPhong,
}

// Returns true if materials of the given kind can be instantiated.
func Supported(kind string) bool {
	_, ok := factories[kind]
	return ok
}

// Returns a sorted list of the supported material kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Bind the programs referenced by desc and create a new material.
func New(desc scene.MaterialDesc, binder Binder) (Material, error) {
	factory, ok := factories[desc.Type]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedType, desc.Type)
	}
	if desc.Name == "" {
		return nil, ErrMissingName
	}
	if binder == nil {
		return nil, ErrNilBinder
	}

	handle, err := binder.BindMaterial(desc.Source, desc.ClosestHit, desc.AnyHit)
	if err != nil {
		return nil, fmt.Errorf("material: could not bind programs for %q: %w", desc.Name, err)
	}

	return factory(desc, handle), nil
}
