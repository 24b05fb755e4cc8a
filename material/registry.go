package material

import "github.com/goksuguvendiren/optix-renderer/scene"

// Registry maps material names to materials. Every geometry instance that
// references a name shares the same material and program handle.
type Registry struct {
	binder Binder
	byName map[string]Material
	order  []string
}

func NewRegistry(binder Binder) *Registry {
	return &Registry{
		binder: binder,
		byName: make(map[string]Material),
	}
}

// Register a material description. Registering a name twice returns the
// material created by the first call.
func (r *Registry) Register(desc scene.MaterialDesc) (Material, error) {
	if mat, exists := r.byName[desc.Name]; exists {
		return mat, nil
	}

	mat, err := New(desc, r.binder)
	if err != nil {
		return nil, err
	}

	r.byName[desc.Name] = mat
	r.order = append(r.order, desc.Name)
	return mat, nil
}

// Lookup a material by name.
func (r *Registry) Lookup(name string) (Material, bool) {
	mat, exists := r.byName[name]
	return mat, exists
}

// Get registered materials in registration order.
func (r *Registry) Materials() []Material {
	out := make([]Material, len(r.order))
	for index, name := range r.order {
		out[index] = r.byName[name]
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}
