package material

import (
	"github.com/goksuguvendiren/optix-renderer/scene"
	"github.com/goksuguvendiren/optix-renderer/types"
)

const KindBlinnPhong = "Blinn-Phong"

type blinnPhong struct {
	name   string
	handle Handle

	diffuse  types.Vec3
	specular types.Vec3
	exponent float32
	emission types.Vec3
}

func newBlinnPhong(desc scene.MaterialDesc, handle Handle) Material {
	return &blinnPhong{
		name:     desc.Name,
		handle:   handle,
		diffuse:  desc.DiffuseColor,
		specular: desc.SpecularColor,
		exponent: desc.Exponent,
		emission: desc.Emission,
	}
}

func (m *blinnPhong) Name() string   { return m.name }
func (m *blinnPhong) Kind() string   { return KindBlinnPhong }
func (m *blinnPhong) Handle() Handle { return m.handle }
func (m *blinnPhong) Emissive() bool { return !m.emission.IsZero() }

func (m *blinnPhong) Apply(inst Instance) error {
	if err := inst.SetVariable("diffuse_color", m.diffuse); err != nil {
		return err
	}
	if err := inst.SetVariable("specular_color", m.specular); err != nil {
		return err
	}
	if err := inst.SetVariable("exponent", m.exponent); err != nil {
		return err
	}
	if m.Emissive() {
		return inst.SetVariable("emission", m.emission)
	}
	return nil
}
