package scene

import (
	"bytes"
	"fmt"

	"github.com/barkimedes/go-deepcopy"
	"github.com/goksuguvendiren/optix-renderer/types"
	"github.com/olekukonko/tablewriter"
)

const (
	DefaultSceneEpsilon float32 = 1e-3
	DefaultRRBeginDepth uint32  = 1
	DefaultSampleName           = "optixPathTracer"
)

// Render settings shared by every program bound to the render context.
type Settings struct {
	// Output plane dimensions.
	Width  uint32
	Height uint32

	// Samples per pixel.
	SPP uint32

	// Path depth at which russian roulette path termination kicks in.
	RRBeginDepth uint32

	// Offset used for spawning secondary rays.
	SceneEpsilon float32

	// Color written by the exception program.
	BadColor types.Vec3

	// Color returned by the miss program.
	BackgroundColor types.Vec3
}

// Program file references for the fixed pipeline stages. The exception
// program lives in the ray generation program file. Relative program paths
// are looked up in the SampleName folder of the samples directory.
type Programs struct {
	SampleName string

	RayGenerationFile string
	RayGeneration     string
	Exception         string
	MissFile          string
	Miss              string
}

// Geometric primitives.
type Geometry struct {
	Parallelograms []Parallelogram
	Meshes         []TriangleMesh
}

// Scene aggregates everything needed to describe a frame. A scene is plain
// data; materializing it on a device is the job of the render context.
type Scene struct {
	Cameras     []*Camera
	PointLights []PointLight
	AreaLights  []AreaLight
	Materials   []MaterialDesc
	Geometry    Geometry

	Settings Settings
	Programs Programs
}

func NewScene() *Scene {
	return &Scene{
		Cameras:     make([]*Camera, 0),
		PointLights: make([]PointLight, 0),
		AreaLights:  make([]AreaLight, 0),
		Materials:   make([]MaterialDesc, 0),
		Settings: Settings{
			RRBeginDepth: DefaultRRBeginDepth,
			SceneEpsilon: DefaultSceneEpsilon,
		},
		Programs: Programs{
			SampleName: DefaultSampleName,
		},
	}
}

// Get the active camera.
func (s *Scene) Camera() *Camera {
	if len(s.Cameras) == 0 {
		return nil
	}
	return s.Cameras[0]
}

// Attach a camera to the scene. The first camera becomes the active one.
func (s *Scene) AddCamera(camera *Camera) {
	s.Cameras = append(s.Cameras, camera)
}

// Add a point light to the scene.
func (s *Scene) AddPointLight(light PointLight) {
	s.PointLights = append(s.PointLights, light)
}

// Add an area light to the scene.
func (s *Scene) AddAreaLight(light AreaLight) {
	s.AreaLights = append(s.AreaLights, light)
}

// Add a material definition to the scene.
func (s *Scene) AddMaterial(material MaterialDesc) error {
	if _, exists := s.Material(material.Name); exists {
		return fmt.Errorf("%w: %q", ErrDuplicateMaterial, material.Name)
	}
	s.Materials = append(s.Materials, material)
	return nil
}

// Lookup a material definition by name.
func (s *Scene) Material(name string) (MaterialDesc, bool) {
	for _, mat := range s.Materials {
		if mat.Name == name {
			return mat, true
		}
	}
	return MaterialDesc{}, false
}

// Add a parallelogram to the scene.
func (s *Scene) AddParallelogram(p Parallelogram) {
	s.Geometry.Parallelograms = append(s.Geometry.Parallelograms, p)
}

// Add a triangle mesh to the scene.
func (s *Scene) AddMesh(m TriangleMesh) {
	s.Geometry.Meshes = append(s.Geometry.Meshes, m)
}

// Create a deep copy of the scene.
func (s *Scene) Clone() (*Scene, error) {
	clone, err := deepcopy.Anything(s)
	if err != nil {
		return nil, fmt.Errorf("scene: could not clone scene: %w", err)
	}
	return clone.(*Scene), nil
}

// Build a tabular representation of scene statistics.
func (s *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Element", "Name", "Details"})

	for index, cam := range s.Cameras {
		table.Append([]string{"Camera", fmt.Sprintf("#%d", index), fmt.Sprintf("eye %v lookat %v up %v", cam.Eye, cam.LookAt, cam.Up)})
	}
	for index, l := range s.PointLights {
		table.Append([]string{"Point light", fmt.Sprintf("#%d", index), fmt.Sprintf("position %v emission %v", l.Position, l.Emission)})
	}
	for index, l := range s.AreaLights {
		table.Append([]string{"Area light", fmt.Sprintf("#%d", index), fmt.Sprintf("corner %v normal %v emission %v", l.Corner, l.Normal, l.Emission)})
	}
	for _, m := range s.Materials {
		table.Append([]string{"Material", m.Name, fmt.Sprintf("%s (%s: %s/%s)", m.Type, m.Source, m.ClosestHit, m.AnyHit)})
	}
	for index, p := range s.Geometry.Parallelograms {
		table.Append([]string{"Parallelogram", fmt.Sprintf("#%d", index), fmt.Sprintf("material %s", p.Material)})
	}
	for _, m := range s.Geometry.Meshes {
		table.Append([]string{"Mesh", m.File, fmt.Sprintf("material %s, %d triangles", m.Material, len(m.Triangles))})
	}
	table.SetFooter([]string{
		"Output",
		fmt.Sprintf("%dx%d", s.Settings.Width, s.Settings.Height),
		fmt.Sprintf("%d spp", s.Settings.SPP),
	})

	table.Render()
	return buf.String()
}
