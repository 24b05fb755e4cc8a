package tracer

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/material"
	"github.com/goksuguvendiren/optix-renderer/scene"
	"github.com/goksuguvendiren/optix-renderer/types"
	"github.com/subchen/go-trylock/v2"
)

const (
	rayTypeCount    = 2
	entryPointCount = 1
	stackSize       = 1800

	radianceRayType = 0
	shadowRayType   = 1

	// Builder used for all acceleration structures.
	AccelerationBuilder = "Trbvh"

	GroupObject   = "top_object"
	GroupShadower = "top_shadower"

	OutputBufferName = "output_buffer"

	launchLockTimeout = time.Millisecond
)

// Options control how a scene is materialized on a device.
type Options struct {
	// Directory used for resolving relative program paths.
	ProgramDir string

	// Format of the output buffer.
	OutputFormat BufferFormat
}

// Instance is a geometry instance built by the context.
type Instance struct {
	Kind     GeometryKind
	Material string
	Emissive bool
	Geometry GeometryInstance
}

// Context owns a render device and translates scene entities into device
// resources. A context must not be copied.
type Context struct {
	logger log.Logger

	dev  Device
	opts Options

	closeOnce sync.Once
	closed    bool
	closeErr  error

	launchLock trylock.TryLocker

	scene       *scene.Scene
	initialized bool

	materials *material.Registry

	output      Buffer
	pointLights Buffer
	areaLights  Buffer
	meshBuffers []Buffer

	instances []Instance
}

// Create a context that takes ownership of dev.
func NewContext(dev Device, opts Options) *Context {
	return &Context{
		logger:     log.New(fmt.Sprintf("context (%s)", dev.Name())),
		dev:        dev,
		opts:       opts,
		launchLock: trylock.New(),
		materials:  material.NewRegistry(dev),
	}
}

// Get the scene snapshot used to initialize the context.
func (c *Context) Scene() *scene.Scene {
	return c.scene
}

// Get the list of geometry instances built so far.
func (c *Context) Instances() []Instance {
	out := make([]Instance, len(c.instances))
	copy(out, c.instances)
	return out
}

// Materialize a scene on the device. The scene is validated and all material
// references are resolved before any device state is created. If any step
// fails the context is closed.
func (c *Context) Init(sc *scene.Scene) (err error) {
	if c.closed {
		return ErrContextClosed
	}
	if c.initialized {
		return ErrAlreadyInitialized
	}

	defer func() {
		if err != nil {
			c.logger.Errorf("scene initialization failed: %v", err)
			c.Close()
		}
	}()

	if err = sc.Validate(); err != nil {
		return err
	}
	if err = resolveMaterialRefs(sc); err != nil {
		return err
	}
	if c.scene, err = sc.Clone(); err != nil {
		return err
	}

	start := time.Now()
	for _, step := range []struct {
		name string
		fn   func() error
	}{
		{"configure context", c.configure},
		{"bind programs", c.bindPrograms},
		{"upload lights", c.uploadLights},
		{"register materials", c.registerMaterials},
		{"build geometry", c.buildGeometry},
		{"build acceleration groups", c.buildGroups},
	} {
		c.logger.Debugf("%s", step.name)
		if err = step.fn(); err != nil {
			return fmt.Errorf("tracer: %s: %w", step.name, err)
		}
	}

	c.initialized = true
	c.logger.Noticef(
		"initialized scene with %d instances, %d materials and %d lights in %d ms",
		len(c.instances), c.materials.Len(), len(c.scene.PointLights)+len(c.scene.AreaLights), time.Since(start).Nanoseconds()/1e6,
	)
	return nil
}

// Every primitive must reference a material declared by the scene.
func resolveMaterialRefs(sc *scene.Scene) error {
	for index, p := range sc.Geometry.Parallelograms {
		if _, found := sc.Material(p.Material); !found {
			return fmt.Errorf("%w %q referenced by parallelogram %d", ErrUnknownMaterial, p.Material, index)
		}
	}
	for index, m := range sc.Geometry.Meshes {
		if _, found := sc.Material(m.Material); !found {
			return fmt.Errorf("%w %q referenced by mesh %d", ErrUnknownMaterial, m.Material, index)
		}
	}
	return nil
}

func (c *Context) configure() error {
	settings := c.scene.Settings

	err := c.dev.Configure(Config{
		RayTypes:    rayTypeCount,
		EntryPoints: entryPointCount,
		StackSize:   stackSize,
	})
	if err != nil {
		return err
	}

	vars := []struct {
		name  string
		value interface{}
	}{
		{"scene_epsilon", settings.SceneEpsilon},
		{"pathtrace_ray_type", uint32(radianceRayType)},
		{"pathtrace_shadow_ray_type", uint32(shadowRayType)},
		{"rr_begin_depth", settings.RRBeginDepth},
		{"sqrt_num_samples", uint32(math.Sqrt(float64(settings.SPP)))},
		{"bad_color", settings.BadColor},
		{"bg_color", settings.BackgroundColor},
	}
	for _, v := range vars {
		if err = c.dev.SetVariable(v.name, v.value); err != nil {
			return err
		}
	}

	return c.Resize(settings.Width, settings.Height)
}

// Resize (re)creates the output buffer.
func (c *Context) Resize(width, height uint32) error {
	if c.closed {
		return ErrContextClosed
	}

	buf, err := c.dev.NewBuffer(BufferDesc{
		Name:   OutputBufferName,
		Format: c.opts.OutputFormat,
		Width:  width,
		Height: height,
	})
	if err != nil {
		return err
	}
	if err = c.dev.SetVariable(OutputBufferName, buf); err != nil {
		buf.Release()
		return err
	}

	if c.output != nil {
		c.output.Release()
	}
	c.output = buf
	if c.scene != nil {
		c.scene.Settings.Width, c.scene.Settings.Height = width, height
	}
	return nil
}

func (c *Context) programPath(file string) string {
	if filepath.IsAbs(file) || c.opts.ProgramDir == "" {
		return file
	}
	return filepath.Join(c.opts.ProgramDir, file)
}

func (c *Context) bindPrograms() error {
	progs := c.scene.Programs
	for _, p := range []struct {
		stage       Stage
		file, entry string
	}{
		{StageRayGeneration, progs.RayGenerationFile, progs.RayGeneration},
		{StageException, progs.RayGenerationFile, progs.Exception},
		{StageMiss, progs.MissFile, progs.Miss},
	} {
		if err := c.dev.BindProgram(p.stage, c.programPath(p.file), p.entry); err != nil {
			return fmt.Errorf("%s program %q: %w", p.stage, p.entry, err)
		}
	}
	return nil
}

func (c *Context) uploadLights() error {
	if err := c.UploadPointLights(c.scene.PointLights); err != nil {
		return err
	}
	return c.UploadAreaLights(c.scene.AreaLights)
}

// Upload point lights replacing any previously uploaded set.
func (c *Context) UploadPointLights(lights []scene.PointLight) error {
	return c.uploadRecords(&c.pointLights, "point_lights", "num_point_lights", pointLightRecordSize, uint32(len(lights)), pointLightRecords(lights))
}

// Upload area lights replacing any previously uploaded set.
func (c *Context) UploadAreaLights(lights []scene.AreaLight) error {
	return c.uploadRecords(&c.areaLights, "area_lights", "num_area_lights", areaLightRecordSize, uint32(len(lights)), areaLightRecords(lights))
}

// Copy records into a user buffer using a single map/unmap cycle and update
// the record count variable. When the record count changes the records are
// written to a new buffer which replaces the bound one only after the write
// succeeds. On failure the previous binding and count stay in effect.
func (c *Context) uploadRecords(bound *Buffer, name, countVar string, recordSize int, count uint32, records interface{}) error {
	if c.closed {
		return ErrContextClosed
	}

	old := *bound
	if old != nil && old.Desc().Width == count {
		if err := WithLease(old, func(data []byte) error { return packRecords(data, records) }); err != nil {
			return err
		}
		return c.dev.SetVariable(countVar, count)
	}

	buf, err := c.dev.NewBuffer(BufferDesc{Name: name, Format: FormatUser, ElementSize: recordSize, Width: count})
	if err != nil {
		return err
	}
	if err = WithLease(buf, func(data []byte) error { return packRecords(data, records) }); err != nil {
		buf.Release()
		return err
	}
	if err = c.dev.SetVariable(name, buf); err != nil {
		buf.Release()
		return err
	}
	if err = c.dev.SetVariable(countVar, count); err != nil {
		if old != nil {
			if rebindErr := c.dev.SetVariable(name, old); rebindErr != nil {
				c.logger.Warningf("could not restore %q binding: %v", name, rebindErr)
			}
		}
		buf.Release()
		return err
	}

	if old != nil {
		old.Release()
	}
	*bound = buf
	return nil
}

func (c *Context) registerMaterials() error {
	for _, desc := range c.scene.Materials {
		if _, err := c.RegisterMaterial(desc); err != nil {
			return err
		}
	}
	return nil
}

// Register a material and bind its programs. Materials are registered once
// per name; the handle is shared by all instances referencing that name.
func (c *Context) RegisterMaterial(desc scene.MaterialDesc) (material.Handle, error) {
	if c.closed {
		return 0, ErrContextClosed
	}

	desc.Source = c.programPath(desc.Source)
	mat, err := c.materials.Register(desc)
	if err != nil {
		return 0, err
	}
	c.logger.Infof("registered %s material %q (handle %d)", mat.Kind(), mat.Name(), mat.Handle())
	return mat.Handle(), nil
}

func (c *Context) buildGeometry() error {
	for _, p := range c.scene.Geometry.Parallelograms {
		if err := c.AddParallelogram(p); err != nil {
			return err
		}
	}
	for index := range c.scene.Geometry.Meshes {
		if err := c.AddMesh(&c.scene.Geometry.Meshes[index]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Context) newInstance(kind GeometryKind, primitives uint32, materialName string) (GeometryInstance, material.Material, error) {
	if c.closed {
		return nil, nil, ErrContextClosed
	}

	mat, found := c.materials.Lookup(materialName)
	if !found {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownMaterial, materialName)
	}

	inst, err := c.dev.NewGeometryInstance(kind, primitives, mat.Handle())
	if err != nil {
		return nil, nil, err
	}
	return inst, mat, nil
}

func (c *Context) appendInstance(kind GeometryKind, inst GeometryInstance, mat material.Material) error {
	if err := mat.Apply(inst); err != nil {
		return fmt.Errorf("could not apply material %q: %w", mat.Name(), err)
	}
	c.instances = append(c.instances, Instance{
		Kind:     kind,
		Material: mat.Name(),
		Emissive: mat.Emissive(),
		Geometry: inst,
	})
	return nil
}

// Create a geometry instance for a parallelogram.
func (c *Context) AddParallelogram(p scene.Parallelogram) error {
	eq, err := p.PlaneEquation()
	if err != nil {
		return err
	}

	inst, mat, err := c.newInstance(GeometryParallelogram, 1, p.Material)
	if err != nil {
		return err
	}

	for _, v := range []struct {
		name  string
		value interface{}
	}{
		{"plane", eq.Plane},
		{"v1", eq.V1},
		{"v2", eq.V2},
		{"anchor", p.Anchor},
		{"color", p.Color},
	} {
		if err = inst.SetVariable(v.name, v.value); err != nil {
			return err
		}
	}

	return c.appendInstance(GeometryParallelogram, inst, mat)
}

// Upload mesh attribute streams and create a geometry instance for a
// loaded triangle mesh.
func (c *Context) AddMesh(m *scene.TriangleMesh) error {
	if len(m.Triangles) == 0 {
		return fmt.Errorf("%w: %s", scene.ErrMeshNotLoaded, m.File)
	}

	inst, mat, err := c.newInstance(GeometryTriangleMesh, uint32(len(m.Triangles)), m.Material)
	if err != nil {
		return err
	}

	vertices, normals, uvs := meshStreams(m)
	streams := []struct {
		name     string
		elemSize int
		count    int
		data     interface{}
	}{
		{"vertex_buffer", 12, len(vertices), vertices},
		{"normal_buffer", 12, len(normals), normals},
		{"texcoord_buffer", 8, len(uvs), uvs},
	}
	for _, s := range streams {
		buf, err := c.dev.NewBuffer(BufferDesc{Name: s.name, Format: FormatUser, ElementSize: s.elemSize, Width: uint32(s.count)})
		if err != nil {
			return err
		}
		c.meshBuffers = append(c.meshBuffers, buf)

		if err = WithLease(buf, func(data []byte) error { return packRecords(data, s.data) }); err != nil {
			return err
		}
		if err = inst.SetVariable(s.name, buf); err != nil {
			return err
		}
	}

	return c.appendInstance(GeometryTriangleMesh, inst, mat)
}

func (c *Context) buildGroups() error {
	all := make([]GeometryInstance, 0, len(c.instances))
	shadowers := make([]GeometryInstance, 0, len(c.instances))
	for _, inst := range c.instances {
		all = append(all, inst.Geometry)
		if !inst.Emissive {
			shadowers = append(shadowers, inst.Geometry)
		}
	}

	if err := c.CreateGeometryGroup(GroupObject, all); err != nil {
		return err
	}
	return c.CreateGeometryGroup(GroupShadower, shadowers)
}

// Build an acceleration structure over instances and bind it to name.
func (c *Context) CreateGeometryGroup(name string, instances []GeometryInstance) error {
	if c.closed {
		return ErrContextClosed
	}
	if err := c.dev.BuildGroup(name, AccelerationBuilder, instances); err != nil {
		return fmt.Errorf("could not build group %q: %w", name, err)
	}
	c.logger.Debugf("built group %q with %d instances", name, len(instances))
	return nil
}

// Advance the camera and upload its basis vectors and frame counter.
func (c *Context) UpdateCamera(cam *scene.Camera) (scene.Basis, error) {
	if c.closed {
		return scene.Basis{}, ErrContextClosed
	}

	basis, err := cam.Update()
	if err != nil {
		return scene.Basis{}, err
	}

	for _, v := range []struct {
		name  string
		value interface{}
	}{
		{"eye", cam.Eye},
		{"U", basis.U},
		{"V", basis.V},
		{"W", basis.W},
		{"frame_number", cam.FrameNumber},
	} {
		if err = c.dev.SetVariable(v.name, v.value); err != nil {
			return scene.Basis{}, err
		}
	}
	return basis, nil
}

// Launch the ray generation program over the output buffer and block until
// the frame completes. Concurrent launches fail with ErrContextBusy.
func (c *Context) Launch(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, launchLockTimeout)
	defer cancel()
	if !c.launchLock.TryLock(lockCtx) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrContextBusy
	}
	defer c.launchLock.Unlock()

	if c.closed {
		return ErrContextClosed
	}
	if !c.initialized {
		return ErrNotInitialized
	}

	desc := c.output.Desc()
	if err := c.dev.Launch(0, desc.Width, desc.Height); err != nil {
		return fmt.Errorf("tracer: launch failed: %w", err)
	}
	return nil
}

// Copy the output buffer to an RGBA frame.
func (c *Context) ReadOutput() (*Frame, error) {
	if c.closed {
		return nil, ErrContextClosed
	}
	if c.output == nil {
		return nil, ErrNotInitialized
	}

	desc := c.output.Desc()
	frame := NewFrame(desc.Width, desc.Height)
	err := WithLease(c.output, func(data []byte) error {
		if len(data) != desc.Size() {
			return fmt.Errorf("%w: mapped %d bytes; expected %d", ErrBufferSize, len(data), desc.Size())
		}
		switch desc.Format {
		case FormatUByte4:
			for index, b := range data {
				frame.Pix[index] = float32(b) / 255
			}
		default:
			for index := range frame.Pix {
				frame.Pix[index] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*index:]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// Release all device resources and the device itself. Close waits for any
// in-progress launch and is safe to call multiple times.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.launchLock.Lock()
		defer c.launchLock.Unlock()

		for _, buf := range append([]Buffer{c.output, c.pointLights, c.areaLights}, c.meshBuffers...) {
			if buf != nil {
				buf.Release()
			}
		}
		c.output, c.pointLights, c.areaLights, c.meshBuffers = nil, nil, nil, nil

		c.closed = true
		c.closeErr = c.dev.Close()
		c.logger.Info("context closed")
	})
	return c.closeErr
}

// Frame is an RGBA frame with float components in row-major order starting
// at the bottom row.
type Frame struct {
	Width  uint32
	Height uint32
	Pix    []float32
}

func NewFrame(width, height uint32) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]float32, 4*int(width)*int(height)),
	}
}

// Get the RGBA value of pixel x, y where y = 0 is the bottom row.
func (f *Frame) At(x, y uint32) types.Vec4 {
	offset := 4 * (int(y)*int(f.Width) + int(x))
	return types.XYZW(f.Pix[offset], f.Pix[offset+1], f.Pix[offset+2], f.Pix[offset+3])
}
