package opencl

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/goksuguvendiren/optix-renderer/log"
	"github.com/goksuguvendiren/optix-renderer/material"
	"github.com/goksuguvendiren/optix-renderer/tracer"
)

// Every instance record in a group buffer starts with a header of
// (kind, material, primitive count, slot count) followed by the instance's
// variable slots. Buffer-valued instance variables are stored as an
// (offset, length) pair into the shared geometry data buffer.
const instanceHeaderSize = 16

type materialKernels struct {
	closestHit *kernel
	anyHit     *kernel
}

// Device implements tracer.Device on top of an opencl device. The ray
// generation kernel receives, in order: the buffer-valued context variables
// sorted by name, a buffer with the remaining context variables packed as
// 16 byte slots sorted by name, one record buffer per geometry group sorted
// by group name, the geometry data buffer and the launch width and height.
type Device struct {
	mu sync.Mutex

	info   DeviceInfo
	logger log.Logger

	ctx      *cl.Context
	cmdQueue cl.CommandQueue

	config    tracer.Config
	programs  map[string]cl.Program
	kernels   []*kernel
	buffers   []*buffer
	stages    map[tracer.Stage]*kernel
	materials []materialKernels
	variables map[string]interface{}
	groups    map[string]*buffer

	params       *buffer
	geometryData *buffer

	closed bool
}

// Open creates an opencl context and command queue for the given device.
func Open(info DeviceInfo) (*Device, error) {
	d := &Device{
		info:      info,
		logger:    log.New("opencl device"),
		programs:  make(map[string]cl.Program),
		stages:    make(map[tracer.Stage]*kernel),
		variables: make(map[string]interface{}),
		groups:    make(map[string]*buffer),
	}

	var errCode cl.ErrorCode
	d.ctx = cl.CreateContext(nil, 1, &d.info.Id, nil, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		d.ctx = nil
		return nil, clError(d, "could not create opencl context", errCode)
	}

	d.cmdQueue = cl.CreateCommandQueue(*d.ctx, d.info.Id, 0, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		d.cmdQueue = nil
		defer d.Close()
		return nil, clError(d, "could not create command queue", errCode)
	}

	d.logger.Infof("opened %s (%s, %d GFlops)", info.Name, info.Type, info.Speed)
	return d, nil
}

func (d *Device) Name() string {
	return d.info.Name
}

func (d *Device) Configure(cfg tracer.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.config = cfg
	d.logger.Debugf("configured %d ray types, %d entry points, stack size %d", cfg.RayTypes, cfg.EntryPoints, cfg.StackSize)
	return nil
}

func (d *Device) SetVariable(name string, value interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	if tb, isBuf := value.(tracer.Buffer); isBuf {
		buf, isOwn := tb.(*buffer)
		if !isOwn || buf.dev != d {
			return fmt.Errorf("opencl device (%s): variable %q: buffer was not allocated by this device", d.info.Name, name)
		}
		d.variables[name] = buf
		return nil
	}

	if _, err := encodeSlot(value); err != nil {
		return fmt.Errorf("opencl device (%s): variable %q: %w", d.info.Name, name, err)
	}
	d.variables[name] = value
	return nil
}

func (d *Device) NewBuffer(desc tracer.BufferDesc) (tracer.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocBuffer(desc)
}

func (d *Device) BindProgram(stage tracer.Stage, file, entry string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	prog, err := d.program(file)
	if err != nil {
		return err
	}
	k, err := d.createKernel(prog, entry)
	if err != nil {
		return err
	}
	d.stages[stage] = k
	return nil
}

func (d *Device) BindMaterial(source, closestHit, anyHit string) (material.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}

	prog, err := d.program(source)
	if err != nil {
		return 0, err
	}

	var mk materialKernels
	if mk.closestHit, err = d.createKernel(prog, closestHit); err != nil {
		return 0, err
	}
	if anyHit != "" {
		if mk.anyHit, err = d.createKernel(prog, anyHit); err != nil {
			return 0, err
		}
	}

	d.materials = append(d.materials, mk)
	return material.Handle(len(d.materials) - 1), nil
}

func (d *Device) NewGeometryInstance(kind tracer.GeometryKind, primitives uint32, mat material.Handle) (tracer.GeometryInstance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrClosed
	}
	if int(mat) >= len(d.materials) {
		return nil, fmt.Errorf("opencl device (%s): unknown material handle %d", d.info.Name, mat)
	}

	return &instance{
		dev:        d,
		kind:       kind,
		mat:        mat,
		primitives: primitives,
		variables:  make(map[string]interface{}),
	}, nil
}

func (d *Device) BuildGroup(name, builder string, instances []tracer.GeometryInstance) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	var records []byte
	for index, gi := range instances {
		inst, isOwn := gi.(*instance)
		if !isOwn || inst.dev != d {
			return fmt.Errorf("opencl device (%s): group %s: instance %d was not created by this device", d.info.Name, name, index)
		}

		rec, err := inst.record(d)
		if err != nil {
			return fmt.Errorf("opencl device (%s): group %s: instance %d: %w", d.info.Name, name, index, err)
		}
		records = append(records, rec...)
	}

	buf, err := d.upload(d.groups[name], name, records)
	if err != nil {
		return err
	}
	d.groups[name] = buf

	d.logger.Debugf("built group %s with %d instances (%s builder, %d bytes)", name, len(instances), builder, len(records))
	return nil
}

func (d *Device) Launch(entry, width, height uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if entry >= d.config.EntryPoints && d.config.EntryPoints != 0 {
		return fmt.Errorf("opencl device (%s): invalid entry point %d", d.info.Name, entry)
	}

	rayGen := d.stages[tracer.StageRayGeneration]
	if rayGen == nil {
		return ErrNoRayGeneration
	}

	varBuffers, slots, err := splitVariables(d.variables)
	if err != nil {
		return fmt.Errorf("opencl device (%s): %w", d.info.Name, err)
	}
	if d.params, err = d.upload(d.params, "params", flattenSlots(slots)); err != nil {
		return err
	}
	if d.geometryData == nil {
		if d.geometryData, err = d.upload(nil, "geometry_data", nil); err != nil {
			return err
		}
	}

	args := make([]interface{}, 0, len(varBuffers)+len(d.groups)+4)
	for _, buf := range varBuffers {
		args = append(args, buf)
	}
	args = append(args, d.params)

	groupNames := make([]string, 0, len(d.groups))
	for name := range d.groups {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)
	for _, name := range groupNames {
		args = append(args, d.groups[name])
	}
	args = append(args, d.geometryData, width, height)

	if err = rayGen.SetArgs(args...); err != nil {
		return err
	}

	elapsed, err := rayGen.Exec2D(width, height)
	if err != nil {
		return err
	}
	d.logger.Debugf("launched %s over %dx%d in %s", rayGen.name, width, height, elapsed)
	return nil
}

// Replace the contents of buf with data, reallocating it if the size
// changed.
func (d *Device) upload(buf *buffer, name string, data []byte) (*buffer, error) {
	if buf == nil || len(buf.host) != len(data) {
		if buf != nil {
			buf.Release()
		}
		var err error
		buf, err = d.allocBuffer(tracer.BufferDesc{
			Name:        name,
			Format:      tracer.FormatUser,
			ElementSize: 1,
			Width:       uint32(len(data)),
		})
		if err != nil {
			return nil, err
		}
	}
	copy(buf.host, data)
	return buf, buf.write(buf.host)
}

// Append data to the geometry data buffer and return its byte offset.
func (d *Device) appendGeometryData(data []byte) (uint32, error) {
	var existing []byte
	if d.geometryData != nil {
		existing = d.geometryData.host
	}
	offset := uint32(len(existing))

	merged := make([]byte, 0, len(existing)+len(data))
	merged = append(merged, existing...)
	merged = append(merged, data...)

	var err error
	d.geometryData, err = d.upload(d.geometryData, "geometry_data", merged)
	return offset, err
}

// Close releases all opencl resources. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	for _, k := range d.kernels {
		k.Release()
	}
	d.kernels = nil

	for _, buf := range d.buffers {
		buf.Release()
	}
	d.buffers = nil

	for path, prog := range d.programs {
		cl.ReleaseProgram(prog)
		delete(d.programs, path)
	}

	if d.cmdQueue != nil {
		cl.ReleaseCommandQueue(d.cmdQueue)
		d.cmdQueue = nil
	}

	if d.ctx != nil {
		cl.ReleaseContext(d.ctx)
		d.ctx = nil
	}

	d.logger.Infof("closed %s", d.info.Name)
	return nil
}

// A geometry instance whose variables are serialized into a group record
// when the group is built.
type instance struct {
	dev        *Device
	kind       tracer.GeometryKind
	mat        material.Handle
	primitives uint32
	variables  map[string]interface{}

	// Geometry data offsets for buffer variables that were already
	// appended by a previous group build.
	dataOffsets map[*buffer]uint32
}

func (i *instance) Kind() tracer.GeometryKind { return i.kind }
func (i *instance) Material() material.Handle { return i.mat }

func (i *instance) SetVariable(name string, value interface{}) error {
	if tb, isBuf := value.(tracer.Buffer); isBuf {
		buf, isOwn := tb.(*buffer)
		if !isOwn || buf.dev != i.dev {
			return fmt.Errorf("opencl instance: variable %q: buffer was not allocated by this device", name)
		}
		i.variables[name] = buf
		return nil
	}

	if _, err := encodeSlot(value); err != nil {
		return fmt.Errorf("opencl instance: variable %q: %w", name, err)
	}
	i.variables[name] = value
	return nil
}

func (i *instance) record(d *Device) ([]byte, error) {
	names := make([]string, 0, len(i.variables))
	for name := range i.variables {
		names = append(names, name)
	}
	sort.Strings(names)

	slots := make([]slot, 0, len(names))
	for _, name := range names {
		switch v := i.variables[name].(type) {
		case *buffer:
			offset, err := i.dataOffset(d, v)
			if err != nil {
				return nil, err
			}
			var s slot
			binary.LittleEndian.PutUint32(s[0:], offset)
			binary.LittleEndian.PutUint32(s[4:], uint32(len(v.host)))
			slots = append(slots, s)
		default:
			s, err := encodeSlot(v)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			slots = append(slots, s)
		}
	}

	rec := make([]byte, instanceHeaderSize, instanceHeaderSize+len(slots)*slotSize)
	binary.LittleEndian.PutUint32(rec[0:], uint32(i.kind))
	binary.LittleEndian.PutUint32(rec[4:], uint32(i.mat))
	binary.LittleEndian.PutUint32(rec[8:], i.primitives)
	binary.LittleEndian.PutUint32(rec[12:], uint32(len(slots)))
	return append(rec, flattenSlots(slots)...), nil
}

func (i *instance) dataOffset(d *Device, buf *buffer) (uint32, error) {
	if offset, exists := i.dataOffsets[buf]; exists {
		return offset, nil
	}
	if err := buf.read(); err != nil {
		return 0, err
	}
	offset, err := d.appendGeometryData(buf.host)
	if err != nil {
		return 0, err
	}
	if i.dataOffsets == nil {
		i.dataOffsets = make(map[*buffer]uint32)
	}
	i.dataOffsets[buf] = offset
	return offset, nil
}
