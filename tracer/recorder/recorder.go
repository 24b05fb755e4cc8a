// Package recorder provides an in-process render device that records every
// call it receives. Launching fills the output buffer with the background
// color. It is used for dry runs and by tests.
package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/goksuguvendiren/optix-renderer/material"
	"github.com/goksuguvendiren/optix-renderer/tracer"
	"github.com/goksuguvendiren/optix-renderer/types"
)

var (
	ErrAlreadyMapped = errors.New("recorder: buffer is already mapped")
	ErrNotMapped     = errors.New("recorder: buffer is not mapped")
	ErrReleased      = errors.New("recorder: buffer has been released")
	ErrClosed        = errors.New("recorder: device is closed")
)

type Program struct {
	File  string
	Entry string
}

type MaterialPrograms struct {
	Source     string
	ClosestHit string
	AnyHit     string
}

type Group struct {
	Builder   string
	Instances []tracer.GeometryInstance
}

// Device is an in-memory tracer.Device.
type Device struct {
	mu sync.Mutex

	// Operation log in call order.
	Calls []string

	Config    tracer.Config
	Variables map[string]interface{}
	Programs  map[tracer.Stage]Program
	Materials []MaterialPrograms
	Buffers   []*Buffer
	Instances []*Instance
	Groups    map[string]Group

	Launches    int
	CloseCalls  int
	LaunchDelay time.Duration

	// Operations that should fail with the mapped error. A "Map <name>"
	// entry makes Map fail on buffers named <name> created afterwards.
	FailOn map[string]error
}

func New() *Device {
	return &Device{
		Variables: make(map[string]interface{}),
		Programs:  make(map[tracer.Stage]Program),
		Groups:    make(map[string]Group),
		FailOn:    make(map[string]error),
	}
}

func (d *Device) Name() string {
	return "recorder"
}

// Record op and return its injected failure, if any.
func (d *Device) record(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.Calls = append(d.Calls, op)
	if d.CloseCalls > 0 && op != "Close" {
		return ErrClosed
	}
	return d.FailOn[op]
}

func (d *Device) Configure(cfg tracer.Config) error {
	if err := d.record("Configure"); err != nil {
		return err
	}
	d.Config = cfg
	return nil
}

func (d *Device) SetVariable(name string, value interface{}) error {
	if err := d.record("SetVariable"); err != nil {
		return err
	}
	d.mu.Lock()
	d.Variables[name] = value
	d.mu.Unlock()
	return nil
}

func (d *Device) NewBuffer(desc tracer.BufferDesc) (tracer.Buffer, error) {
	if err := d.record("NewBuffer"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	buf := &Buffer{desc: desc, data: make([]byte, desc.Size()), mapErr: d.FailOn["Map "+desc.Name]}
	d.Buffers = append(d.Buffers, buf)
	d.mu.Unlock()
	return buf, nil
}

func (d *Device) BindProgram(stage tracer.Stage, file, entry string) error {
	if err := d.record("BindProgram"); err != nil {
		return err
	}
	if entry == "" {
		return fmt.Errorf("recorder: empty entry point for %s program", stage)
	}
	d.Programs[stage] = Program{File: file, Entry: entry}
	return nil
}

func (d *Device) BindMaterial(source, closestHit, anyHit string) (material.Handle, error) {
	if err := d.record("BindMaterial"); err != nil {
		return 0, err
	}
	d.Materials = append(d.Materials, MaterialPrograms{Source: source, ClosestHit: closestHit, AnyHit: anyHit})
	return material.Handle(len(d.Materials) - 1), nil
}

func (d *Device) NewGeometryInstance(kind tracer.GeometryKind, primitives uint32, mat material.Handle) (tracer.GeometryInstance, error) {
	if err := d.record("NewGeometryInstance"); err != nil {
		return nil, err
	}
	if int(mat) >= len(d.Materials) {
		return nil, fmt.Errorf("recorder: unknown material handle %d", mat)
	}
	inst := &Instance{
		kind:       kind,
		material:   mat,
		Primitives: primitives,
		Variables:  make(map[string]interface{}),
	}
	d.Instances = append(d.Instances, inst)
	return inst, nil
}

func (d *Device) BuildGroup(name, builder string, instances []tracer.GeometryInstance) error {
	if err := d.record("BuildGroup"); err != nil {
		return err
	}
	d.Groups[name] = Group{Builder: builder, Instances: append([]tracer.GeometryInstance(nil), instances...)}
	return nil
}

// Launch fills the output buffer with the bg_color variable.
func (d *Device) Launch(entry, width, height uint32) error {
	if err := d.record("Launch"); err != nil {
		return err
	}
	if d.LaunchDelay > 0 {
		time.Sleep(d.LaunchDelay)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.Launches++

	out, ok := d.Variables[tracer.OutputBufferName].(*Buffer)
	if !ok {
		return fmt.Errorf("recorder: no output buffer bound")
	}
	if out.desc.Width != width || out.desc.Height != height {
		return fmt.Errorf("recorder: launch size %dx%d does not match output buffer %dx%d", width, height, out.desc.Width, out.desc.Height)
	}

	bg, _ := d.Variables["bg_color"].(types.Vec3)
	pixel := bg.Vec4(1)
	switch out.desc.Format {
	case tracer.FormatUByte4:
		for offset := 0; offset < len(out.data); offset += 4 {
			for c := 0; c < 4; c++ {
				out.data[offset+c] = uint8(math.Min(1, math.Max(0, float64(pixel[c])))*255 + 0.5)
			}
		}
	default:
		for offset := 0; offset < len(out.data); offset += 16 {
			for c := 0; c < 4; c++ {
				binary.LittleEndian.PutUint32(out.data[offset+4*c:], math.Float32bits(pixel[c]))
			}
		}
	}
	return nil
}

func (d *Device) Close() error {
	d.record("Close")
	d.mu.Lock()
	defer d.mu.Unlock()
	d.CloseCalls++
	return nil
}

// Count recorded calls to op.
func (d *Device) CallCount(op string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, call := range d.Calls {
		if call == op {
			count++
		}
	}
	return count
}

// Buffer is a host memory buffer.
type Buffer struct {
	desc     tracer.BufferDesc
	data     []byte
	mapped   bool
	released bool
	mapErr   error

	Maps   int
	Unmaps int
}

func (b *Buffer) Desc() tracer.BufferDesc {
	return b.desc
}

func (b *Buffer) Map() ([]byte, error) {
	if b.released {
		return nil, ErrReleased
	}
	if b.mapped {
		return nil, ErrAlreadyMapped
	}
	if b.mapErr != nil {
		return nil, b.mapErr
	}
	b.mapped = true
	b.Maps++
	return b.data, nil
}

func (b *Buffer) Unmap() error {
	if !b.mapped {
		return ErrNotMapped
	}
	b.mapped = false
	b.Unmaps++
	return nil
}

func (b *Buffer) Release() {
	b.released = true
}

func (b *Buffer) Mapped() bool   { return b.mapped }
func (b *Buffer) Released() bool { return b.released }

// Get a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	return append([]byte(nil), b.data...)
}

// Instance is a recorded geometry instance.
type Instance struct {
	kind       tracer.GeometryKind
	material   material.Handle
	Primitives uint32
	Variables  map[string]interface{}
}

func (i *Instance) Kind() tracer.GeometryKind { return i.kind }
func (i *Instance) Material() material.Handle { return i.material }

func (i *Instance) SetVariable(name string, value interface{}) error {
	i.Variables[name] = value
	return nil
}
