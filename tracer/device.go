package tracer

import (
	"fmt"

	"github.com/goksuguvendiren/optix-renderer/material"
)

// Pipeline stages that accept a program.
type Stage uint8

const (
	StageRayGeneration Stage = iota
	StageException
	StageMiss
)

func (s Stage) String() string {
	switch s {
	case StageRayGeneration:
		return "ray generation"
	case StageException:
		return "exception"
	case StageMiss:
		return "miss"
	}
	return fmt.Sprintf("stage(%d)", s)
}

// Device-wide pipeline configuration.
type Config struct {
	RayTypes    uint32
	EntryPoints uint32
	StackSize   uint32
}

type BufferFormat uint8

const (
	FormatFloat4 BufferFormat = iota
	FormatUByte4

	// Buffer of user-defined records.
	FormatUser
)

// Size in bytes of a single buffer element or 0 for user formats.
func (f BufferFormat) ElementSize() int {
	switch f {
	case FormatFloat4:
		return 16
	case FormatUByte4:
		return 4
	}
	return 0
}

func (f BufferFormat) String() string {
	switch f {
	case FormatFloat4:
		return "FLOAT4"
	case FormatUByte4:
		return "UNSIGNED_BYTE4"
	case FormatUser:
		return "USER"
	}
	return fmt.Sprintf("format(%d)", f)
}

// BufferDesc describes a 1D (Height <= 1) or 2D device buffer.
type BufferDesc struct {
	Name   string
	Format BufferFormat

	// Record size for FormatUser buffers.
	ElementSize int

	Width  uint32
	Height uint32
}

// Size of the buffer in bytes.
func (d BufferDesc) Size() int {
	elemSize := d.Format.ElementSize()
	if d.Format == FormatUser {
		elemSize = d.ElementSize
	}
	height := d.Height
	if height == 0 {
		height = 1
	}
	return elemSize * int(d.Width) * int(height)
}

// Buffer is a device buffer that can be mapped into host memory.
type Buffer interface {
	Desc() BufferDesc

	// Map the buffer contents to host memory. The returned slice is only
	// valid until Unmap is called.
	Map() ([]byte, error)
	Unmap() error

	Release()
}

type GeometryKind uint8

const (
	GeometryParallelogram GeometryKind = iota
	GeometryTriangleMesh
)

func (k GeometryKind) String() string {
	switch k {
	case GeometryParallelogram:
		return "parallelogram"
	case GeometryTriangleMesh:
		return "triangle mesh"
	}
	return fmt.Sprintf("geometry(%d)", k)
}

// GeometryInstance combines a geometry with a material and the per-instance
// variables that its programs read.
type GeometryInstance interface {
	material.Instance

	Kind() GeometryKind
	Material() material.Handle
}

// Device is implemented by ray tracing backends. All traversal, intersection
// and acceleration structure work happens behind this interface.
type Device interface {
	material.Binder

	Name() string

	// Set ray type/entry point counts and the program stack size.
	Configure(Config) error

	// Set a context-wide program variable. Values may be scalars, vectors
	// or buffers.
	SetVariable(name string, value interface{}) error

	NewBuffer(BufferDesc) (Buffer, error)

	// Bind entry point from program file to a pipeline stage.
	BindProgram(stage Stage, file, entry string) error

	NewGeometryInstance(kind GeometryKind, primitives uint32, mat material.Handle) (GeometryInstance, error)

	// Build an acceleration structure over instances and bind it to the
	// named context variable.
	BuildGroup(name, builder string, instances []GeometryInstance) error

	// Launch an entry point over a width x height grid and block until
	// the device completes.
	Launch(entry, width, height uint32) error

	Close() error
}
