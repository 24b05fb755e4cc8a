package opencl

import (
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
	"github.com/goksuguvendiren/optix-renderer/tracer"
)

// Device allocations are padded to this size so that empty buffers can
// still be bound as kernel arguments.
const minAllocSize = 16

// A device buffer with a host-side staging copy. Mapping a buffer copies the
// device contents to the staging area and unmapping copies them back.
type buffer struct {
	dev    *Device
	desc   tracer.BufferDesc
	handle cl.Mem
	host   []byte
	mapped bool
}

func (d *Device) allocBuffer(desc tracer.BufferDesc) (*buffer, error) {
	if d.closed {
		return nil, ErrClosed
	}

	size := desc.Size()
	allocSize := size
	if allocSize < minAllocSize {
		allocSize = minAllocSize
	}

	var errCode cl.ErrorCode
	handle := cl.CreateBuffer(
		*d.ctx,
		cl.MEM_READ_WRITE,
		cl.MemFlags(allocSize),
		nil,
		(*int32)(&errCode),
	)
	if errCode != cl.SUCCESS {
		return nil, clError(d, "could not allocate buffer "+desc.Name, errCode)
	}

	buf := &buffer{
		dev:    d,
		desc:   desc,
		handle: handle,
		host:   make([]byte, size),
	}
	d.buffers = append(d.buffers, buf)
	return buf, nil
}

func (b *buffer) Desc() tracer.BufferDesc {
	return b.desc
}

func (b *buffer) Map() ([]byte, error) {
	if b.mapped {
		return nil, ErrAlreadyMapped
	}
	if err := b.read(); err != nil {
		return nil, err
	}
	b.mapped = true
	return b.host, nil
}

func (b *buffer) Unmap() error {
	if !b.mapped {
		return ErrNotMapped
	}
	b.mapped = false
	return b.write(b.host)
}

// Copy data to the device buffer.
func (b *buffer) write(data []byte) error {
	if b.handle == nil {
		return ErrClosed
	}
	if len(data) == 0 {
		return nil
	}
	errCode := cl.EnqueueWriteBuffer(
		b.dev.cmdQueue,
		b.handle,
		cl.TRUE,
		0,
		uint64(len(data)),
		unsafe.Pointer(&data[0]),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return clError(b.dev, "could not copy host data to buffer "+b.desc.Name, errCode)
	}
	return nil
}

// Copy the device buffer to the staging area.
func (b *buffer) read() error {
	if b.handle == nil {
		return ErrClosed
	}
	if len(b.host) == 0 {
		return nil
	}
	errCode := cl.EnqueueReadBuffer(
		b.dev.cmdQueue,
		b.handle,
		cl.TRUE,
		0,
		uint64(len(b.host)),
		unsafe.Pointer(&b.host[0]),
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return clError(b.dev, "could not copy device data from buffer "+b.desc.Name, errCode)
	}
	return nil
}

func (b *buffer) Release() {
	if b.handle != nil {
		cl.ReleaseMemObject(b.handle)
		b.handle = nil
	}
}
