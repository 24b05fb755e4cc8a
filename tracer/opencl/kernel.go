package opencl

import (
	"fmt"
	"reflect"
	"time"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// A wrapper around opencl kernel handles.
type kernel struct {
	dev    *Device
	handle cl.Kernel
	name   string

	globalWorkSizes [2]uint64
}

func (d *Device) createKernel(program cl.Program, name string) (*kernel, error) {
	var errCode cl.ErrorCode
	handle := cl.CreateKernel(
		program,
		cl.Str(name+"\x00"),
		(*int32)(&errCode),
	)
	if errCode != cl.SUCCESS {
		return nil, clError(d, "could not load kernel "+name, errCode)
	}

	k := &kernel{dev: d, handle: handle, name: name}
	d.kernels = append(d.kernels, k)
	return k, nil
}

func (k *kernel) Release() {
	if k.handle != nil {
		cl.ReleaseKernel(k.handle)
		k.handle = nil
	}
}

// Bind arguments to the kernel.
func (k *kernel) SetArgs(args ...interface{}) error {
	var errCode cl.ErrorCode
	for argIndex, arg := range args {
		switch v := arg.(type) {
		case *buffer:
			bufHandle := v.handle
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 8, unsafe.Pointer(&bufHandle))
		case int32:
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case uint32:
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case float32:
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 4, unsafe.Pointer(&v))
		default:
			return fmt.Errorf(
				"opencl device (%s): could not set arg %d for kernel %s: %w %s",
				k.dev.info.Name, argIndex, k.name, ErrUnsupportedArg, reflect.TypeOf(arg),
			)
		}

		if errCode != cl.SUCCESS {
			return clError(k.dev, fmt.Sprintf("could not set arg %d for kernel %s", argIndex, k.name), errCode)
		}
	}

	return nil
}

// Execute a 2D kernel and wait for it to complete. The opencl implementation
// picks the local work size.
func (k *kernel) Exec2D(width, height uint32) (time.Duration, error) {
	k.globalWorkSizes[0], k.globalWorkSizes[1] = uint64(width), uint64(height)

	tick := time.Now()
	errCode := cl.EnqueueNDRangeKernel(
		k.dev.cmdQueue,
		k.handle,
		2,
		nil,
		(*uint64)(unsafe.Pointer(&k.globalWorkSizes[0])),
		nil,
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return 0, clError(k.dev, "unable to execute kernel "+k.name, errCode)
	}

	errCode = cl.Finish(k.dev.cmdQueue)
	if errCode != cl.SUCCESS {
		return 0, clError(k.dev, "kernel "+k.name+" did not complete successfully", errCode)
	}

	return time.Since(tick), nil
}
