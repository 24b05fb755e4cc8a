package opencl

import (
	"errors"
	"fmt"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

var (
	ErrNoDevices       = errors.New("opencl: no matching opencl devices found")
	ErrClosed          = errors.New("opencl: device is closed")
	ErrAlreadyMapped   = errors.New("opencl: buffer is already mapped")
	ErrNotMapped       = errors.New("opencl: buffer is not mapped")
	ErrNoRayGeneration = errors.New("opencl: no ray generation program bound")
	ErrUnsupportedArg  = errors.New("opencl: unsupported variable type")
)

// Return a textual description of an opencl error code.
func ErrorName(errCode cl.ErrorCode) string {
	switch errCode {
	case 0:
		return "SUCCESS"
	case -1:
		return "DEVICE_NOT_FOUND"
	case -2:
		return "DEVICE_NOT_AVAILABLE"
	case -3:
		return "COMPILER_NOT_AVAILABLE"
	case -4:
		return "MEM_OBJECT_ALLOCATION_FAILURE"
	case -5:
		return "OUT_OF_RESOURCES"
	case -6:
		return "OUT_OF_HOST_MEMORY"
	case -11:
		return "BUILD_PROGRAM_FAILURE"
	case -30:
		return "INVALID_VALUE"
	case -33:
		return "INVALID_DEVICE"
	case -34:
		return "INVALID_CONTEXT"
	case -36:
		return "INVALID_COMMAND_QUEUE"
	case -38:
		return "INVALID_MEM_OBJECT"
	case -44:
		return "INVALID_PROGRAM"
	case -45:
		return "INVALID_PROGRAM_EXECUTABLE"
	case -46:
		return "INVALID_KERNEL_NAME"
	case -48:
		return "INVALID_KERNEL"
	case -49:
		return "INVALID_ARG_INDEX"
	case -50:
		return "INVALID_ARG_VALUE"
	case -51:
		return "INVALID_ARG_SIZE"
	case -52:
		return "INVALID_KERNEL_ARGS"
	case -54:
		return "INVALID_WORK_GROUP_SIZE"
	case -61:
		return "INVALID_BUFFER_SIZE"
	case -63:
		return "INVALID_GLOBAL_WORK_SIZE"
	default:
		return fmt.Sprintf("unknown error code %d", errCode)
	}
}

// Wrap an opencl error code.
func clError(dev *Device, op string, errCode cl.ErrorCode) error {
	return fmt.Errorf("opencl device (%s): %s (error: %s; code %d)", dev.info.Name, op, ErrorName(errCode), errCode)
}
