package opencl

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// Size of the scratch buffer used for fetching program build logs.
const buildLogSize = 120000

// Build the program stored in file or return a cached copy if the file has
// already been built. Includes are resolved relative to the file's folder.
func (d *Device) program(file string) (cl.Program, error) {
	absPath, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}

	if prog, exists := d.programs[absPath]; exists {
		return prog, nil
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("opencl device (%s): could not read program: %w", d.info.Name, err)
	}
	progSrc := cl.Str(string(data) + "\x00")

	var errCode cl.ErrorCode
	prog := cl.CreateProgramWithSource(
		*d.ctx,
		1,
		&progSrc,
		nil,
		(*int32)(&errCode),
	)
	if errCode != cl.SUCCESS {
		return nil, clError(d, "could not create program "+absPath, errCode)
	}

	errCode = cl.BuildProgram(
		prog,
		1,
		&d.info.Id,
		cl.Str(fmt.Sprintf("-I %s\x00", filepath.Dir(absPath))),
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		var dataLen uint64
		buildLog := make([]byte, buildLogSize)
		cl.GetProgramBuildInfo(prog, d.info.Id, cl.PROGRAM_BUILD_LOG, uint64(len(buildLog)), unsafe.Pointer(&buildLog[0]), &dataLen)
		cl.ReleaseProgram(prog)
		return nil, fmt.Errorf("%w:\n%s", clError(d, "could not build program "+absPath, errCode), clString(buildLog, dataLen))
	}

	d.logger.Debugf("built program %s", absPath)
	d.programs[absPath] = prog
	return prog, nil
}
