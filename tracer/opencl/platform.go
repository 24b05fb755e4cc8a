package opencl

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

const (
	platformBufferSize = 100
	deviceBufferSize   = 100
	dataBufferSize     = 1024
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice   DeviceType = 1 << iota
	GpuDevice              = 1 << iota
	OtherDevice            = 1 << iota
	AllDevices             = 0xFF
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	case OtherDevice:
		return "Other"
	}
	return fmt.Sprintf("DeviceType(%d)", uint8(dt))
}

// Parse a device type selector ("cpu", "gpu" or "all").
func ParseDeviceType(name string) (DeviceType, error) {
	switch strings.ToLower(name) {
	case "cpu":
		return CpuDevice, nil
	case "gpu":
		return GpuDevice, nil
	case "", "all":
		return AllDevices, nil
	}
	return 0, fmt.Errorf("opencl: unknown device type %q", name)
}

// DeviceInfo describes an opencl device.
type DeviceInfo struct {
	Name     string
	Id       cl.DeviceId
	Type     DeviceType
	Platform string

	ComputeUnits uint32
	ClockSpeed   uint32

	// Speed estimate in GFlops.
	Speed uint32
}

// Information about a system's opencl platform and supported devices.
type PlatformInfo struct {
	Profile    string
	Version    string
	Name       string
	Vendor     string
	Extensions string
	Devices    []DeviceInfo
}

func clString(data []byte, dataLen uint64) string {
	if dataLen == 0 {
		return ""
	}
	return string(data[0 : dataLen-1])
}

// Get information about supported opencl platforms and devices.
func GetPlatformInfo() ([]PlatformInfo, error) {
	pids := make([]cl.PlatformID, platformBufferSize)
	data := make([]byte, dataBufferSize)
	dataLen := uint64(0)

	devices := make([]cl.DeviceId, deviceBufferSize)
	deviceCount := uint32(0)

	pidCount := uint32(0)
	cl.GetPlatformIDs(uint32(len(pids)), &pids[0], &pidCount)

	infoList := make([]PlatformInfo, int(pidCount))
	for pIdx := 0; pIdx < int(pidCount); pIdx++ {
		info := &infoList[pIdx]

		dataLen = 0
		cl.GetPlatformInfo(pids[pIdx], cl.PLATFORM_PROFILE, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Profile = clString(data, dataLen)

		cl.GetPlatformInfo(pids[pIdx], cl.PLATFORM_VERSION, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Version = clString(data, dataLen)

		cl.GetPlatformInfo(pids[pIdx], cl.PLATFORM_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Name = clString(data, dataLen)

		cl.GetPlatformInfo(pids[pIdx], cl.PLATFORM_VENDOR, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Vendor = clString(data, dataLen)

		cl.GetPlatformInfo(pids[pIdx], cl.PLATFORM_EXTENSIONS, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Extensions = clString(data, dataLen)

		// Enumerate CPU devices
		deviceCount = 0
		cl.GetDeviceIDs(pids[pIdx], cl.DEVICE_TYPE_CPU, uint32(deviceBufferSize), &devices[0], &deviceCount)
		for dIdx := 0; dIdx < int(deviceCount); dIdx++ {
			cl.GetDeviceInfo(devices[dIdx], cl.DEVICE_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
			info.Devices = append(info.Devices, DeviceInfo{Name: clString(data, dataLen), Id: devices[dIdx], Type: CpuDevice, Platform: info.Name})
		}

		// Enumerate GPU devices
		deviceCount = 0
		cl.GetDeviceIDs(pids[pIdx], cl.DEVICE_TYPE_GPU, uint32(deviceBufferSize), &devices[0], &deviceCount)
		for dIdx := 0; dIdx < int(deviceCount); dIdx++ {
			cl.GetDeviceInfo(devices[dIdx], cl.DEVICE_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
			info.Devices = append(info.Devices, DeviceInfo{Name: clString(data, dataLen), Id: devices[dIdx], Type: GpuDevice, Platform: info.Name})
		}

		for dIdx := range info.Devices {
			if err := info.Devices[dIdx].detectSpeed(); err != nil {
				return nil, err
			}
		}
	}

	return infoList, nil
}

// Calculate theoretical device speed as: compute units * 2ops/cycle * clock speed
func (d *DeviceInfo) detectSpeed() error {
	errCode := cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_COMPUTE_UNITS, 4, unsafe.Pointer(&d.ComputeUnits), nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): could not query MAX_COMPUTE_UNITS (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}
	errCode = cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_CLOCK_FREQUENCY, 4, unsafe.Pointer(&d.ClockSpeed), nil)
	if errCode != cl.SUCCESS {
		return fmt.Errorf("opencl device (%s): could not query MAX_CLOCK_FREQUENCY (error: %s; code %d)", d.Name, ErrorName(errCode), errCode)
	}
	d.Speed = d.ComputeUnits * d.ClockSpeed / 1000
	return nil
}

// Scan all available opencl platforms and select devices that match the
// type mask and whose name contains matchName. Devices whose name contains
// any of the blacklisted strings are skipped.
func SelectDevices(typeMask DeviceType, matchName string, blacklist ...string) ([]DeviceInfo, error) {
	platforms, err := GetPlatformInfo()
	if err != nil {
		return nil, err
	}

	list := make([]DeviceInfo, 0)
	for _, p := range platforms {
		for _, d := range p.Devices {
			if d.Type&typeMask != d.Type {
				continue
			}
			if matchName != "" && !strings.Contains(d.Name, matchName) {
				continue
			}
			if isBlacklisted(d.Name, blacklist) {
				continue
			}
			list = append(list, d)
		}
	}
	return list, nil
}

func isBlacklisted(name string, blacklist []string) bool {
	for _, banned := range blacklist {
		if banned != "" && strings.Contains(name, banned) {
			return true
		}
	}
	return false
}
