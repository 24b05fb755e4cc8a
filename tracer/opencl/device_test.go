package opencl

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/goksuguvendiren/optix-renderer/tracer"
	"github.com/goksuguvendiren/optix-renderer/types"
)

func TestEncodeSlot(t *testing.T) {
	type spec struct {
		value  interface{}
		expU32 [4]uint32
	}
	one := math.Float32bits(1)
	two := math.Float32bits(2)
	specs := []spec{
		{float32(1), [4]uint32{one, 0, 0, 0}},
		{uint32(7), [4]uint32{7, 0, 0, 0}},
		{int32(-1), [4]uint32{0xffffffff, 0, 0, 0}},
		{types.XY(1, 2), [4]uint32{one, two, 0, 0}},
		{types.XYZ(1, 2, 1), [4]uint32{one, two, one, 0}},
		{types.XYZW(2, 2, 1, 1), [4]uint32{two, two, one, one}},
	}

	for index, s := range specs {
		slot, err := encodeSlot(s.value)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}
		for i, exp := range s.expU32 {
			if got := binary.LittleEndian.Uint32(slot[i*4:]); got != exp {
				t.Fatalf("[spec %d] expected word %d to be 0x%x; got 0x%x", index, i, exp, got)
			}
		}
	}

	if _, err := encodeSlot("foo"); !errors.Is(err, ErrUnsupportedArg) {
		t.Fatalf("expected ErrUnsupportedArg; got %v", err)
	}
}

func TestSplitVariablesIsSortedByName(t *testing.T) {
	bufA, bufB := &buffer{}, &buffer{}
	vars := map[string]interface{}{
		"z_scalar": float32(3),
		"b_buf":    bufB,
		"a_scalar": float32(1),
		"a_buf":    bufA,
		"m_scalar": float32(2),
	}

	buffers, slots, err := splitVariables(vars)
	if err != nil {
		t.Fatal(err)
	}
	if len(buffers) != 2 || buffers[0] != bufA || buffers[1] != bufB {
		t.Fatalf("expected buffers sorted by name; got %v", buffers)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots; got %d", len(slots))
	}
	for index, exp := range []float32{1, 2, 3} {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(slots[index][:])); got != exp {
			t.Fatalf("expected slot %d to contain %f; got %f", index, exp, got)
		}
	}
}

func openTestDevice(t *testing.T) *Device {
	devList, err := SelectDevices(AllDevices, "")
	if err != nil || len(devList) == 0 {
		t.Skip("no opencl devices available")
	}

	dev, err := Open(devList[0])
	if err != nil {
		t.Fatalf("error initializing device '%s': %v", devList[0].Name, err)
	}
	return dev
}

func TestDeviceLaunch(t *testing.T) {
	dev := openTestDevice(t)
	defer dev.Close()

	if err := dev.Configure(tracer.Config{RayTypes: 2, EntryPoints: 1, StackSize: 1800}); err != nil {
		t.Fatal(err)
	}

	if err := dev.Launch(0, 4, 4); !errors.Is(err, ErrNoRayGeneration) {
		t.Fatalf("expected ErrNoRayGeneration; got %v", err)
	}

	if err := dev.BindProgram(tracer.StageRayGeneration, "testdata/fill.cl", "pinhole_camera"); err != nil {
		t.Fatal(err)
	}
	if err := dev.BindProgram(tracer.StageException, "testdata/fill.cl", "exception"); err != nil {
		t.Fatal(err)
	}
	if err := dev.BindProgram(tracer.StageMiss, "testdata/fill.cl", "miss"); err != nil {
		t.Fatal(err)
	}
	if err := dev.BindProgram(tracer.StageMiss, "testdata/fill.cl", "foo"); err == nil {
		t.Fatal("expected an error while binding an unknown kernel")
	}

	out, err := dev.NewBuffer(tracer.BufferDesc{Name: "output_buffer", Format: tracer.FormatFloat4, Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	if err = dev.SetVariable("output_buffer", out); err != nil {
		t.Fatal(err)
	}
	if err = dev.SetVariable("bg_color", types.XYZ(0.25, 0.5, 0.75)); err != nil {
		t.Fatal(err)
	}

	if err = dev.Launch(0, 4, 4); err != nil {
		t.Fatal(err)
	}

	err = tracer.WithLease(out, func(data []byte) error {
		for px := 0; px < 16; px++ {
			for ch, exp := range []float32{0.25, 0.5, 0.75, 1} {
				got := math.Float32frombits(binary.LittleEndian.Uint32(data[px*16+ch*4:]))
				if got != exp {
					t.Fatalf("expected pixel %d channel %d to be %f; got %f", px, ch, exp, got)
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDeviceBuildGroup(t *testing.T) {
	dev := openTestDevice(t)
	defer dev.Close()

	if _, err := dev.NewGeometryInstance(tracer.GeometryParallelogram, 1, 0); err == nil {
		t.Fatal("expected an error for an unknown material handle")
	}

	diffuse, err := dev.BindMaterial("testdata/material.cl", "closest_hit_diffuse", "shadow")
	if err != nil {
		t.Fatal(err)
	}
	emissive, err := dev.BindMaterial("testdata/material.cl", "closest_hit_diffuse", "")
	if err != nil {
		t.Fatal(err)
	}
	if diffuse == emissive {
		t.Fatal("expected each bound material to get its own handle")
	}
	if len(dev.programs) != 1 {
		t.Fatalf("expected material program to be built once; got %d builds", len(dev.programs))
	}

	verts, err := dev.NewBuffer(tracer.BufferDesc{Name: "vertex_buffer", Format: tracer.FormatUser, ElementSize: 12, Width: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err = tracer.WithLease(verts, func(data []byte) error {
		for i := range data {
			data[i] = byte(i)
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	mesh, err := dev.NewGeometryInstance(tracer.GeometryTriangleMesh, 1, diffuse)
	if err != nil {
		t.Fatal(err)
	}
	if err = mesh.SetVariable("vertex_buffer", verts); err != nil {
		t.Fatal(err)
	}
	if err = mesh.SetVariable("color", types.XYZ(1, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if err = mesh.SetVariable("bogus", "foo"); !errors.Is(err, ErrUnsupportedArg) {
		t.Fatalf("expected ErrUnsupportedArg; got %v", err)
	}

	quad, err := dev.NewGeometryInstance(tracer.GeometryParallelogram, 1, emissive)
	if err != nil {
		t.Fatal(err)
	}

	instances := []tracer.GeometryInstance{mesh, quad}
	if err = dev.BuildGroup("top_object", "Trbvh", instances); err != nil {
		t.Fatal(err)
	}
	if err = dev.BuildGroup("top_shadower", "Trbvh", instances[:1]); err != nil {
		t.Fatal(err)
	}

	// Shared vertex data is appended to the geometry buffer once.
	if got := len(dev.geometryData.host); got != 36 {
		t.Fatalf("expected geometry data to be 36 bytes; got %d", got)
	}

	rec := dev.groups["top_object"].host
	if exp := 2*instanceHeaderSize + 2*slotSize; len(rec) != exp {
		t.Fatalf("expected group record to be %d bytes; got %d", exp, len(rec))
	}

	header := func(off int) [4]uint32 {
		var h [4]uint32
		for i := range h {
			h[i] = binary.LittleEndian.Uint32(rec[off+i*4:])
		}
		return h
	}
	if h := header(0); h != [4]uint32{uint32(tracer.GeometryTriangleMesh), uint32(diffuse), 1, 2} {
		t.Fatalf("unexpected mesh record header %v", h)
	}
	// Slots are sorted by name; vertex_buffer is stored as (offset, length)
	if off, size := binary.LittleEndian.Uint32(rec[instanceHeaderSize+slotSize:]), binary.LittleEndian.Uint32(rec[instanceHeaderSize+slotSize+4:]); off != 0 || size != 36 {
		t.Fatalf("expected vertex buffer slot to be (0, 36); got (%d, %d)", off, size)
	}
	if h := header(instanceHeaderSize + 2*slotSize); h != [4]uint32{uint32(tracer.GeometryParallelogram), uint32(emissive), 1, 0} {
		t.Fatalf("unexpected parallelogram record header %v", h)
	}
}

func TestDeviceClose(t *testing.T) {
	dev := openTestDevice(t)

	buf, err := dev.NewBuffer(tracer.BufferDesc{Name: "foo", Format: tracer.FormatUByte4, Width: 2})
	if err != nil {
		t.Fatal(err)
	}

	if err = dev.Close(); err != nil {
		t.Fatal(err)
	}
	if err = dev.Close(); err != nil {
		t.Fatalf("expected second close to be a no-op; got %v", err)
	}

	if _, err = buf.Map(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed when mapping a released buffer; got %v", err)
	}
	if err = dev.SetVariable("foo", float32(1)); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
	if _, err = dev.NewBuffer(tracer.BufferDesc{Name: "bar", Format: tracer.FormatFloat4, Width: 1}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
}
