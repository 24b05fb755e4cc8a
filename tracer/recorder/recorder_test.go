package recorder

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/goksuguvendiren/optix-renderer/tracer"
	"github.com/goksuguvendiren/optix-renderer/types"
)

func TestBufferMapping(t *testing.T) {
	dev := New()
	buf, err := dev.NewBuffer(tracer.BufferDesc{Name: "foo", Format: tracer.FormatUByte4, Width: 2, Height: 2})
	if err != nil {
		t.Fatal(err)
	}
	b := buf.(*Buffer)

	if err = b.Unmap(); !errors.Is(err, ErrNotMapped) {
		t.Fatalf("expected ErrNotMapped; got %v", err)
	}

	data, err := b.Map()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 16 {
		t.Fatalf("expected 16 mapped bytes; got %d", len(data))
	}
	if _, err = b.Map(); !errors.Is(err, ErrAlreadyMapped) {
		t.Fatalf("expected ErrAlreadyMapped; got %v", err)
	}
	data[0] = 42
	if err = b.Unmap(); err != nil {
		t.Fatal(err)
	}
	if b.Bytes()[0] != 42 || b.Maps != 1 || b.Unmaps != 1 {
		t.Fatalf("unexpected buffer state: data[0]=%d maps=%d unmaps=%d", b.Bytes()[0], b.Maps, b.Unmaps)
	}

	b.Release()
	if _, err = b.Map(); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased; got %v", err)
	}
}

func TestInjectedFailuresAndClose(t *testing.T) {
	dev := New()
	injected := errors.New("boom")
	dev.FailOn["BindProgram"] = injected

	if err := dev.BindProgram(tracer.StageMiss, "miss.cl", "miss"); !errors.Is(err, injected) {
		t.Fatalf("expected injected error; got %v", err)
	}
	if _, err := dev.NewGeometryInstance(tracer.GeometryParallelogram, 1, 0); err == nil {
		t.Fatal("expected an error for an unknown material handle")
	}

	if err := dev.Close(); err != nil {
		t.Fatal(err)
	}
	if err := dev.Configure(tracer.Config{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
	if got := dev.CallCount("BindProgram"); got != 1 {
		t.Fatalf("expected 1 recorded BindProgram call; got %d", got)
	}
}

func TestLaunchFillsOutput(t *testing.T) {
	dev := New()
	if err := dev.Launch(0, 1, 1); err == nil {
		t.Fatal("expected an error when no output buffer is bound")
	}

	out, err := dev.NewBuffer(tracer.BufferDesc{Name: tracer.OutputBufferName, Format: tracer.FormatFloat4, Width: 2, Height: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err = dev.SetVariable(tracer.OutputBufferName, out); err != nil {
		t.Fatal(err)
	}
	if err = dev.SetVariable("bg_color", types.XYZ(0.5, 0.25, 1)); err != nil {
		t.Fatal(err)
	}

	if err = dev.Launch(0, 4, 4); err == nil {
		t.Fatal("expected an error for a launch size that does not match the output buffer")
	}
	if err = dev.Launch(0, 2, 1); err != nil {
		t.Fatal(err)
	}

	data := out.(*Buffer).Bytes()
	for px := 0; px < 2; px++ {
		for ch, exp := range []float32{0.5, 0.25, 1, 1} {
			if got := math.Float32frombits(binary.LittleEndian.Uint32(data[px*16+ch*4:])); got != exp {
				t.Fatalf("expected pixel %d channel %d to be %f; got %f", px, ch, exp, got)
			}
		}
	}
}
