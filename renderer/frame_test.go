package renderer

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/goksuguvendiren/optix-renderer/tracer"
	"golang.org/x/image/bmp"
)

func testFrame() *tracer.Frame {
	f := tracer.NewFrame(2, 2)
	// Bottom row red, top row green
	copy(f.Pix, []float32{
		1, 0, 0, 1, 2, -1, 0, 1,
		0, 1, 0, 1, 0, 0.5, 0, 1,
	})
	return f
}

func TestFrameImageIsFlipped(t *testing.T) {
	img, err := FrameImage(testFrame())
	if err != nil {
		t.Fatal(err)
	}

	type spec struct {
		x, y    int
		r, g, b uint8
	}
	specs := []spec{
		{0, 0, 0, 255, 0},
		{1, 0, 0, 128, 0},
		{0, 1, 255, 0, 0},
		// Out of range values are clamped
		{1, 1, 255, 0, 0},
	}
	for index, s := range specs {
		c := img.NRGBAAt(s.x, s.y)
		if c.R != s.r || c.G != s.g || c.B != s.b || c.A != 255 {
			t.Fatalf("[spec %d] expected pixel (%d, %d) to be (%d, %d, %d); got %v", index, s.x, s.y, s.r, s.g, s.b, c)
		}
	}

	if _, err = FrameImage(tracer.NewFrame(0, 0)); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("expected ErrEmptyFrame; got %v", err)
	}
}

func TestEncodePPM(t *testing.T) {
	img, err := FrameImage(testFrame())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err = EncodePPM(&buf, img); err != nil {
		t.Fatal(err)
	}

	exp := append([]byte("P6\n2 2\n255\n"), 0, 255, 0, 0, 128, 0, 255, 0, 0, 255, 0, 0)
	if !bytes.Equal(buf.Bytes(), exp) {
		t.Fatalf("expected ppm data %v; got %v", exp, buf.Bytes())
	}
}

func TestSaveFrame(t *testing.T) {
	dir := t.TempDir()
	f := testFrame()

	for _, name := range []string{"out.ppm", "out.PNG", "out.bmp", "out.tiff"} {
		if err := SaveFrame(filepath.Join(dir, name), f); err != nil {
			t.Fatalf("[%s] unexpected error: %v", name, err)
		}
	}

	pngFile, err := os.Open(filepath.Join(dir, "out.PNG"))
	if err != nil {
		t.Fatal(err)
	}
	defer pngFile.Close()
	img, err := png.Decode(pngFile)
	if err != nil {
		t.Fatal(err)
	}
	if r, g, _, _ := img.At(0, 0).RGBA(); r != 0 || g != 0xffff {
		t.Fatalf("expected top-left png pixel to be green; got r=%d g=%d", r, g)
	}

	bmpFile, err := os.Open(filepath.Join(dir, "out.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	defer bmpFile.Close()
	if img, err = bmp.Decode(bmpFile); err != nil {
		t.Fatal(err)
	}
	if r, _, _, _ := img.At(0, 1).RGBA(); r != 0xffff {
		t.Fatalf("expected bottom-left bmp pixel to be red; got r=%d", r)
	}

	if err = SaveFrame(filepath.Join(dir, "out.exr"), f); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat; got %v", err)
	}
}
