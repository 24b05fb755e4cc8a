package renderer

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goksuguvendiren/optix-renderer/tracer"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func toByte(v float32) uint8 {
	switch {
	case v <= 0 || v != v:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Convert a frame to an 8-bit image. Frames store the bottom row first so
// the image is flipped vertically.
func FrameImage(f *tracer.Frame) (*image.NRGBA, error) {
	if f == nil || f.Width == 0 || f.Height == 0 {
		return nil, ErrEmptyFrame
	}

	img := image.NewNRGBA(image.Rect(0, 0, int(f.Width), int(f.Height)))
	for y := uint32(0); y < f.Height; y++ {
		for x := uint32(0); x < f.Width; x++ {
			px := f.At(x, y)
			img.SetNRGBA(int(x), int(f.Height-1-y), color.NRGBA{
				R: toByte(px[0]),
				G: toByte(px[1]),
				B: toByte(px[2]),
				A: 255,
			})
		}
	}
	return img, nil
}

// Write an image as a binary (P6) PPM.
func EncodePPM(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return err
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if _, err := bw.Write([]byte{c.R, c.G, c.B}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

type encoderFn func(io.Writer, image.Image) error

var encoders = map[string]encoderFn{
	".ppm":  EncodePPM,
	".png":  png.Encode,
	".bmp":  bmp.Encode,
	".tif":  func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) },
	".tiff": func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) },
}

// Save a frame to a file. The file extension selects the image format.
func SaveFrame(path string, f *tracer.Frame) error {
	ext := strings.ToLower(filepath.Ext(path))
	encode, supported := encoders[ext]
	if !supported {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	img, err := FrameImage(f)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("renderer: could not create %s: %w", path, err)
	}

	if err = encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("renderer: could not encode %s: %w", path, err)
	}
	return out.Close()
}
