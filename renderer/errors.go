package renderer

import "errors"

var (
	ErrNoCamera          = errors.New("renderer: scene does not define a camera")
	ErrInterrupted       = errors.New("renderer: interrupted while rendering")
	ErrUnsupportedFormat = errors.New("renderer: unsupported image format")
	ErrEmptyFrame        = errors.New("renderer: frame has no pixels")
)
