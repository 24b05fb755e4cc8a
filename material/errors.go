package material

import "errors"

var (
	ErrUnsupportedType = errors.New("material: unsupported material type")
	ErrMissingName     = errors.New("material: material name is empty")
	ErrNilBinder       = errors.New("material: no program binder supplied")
)
