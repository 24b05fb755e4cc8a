package scene

import "errors"

var (
	ErrDegenerateBasis    = errors.New("scene: degenerate camera basis")
	ErrDegenerateGeometry = errors.New("scene: degenerate geometry")
	ErrNonFinite          = errors.New("scene: non-finite value")
	ErrNoCamera           = errors.New("scene: no camera defined")
	ErrDuplicateMaterial  = errors.New("scene: duplicate material name")
	ErrMeshNotLoaded      = errors.New("scene: mesh has no triangles")
)
