package scene

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/mitchellh/reflectwalk"
)

// Validate checks the scene for data that would make the render programs
// produce undefined results: missing cameras, NaN/Inf values anywhere in
// the scene and degenerate cameras, lights or parallelograms.
func (s *Scene) Validate() error {
	if s.Camera() == nil {
		return ErrNoCamera
	}

	w := &finiteWalker{}
	if err := reflectwalk.Walk(s, w); err != nil {
		return err
	}

	for index, cam := range s.Cameras {
		if _, err := cam.Basis(); err != nil {
			return fmt.Errorf("camera %d: %w", index, err)
		}
	}

	for index, l := range s.AreaLights {
		if _, err := NewAreaLight(l.Corner, l.V1, l.V2, l.Emission); err != nil {
			return fmt.Errorf("area light %d: %w", index, err)
		}
	}

	for index, p := range s.Geometry.Parallelograms {
		if _, err := p.PlaneEquation(); err != nil {
			return fmt.Errorf("parallelogram %d: %w", index, err)
		}
	}

	return nil
}

// A reflectwalk walker that rejects NaN and infinite floats and reports
// the struct field path where they were found.
type finiteWalker struct {
	path []string
}

func (w *finiteWalker) Enter(loc reflectwalk.Location) error {
	return nil
}

func (w *finiteWalker) Exit(loc reflectwalk.Location) error {
	if loc == reflectwalk.Struct && len(w.path) > 0 {
		w.path = w.path[:len(w.path)-1]
	}
	return nil
}

func (w *finiteWalker) Struct(v reflect.Value) error {
	w.path = append(w.path, v.Type().Name())
	return nil
}

func (w *finiteWalker) StructField(field reflect.StructField, v reflect.Value) error {
	if len(w.path) > 0 {
		w.path[len(w.path)-1] = strings.SplitN(w.path[len(w.path)-1], ".", 2)[0] + "." + field.Name
	}
	return nil
}

func (w *finiteWalker) Primitive(v reflect.Value) error {
	if v.Kind() != reflect.Float32 && v.Kind() != reflect.Float64 {
		return nil
	}
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w in %s", ErrNonFinite, strings.Join(w.path, "/"))
	}
	return nil
}
