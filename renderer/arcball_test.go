package renderer

import (
	"testing"

	"github.com/goksuguvendiren/optix-renderer/types"
)

func TestArcballToSphere(t *testing.T) {
	a := DefaultArcball()

	type spec struct {
		in  types.Vec2
		exp types.Vec3
	}
	specs := []spec{
		{types.XY(0.5, 0.5), types.XYZ(0, 0, 1)},
		// Window y points down
		{types.XY(0.5, 0.05), types.XYZ(0, 1, 0)},
		{types.XY(0.95, 0.5), types.XYZ(1, 0, 0)},
		// Outside the sphere
		{types.XY(0.5, 10), types.XYZ(0, -1, 0)},
	}

	for index, s := range specs {
		got := a.ToSphere(s.in)
		for i := 0; i < 3; i++ {
			if abs32(got[i]-s.exp[i]) > 1e-4 {
				t.Fatalf("[spec %d] expected %v; got %v", index, s.exp, got)
			}
		}
		if abs32(got.Len()-1) > 1e-4 {
			t.Fatalf("[spec %d] expected a unit vector; got length %f", index, got.Len())
		}
	}
}

func TestArcballRotate(t *testing.T) {
	a := DefaultArcball()

	if !a.Rotate(types.XY(0.3, 0.4), types.XY(0.3, 0.4)).IsIdent() {
		t.Fatal("expected identity rotation for a zero-length drag")
	}

	from, to := types.XY(0.5, 0.5), types.XY(0.95, 0.5)
	m := a.Rotate(from, to)
	got := m.TransformDir(a.ToSphere(from))
	exp := a.ToSphere(to)
	for i := 0; i < 3; i++ {
		if abs32(got[i]-exp[i]) > 1e-4 {
			t.Fatalf("expected rotation to take %v onto %v; got %v", a.ToSphere(from), exp, got)
		}
	}
}
