package types

import (
	"math"
	"testing"
)

func approxEq(a, b Vec3, eps float32) bool {
	for i := 0; i < 3; i++ {
		if float32(math.Abs(float64(a[i]-b[i]))) > eps {
			return false
		}
	}
	return true
}

func TestFromBasisInverse(t *testing.T) {
	m := FromBasis(
		XYZ(1, 0, 0),
		XYZ(0, 0, 1),
		XYZ(0, -1, 0),
		XYZ(10, 20, 30),
	)

	p := XYZ(1, 2, 3)
	got := m.Inv().TransformPoint(m.TransformPoint(p))
	if !approxEq(got, p, 1e-4) {
		t.Fatalf("expected round-tripped point to be %v; got %v", p, got)
	}

	if !m.Mul4(m.Inv()).IsIdent() {
		t.Fatal("expected m * inv(m) to be the identity matrix")
	}

	// Directions ignore translation
	d := m.TransformDir(XYZ(1, 0, 0))
	if !approxEq(d, XYZ(1, 0, 0), 1e-6) {
		t.Fatalf("expected transformed direction to be (1, 0, 0); got %v", d)
	}
}

func TestQuatBetween(t *testing.T) {
	type spec struct {
		from Vec3
		to   Vec3
	}
	specs := []spec{
		{XYZ(0, 0, 1), XYZ(0, 0, 1)},
		{XYZ(0, 0, 1), XYZ(1, 0, 0)},
		{XYZ(0, 1, 0), XYZ(0, 0, 1)},
		{XYZ(1, 0, 0), XYZ(-1, 0, 0)},
		{XYZ(0.6, 0.8, 0), XYZ(0, 0.6, 0.8)},
	}

	for index, s := range specs {
		q := QuatBetween(s.from, s.to)
		got := q.Rotate(s.from)
		if !approxEq(got, s.to, 1e-4) {
			t.Fatalf("[spec %d] expected quaternion to rotate %v to %v; got %v", index, s.from, s.to, got)
		}

		got = q.Mat4().TransformDir(s.from)
		if !approxEq(got, s.to, 1e-4) {
			t.Fatalf("[spec %d] expected rotation matrix to rotate %v to %v; got %v", index, s.from, s.to, got)
		}
	}
}

func TestVectorHelpers(t *testing.T) {
	if n := XYZ(0, 0, 0).Normalize(); n != (Vec3{}) {
		t.Fatalf("expected normalizing a zero vector to return the zero vector; got %v", n)
	}

	if l := XYZ(3, 0, 4).Normalize().Len(); math.Abs(float64(l-1)) > 1e-6 {
		t.Fatalf("expected unit length; got %f", l)
	}

	nan := float32(math.NaN())
	if XYZ(1, nan, 0).IsFinite() {
		t.Fatal("expected vector with NaN component to be reported as non-finite")
	}

	if got := XYZ(1, 0, 0).Cross(XYZ(0, 1, 0)); got != XYZ(0, 0, 1) {
		t.Fatalf("expected x cross y to be z; got %v", got)
	}
}
