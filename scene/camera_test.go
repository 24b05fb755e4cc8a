package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/goksuguvendiren/optix-renderer/types"
)

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}

func vecApproxEq(a, b types.Vec3, eps float32) bool {
	for i := 0; i < 3; i++ {
		if abs32(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

func TestCameraBasisIsOrthogonal(t *testing.T) {
	type spec struct {
		eye, lookAt, up types.Vec3
	}
	specs := []spec{
		{types.XYZ(278, 273, -900), types.XYZ(278, 273, 0), types.XYZ(0, 1, 0)},
		{types.XYZ(0, 0, 0), types.XYZ(0, 0, -1), types.XYZ(0, 1, 0)},
		{types.XYZ(1, 2, 3), types.XYZ(-4, 5, 6), types.XYZ(0.2, 1, 0.1)},
		{types.XYZ(10, 10, 10), types.XYZ(0, 0, 0), types.XYZ(0, 0, 1)},
	}

	for index, s := range specs {
		cam := NewCamera(s.eye, s.lookAt, s.up, 640, 480)
		basis, err := cam.Update()
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}

		u, v, w := basis.U.Normalize(), basis.V.Normalize(), basis.W.Normalize()
		for _, d := range []float32{u.Dot(v), u.Dot(w), v.Dot(w)} {
			if abs32(d) > 1e-4 {
				t.Fatalf("[spec %d] expected orthogonal basis; got dot products %f, %f, %f", index, u.Dot(v), u.Dot(w), v.Dot(w))
			}
		}

		// Vertical fov convention: |U| = |V| * aspect
		expULen := basis.V.Len() * cam.Aspect
		if abs32(basis.U.Len()-expULen)/expULen > 1e-4 {
			t.Fatalf("[spec %d] expected |U| to be %f; got %f", index, expULen, basis.U.Len())
		}
	}
}

func TestCameraBasisScaling(t *testing.T) {
	basis, err := CalculateBasis(types.XYZ(278, 273, -900), types.XYZ(278, 273, 0), types.XYZ(0, 1, 0), DefaultFOV, 1.0)
	if err != nil {
		t.Fatal(err)
	}

	if !vecApproxEq(basis.W, types.XYZ(0, 0, 900), 1e-3) {
		t.Fatalf("expected W to be unnormalized lookat - eye; got %v", basis.W)
	}

	expVLen := float32(900 * math.Tan(0.5*35*math.Pi/180))
	if abs32(basis.V.Len()-expVLen) > 1e-2 {
		t.Fatalf("expected |V| to be %f; got %f", expVLen, basis.V.Len())
	}

	// V points up, U points to the left for a camera looking down +Z with +Y up
	if basis.V[1] <= 0 {
		t.Fatalf("expected V to point along +Y; got %v", basis.V)
	}
	if basis.U[0] >= 0 {
		t.Fatalf("expected U to point along -X; got %v", basis.U)
	}
}

func TestCameraIdentityRotationKeepsState(t *testing.T) {
	eye, lookAt, up := types.XYZ(1, 2, 3), types.XYZ(-4, 5, 6), types.XYZ(0, 1, 0)
	cam := NewCamera(eye, lookAt, up, 512, 512)
	for i := 0; i < 3; i++ {
		if _, err := cam.Update(); err != nil {
			t.Fatal(err)
		}
	}

	if !vecApproxEq(cam.Eye, eye, 1e-3) {
		t.Fatalf("expected eye to remain %v; got %v", eye, cam.Eye)
	}
	if !vecApproxEq(cam.LookAt, lookAt, 1e-3) {
		t.Fatalf("expected lookat to remain %v; got %v", lookAt, cam.LookAt)
	}
	if !vecApproxEq(cam.Up, up, 1e-4) {
		t.Fatalf("expected up to remain %v; got %v", up, cam.Up)
	}
}

func TestCameraRotationIsAppliedTwice(t *testing.T) {
	cam := DefaultCamera(512, 512)

	// A 10 degree rotation around the camera-space up axis.
	angle := float32(10 * math.Pi / 180)
	cam.Rotate(types.QuatFromAxisAngle(types.XYZ(0, 1, 0), angle).Mat4())
	if _, err := cam.Update(); err != nil {
		t.Fatal(err)
	}

	if !cam.Rotation.IsIdent() {
		t.Fatal("expected rotation to be reset to identity after update")
	}

	// The lookat point is the pivot.
	if !vecApproxEq(cam.LookAt, types.XYZ(278, 273, 0), 1e-2) {
		t.Fatalf("expected lookat to stay fixed; got %v", cam.LookAt)
	}

	// The eye orbits the lookat point by twice the requested angle.
	before := types.XYZ(0, 0, -900).Normalize()
	after := cam.Eye.Sub(cam.LookAt).Normalize()
	got := float32(math.Acos(float64(before.Dot(after))))
	if abs32(got-2*angle) > 1e-3 {
		t.Fatalf("expected eye to orbit by %f rad; got %f", 2*angle, got)
	}

	if d := cam.Eye.Sub(cam.LookAt).Len(); abs32(d-900) > 1e-1 {
		t.Fatalf("expected orbit to preserve the focal distance; got %f", d)
	}
}

func TestCameraFrameCounter(t *testing.T) {
	cam := DefaultCamera(512, 512)

	type spec struct {
		markChanged bool
		expFrame    uint32
	}
	specs := []spec{
		// A new camera is always considered changed
		{false, 1},
		{false, 2},
		{false, 3},
		{true, 1},
		{false, 2},
		{true, 1},
		{true, 1},
		{false, 2},
	}

	for index, s := range specs {
		if s.markChanged {
			cam.MarkChanged()
		}
		if _, err := cam.Update(); err != nil {
			t.Fatal(err)
		}
		if cam.FrameNumber != s.expFrame {
			t.Fatalf("[spec %d] expected frame number %d; got %d", index, s.expFrame, cam.FrameNumber)
		}
	}
}

func TestCameraMutatorsMarkChanged(t *testing.T) {
	cam := DefaultCamera(512, 512)
	if _, err := cam.Update(); err != nil {
		t.Fatal(err)
	}

	cam.Zoom(0.5)
	if !cam.Changed {
		t.Fatal("expected zoom to mark camera as changed")
	}
	if !vecApproxEq(cam.Eye, types.XYZ(278, 273, -450), 1e-3) {
		t.Fatalf("expected eye to move half way to the lookat point; got %v", cam.Eye)
	}

	// Zoom steps are clamped
	cam.Zoom(5)
	if !vecApproxEq(cam.Eye, types.XYZ(278, 273, -45), 1e-2) {
		t.Fatalf("expected clamped zoom step; got eye %v", cam.Eye)
	}

	cam.Changed = false
	cam.SetAspect(1024, 512)
	if !cam.Changed || cam.Aspect != 2 {
		t.Fatalf("expected aspect 2 and changed flag; got %f, %t", cam.Aspect, cam.Changed)
	}
}

func TestDegenerateCamera(t *testing.T) {
	type spec struct {
		eye, lookAt, up types.Vec3
	}
	specs := []spec{
		// eye == lookat
		{types.XYZ(1, 1, 1), types.XYZ(1, 1, 1), types.XYZ(0, 1, 0)},
		// up parallel to view direction
		{types.XYZ(0, 0, 0), types.XYZ(0, 10, 0), types.XYZ(0, 1, 0)},
		// zero up vector
		{types.XYZ(0, 0, 0), types.XYZ(0, 0, 1), types.XYZ(0, 0, 0)},
		// NaN
		{types.XYZ(float32(math.NaN()), 0, 0), types.XYZ(0, 0, 1), types.XYZ(0, 1, 0)},
	}

	for index, s := range specs {
		cam := NewCamera(s.eye, s.lookAt, s.up, 512, 512)
		_, err := cam.Update()
		if !errors.Is(err, ErrDegenerateBasis) {
			t.Fatalf("[spec %d] expected ErrDegenerateBasis; got %v", index, err)
		}
		if cam.FrameNumber != 0 {
			t.Fatalf("[spec %d] expected failed update to leave the frame counter untouched; got %d", index, cam.FrameNumber)
		}
	}
}
