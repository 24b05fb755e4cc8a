package scene

import (
	"fmt"
	"math"

	"github.com/goksuguvendiren/optix-renderer/types"
)

const (
	// Vertical field of view in degrees.
	DefaultFOV float32 = 35.0

	// Upper bound for a single zoom step.
	maxZoomScale float32 = 0.9
)

// Basis holds the (unnormalized) camera vectors consumed by the ray
// generation program. U and V span the image plane and W points from the
// eye to the look-at point; its length encodes the focal distance.
type Basis struct {
	U types.Vec3
	V types.Vec3
	W types.Vec3
}

func (b Basis) String() string {
	return fmt.Sprintf(
		"U: (%3.3f, %3.3f, %3.3f) V: (%3.3f, %3.3f, %3.3f) W: (%3.3f, %3.3f, %3.3f)",
		b.U[0], b.U[1], b.U[2],
		b.V[0], b.V[1], b.V[2],
		b.W[0], b.W[1], b.W[2],
	)
}

// The camera type controls the scene camera.
type Camera struct {
	Eye    types.Vec3
	LookAt types.Vec3
	Up     types.Vec3

	// A one-shot rotation delta; reset to identity by Update.
	Rotation types.Mat4

	// Vertical FOV in degrees.
	FOV float32

	// Output width / height.
	Aspect float32

	// Number of sequential frames rendered from the current camera
	// position. Reset to 1 whenever the camera changes.
	FrameNumber uint32

	// Set when the camera was modified since the last Update.
	Changed bool
}

// Create a new camera for an output plane with the given dimensions.
func NewCamera(eye, lookAt, up types.Vec3, width, height uint32) *Camera {
	c := &Camera{
		Eye:      eye,
		LookAt:   lookAt,
		Up:       up,
		Rotation: types.Ident4(),
		FOV:      DefaultFOV,
		Changed:  true,
	}
	c.SetAspect(width, height)
	return c
}

// Create a camera looking down the +Z axis of the classic cornell box.
func DefaultCamera(width, height uint32) *Camera {
	return NewCamera(
		types.XYZ(278.0, 273.0, -900.0),
		types.XYZ(278.0, 273.0, 0.0),
		types.XYZ(0.0, 1.0, 0.0),
		width, height,
	)
}

// Update the aspect ratio for a new output size.
func (c *Camera) SetAspect(width, height uint32) {
	if height == 0 {
		height = 1
	}
	c.Aspect = float32(width) / float32(height)
	c.Changed = true
}

// Queue a rotation delta to be applied by the next Update.
func (c *Camera) Rotate(rotation types.Mat4) {
	c.Rotation = rotation
	c.Changed = true
}

// Move the eye towards the look-at point by a fraction of their distance.
func (c *Camera) Zoom(scale float32) {
	if scale > maxZoomScale {
		scale = maxZoomScale
	}
	c.Eye = c.Eye.Add(c.LookAt.Sub(c.Eye).Mul(scale))
	c.Changed = true
}

// Signal that the camera changed so that the next update restarts any
// progressive accumulation.
func (c *Camera) MarkChanged() {
	c.Changed = true
}

// Basis computes the camera vectors for the current state without
// modifying the camera.
func (c *Camera) Basis() (Basis, error) {
	return CalculateBasis(c.Eye, c.LookAt, c.Up, c.FOV, c.Aspect)
}

// Update applies the pending rotation, refreshes the camera vectors and
// advances the frame counter.
//
// The rotation is applied twice, framed in camera space, which matches the
// rotation speed users of the original viewer are accustomed to. If the
// camera basis is degenerate the camera is left untouched.
func (c *Camera) Update() (Basis, error) {
	basis, err := c.Basis()
	if err != nil {
		return Basis{}, err
	}

	frame := types.FromBasis(
		basis.U.Normalize(),
		basis.V.Normalize(),
		basis.W.Mul(-1).Normalize(),
		c.LookAt,
	)
	trans := frame.Mul4(c.Rotation).Mul4(c.Rotation).Mul4(frame.Inv())

	eye := trans.TransformPoint(c.Eye)
	lookAt := trans.TransformPoint(c.LookAt)
	up := trans.TransformDir(c.Up)

	basis, err = CalculateBasis(eye, lookAt, up, c.FOV, c.Aspect)
	if err != nil {
		return Basis{}, err
	}

	c.Eye, c.LookAt, c.Up = eye, lookAt, up
	c.Rotation = types.Ident4()

	if c.Changed {
		c.FrameNumber = 1
	} else {
		c.FrameNumber++
	}
	c.Changed = false

	return basis, nil
}

// CalculateBasis derives the U, V, W camera vectors using a vertical FOV
// convention.
func CalculateBasis(eye, lookAt, up types.Vec3, fov, aspect float32) (Basis, error) {
	w := lookAt.Sub(eye)
	wLen := w.Len()
	if wLen == 0 || !w.IsFinite() {
		return Basis{}, fmt.Errorf("%w: eye and look-at point coincide", ErrDegenerateBasis)
	}

	uDir := w.Cross(up)
	if uDir.IsZero() || !uDir.IsFinite() {
		return Basis{}, fmt.Errorf("%w: up vector is zero or parallel to the view direction", ErrDegenerateBasis)
	}
	u := uDir.Normalize()
	v := u.Cross(w).Normalize()

	vLen := wLen * float32(math.Tan(0.5*float64(fov)*math.Pi/180.0))
	uLen := vLen * aspect

	return Basis{
		U: u.Mul(uLen),
		V: v.Mul(vLen),
		W: w,
	}, nil
}
