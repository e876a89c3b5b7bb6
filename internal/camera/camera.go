// Package camera derives the orthonormal camera basis that the renderer
// uses to cast view rays.
//
// The basis is built from an eye/target pair without a cross product against
// a fixed up vector. Instead the view direction is projected onto the
// horizontal plane and rotated -90° about world up to get Right, which keeps
// Right horizontal for any pitch. Up is the true forward vector rotated +90°
// about Right, so it tilts with the camera and never flips sign.
//
// Conventions: +Y is world up. Right × Up = -Forward.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Status tags whether a Basis can be used to cast rays.
type Status int

const (
	// Degenerate means the basis could not be built: eye == target, or the
	// view direction is purely vertical. Right and Up are zero.
	Degenerate Status = iota
	// Orthonormal means Right, Up and Forward are pairwise orthogonal unit vectors.
	Orthonormal
)

func (s Status) String() string {
	switch s {
	case Orthonormal:
		return "orthonormal"
	case Degenerate:
		return "degenerate"
	default:
		return "unknown"
	}
}

// WorldUp is the +Y axis.
var WorldUp = mgl32.Vec3{0, 1, 0}

// Basis is the camera frame derived from an eye/target pair.
type Basis struct {
	Right   mgl32.Vec3
	Up      mgl32.Vec3
	Forward mgl32.Vec3 // zero when eye == target
	Status  Status
}

// OK reports whether the basis is orthonormal.
func (b Basis) OK() bool {
	return b.Status == Orthonormal
}

// Axes derives the camera basis looking from eye towards target.
//
// A vertical view keeps the normalized Forward but reports Degenerate with
// zero Right and Up. eye == target reports Degenerate with all three zero.
// Neither case panics or produces NaN.
func Axes(eye, target mgl32.Vec3) Basis {
	forward := NormalizeOrZero(target.Sub(eye))

	xz := NormalizeOrZero(mgl32.Vec3{forward.X(), 0, forward.Z()})
	if xz == (mgl32.Vec3{}) {
		return Basis{Forward: forward, Status: Degenerate}
	}

	right := mgl32.QuatRotate(-math.Pi/2, WorldUp).Rotate(xz)
	up := mgl32.QuatRotate(math.Pi/2, right).Rotate(forward)

	return Basis{
		Right:   right,
		Up:      up,
		Forward: forward,
		Status:  Orthonormal,
	}
}

// NormalizeOrZero returns v scaled to unit length, or the zero vector when
// v has no usable length (zero, subnormal underflow, NaN or Inf components).
func NormalizeOrZero(v mgl32.Vec3) mgl32.Vec3 {
	rcp := 1 / float64(v.Len())
	if math.IsInf(rcp, 0) || math.IsNaN(rcp) || rcp <= 0 {
		return mgl32.Vec3{}
	}
	return v.Mul(float32(rcp))
}
