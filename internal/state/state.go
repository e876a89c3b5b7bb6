// Package state holds the records the frame pipeline keeps between frames.
//
// Each record has exactly one writer: the pipeline stage responsible for it.
// Records carries no locks; it is owned by the goroutine running the
// pipeline and passed to each stage by pointer. Anything that must be read
// from other goroutines is published separately (see package uniform).
package state

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/camera"
)

// DefaultMass is the mass of the central body at process start, in kg.
const DefaultMass = 1e34

// WindowGeometry mirrors the output window position and size in pixels.
type WindowGeometry struct {
	X      uint32 `json:"x" yaml:"x"`
	Y      uint32 `json:"y" yaml:"y"`
	Width  uint32 `json:"width" yaml:"width"`
	Height uint32 `json:"height" yaml:"height"`
}

// AspectRatio returns width/height, or 0 for an empty window.
func (w WindowGeometry) AspectRatio() float32 {
	if w.Height == 0 {
		return 0
	}
	return float32(w.Width) / float32(w.Height)
}

// CameraFrame is the camera position and basis for the current frame.
// The zero value is a degenerate frame at the origin.
//
// A degenerate frame has zero Right and Up. Forward is zero when eye equals
// target, but stays the unit view direction for a straight up or down view.
type CameraFrame struct {
	Position mgl32.Vec3
	Right    mgl32.Vec3
	Up       mgl32.Vec3
	Forward  mgl32.Vec3
	Status   camera.Status
}

// NewCameraFrame combines an eye position with its derived basis.
func NewCameraFrame(eye mgl32.Vec3, b camera.Basis) CameraFrame {
	return CameraFrame{
		Position: eye,
		Right:    b.Right,
		Up:       b.Up,
		Forward:  b.Forward,
		Status:   b.Status,
	}
}

// Radius returns the distance of the camera from the central mass in
// geometrized units.
func (c CameraFrame) Radius() float32 {
	return c.Position.Len()
}

// SpacetimeParams are the physical parameters of the spacetime.
type SpacetimeParams struct {
	Mass float64 // kg
}

// DefaultSpacetimeParams returns the parameters used at process start.
func DefaultSpacetimeParams() SpacetimeParams {
	return SpacetimeParams{Mass: DefaultMass}
}

// Records groups the three per-frame records. They are independently
// updated; only the fixed stage order keeps them mutually consistent.
type Records struct {
	Window    WindowGeometry
	Camera    CameraFrame
	Spacetime SpacetimeParams
}

// NewRecords returns records in their start-of-process state.
func NewRecords() *Records {
	return &Records{
		Spacetime: DefaultSpacetimeParams(),
	}
}
