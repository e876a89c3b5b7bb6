package state

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/camera"
)

func TestNewRecords_Defaults(t *testing.T) {
	rec := NewRecords()

	if rec.Spacetime.Mass != 1e34 {
		t.Errorf("default mass = %g, want 1e34", rec.Spacetime.Mass)
	}
	if rec.Camera.Status != camera.Degenerate {
		t.Errorf("initial camera status = %v, want degenerate", rec.Camera.Status)
	}
	if rec.Window != (WindowGeometry{}) {
		t.Errorf("initial window = %+v, want zero", rec.Window)
	}
}

func TestNewCameraFrame(t *testing.T) {
	eye := mgl32.Vec3{0, 10, 40}
	b := camera.Axes(eye, mgl32.Vec3{})
	cf := NewCameraFrame(eye, b)

	if cf.Position != eye {
		t.Errorf("position = %v, want %v", cf.Position, eye)
	}
	if cf.Right != b.Right || cf.Up != b.Up || cf.Forward != b.Forward {
		t.Errorf("basis not copied: %+v vs %+v", cf, b)
	}
	if cf.Status != camera.Orthonormal {
		t.Errorf("status = %v, want orthonormal", cf.Status)
	}
}

func TestNewCameraFrame_VerticalView(t *testing.T) {
	eye := mgl32.Vec3{0, 40, 0}
	cf := NewCameraFrame(eye, camera.Axes(eye, mgl32.Vec3{}))

	if cf.Status != camera.Degenerate {
		t.Errorf("status = %v, want degenerate", cf.Status)
	}
	if cf.Right != (mgl32.Vec3{}) || cf.Up != (mgl32.Vec3{}) {
		t.Errorf("right/up = %v/%v, want zero", cf.Right, cf.Up)
	}
	if l := cf.Forward.Len(); l < 0.999 || l > 1.001 {
		t.Errorf("|forward| = %v, want 1", l)
	}
}

func TestCameraFrameRadius(t *testing.T) {
	cf := CameraFrame{Position: mgl32.Vec3{0, 0, 40}}
	if r := cf.Radius(); r != 40 {
		t.Errorf("radius = %v, want 40", r)
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w    WindowGeometry
		want float32
	}{
		{WindowGeometry{Width: 1920, Height: 1080}, 1920.0 / 1080.0},
		{WindowGeometry{Width: 800, Height: 800}, 1},
		{WindowGeometry{Width: 800}, 0},
	}
	for _, tt := range tests {
		if got := tt.w.AspectRatio(); got != tt.want {
			t.Errorf("AspectRatio(%+v) = %v, want %v", tt.w, got, tt.want)
		}
	}
}
