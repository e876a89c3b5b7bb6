// Package input collects the latest values reported by the external
// collaborators (camera controller, window, UI text fields).
//
// Collaborators write to a Board at any time from any goroutine. The frame
// loop takes one Snapshot at the start of each frame, so every stage in a
// frame sees the same inputs.
package input

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/state"
)

// MassFieldTag tags the text field holding the mass in kg.
const MassFieldTag = "SpacetimeParamsM"

// Look is a camera controller pose.
type Look struct {
	Eye    mgl32.Vec3
	Target mgl32.Vec3
}

// TextInput is the current value of one tagged text field.
type TextInput struct {
	Tag   string
	Value string
}

// Snapshot is an immutable view of the inputs at frame start.
type Snapshot struct {
	Look      Look
	HasCamera bool
	Window    state.WindowGeometry
	HasWindow bool
	Texts     []TextInput
}

// Board holds the latest input values. Safe for concurrent use.
type Board struct {
	mu        sync.Mutex
	look      Look
	hasCamera bool
	window    state.WindowGeometry
	hasWindow bool
	texts     []TextInput
}

// NewBoard creates an empty board: no camera, no window, no text fields.
func NewBoard() *Board {
	return &Board{}
}

// SetCamera reports the camera controller pose.
func (b *Board) SetCamera(eye, target mgl32.Vec3) {
	b.mu.Lock()
	b.look = Look{Eye: eye, Target: target}
	b.hasCamera = true
	b.mu.Unlock()
}

// ClearCamera reports that no camera controller exists.
func (b *Board) ClearCamera() {
	b.mu.Lock()
	b.hasCamera = false
	b.mu.Unlock()
}

// SetWindow reports the window geometry.
func (b *Board) SetWindow(w state.WindowGeometry) {
	b.mu.Lock()
	b.window = w
	b.hasWindow = true
	b.mu.Unlock()
}

// SetText sets the value of the field with the given tag, adding the field
// if it does not exist yet. Fields keep their creation order.
func (b *Board) SetText(tag, value string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.texts {
		if b.texts[i].Tag == tag {
			b.texts[i].Value = value
			return
		}
	}
	b.texts = append(b.texts, TextInput{Tag: tag, Value: value})
}

// Text returns the value of the field with the given tag.
func (b *Board) Text(tag string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range b.texts {
		if t.Tag == tag {
			return t.Value, true
		}
	}
	return "", false
}

// Camera returns the last reported camera pose.
func (b *Board) Camera() (Look, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.look, b.hasCamera
}

// Snapshot copies the current inputs.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	texts := make([]TextInput, len(b.texts))
	copy(texts, b.texts)

	return Snapshot{
		Look:      b.look,
		HasCamera: b.hasCamera,
		Window:    b.window,
		HasWindow: b.hasWindow,
		Texts:     texts,
	}
}
