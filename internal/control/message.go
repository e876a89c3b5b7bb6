// Package control carries input updates from remote collaborators into the
// input board and pushes each new uniform snapshot back over a websocket.
//
// Clients send JSON text frames:
//
//	{"type":"camera","eye":[0,10,40],"target":[0,0,0]}
//	{"type":"clear_camera"}
//	{"type":"window","window":{"x":0,"y":0,"width":1280,"height":720}}
//	{"type":"text","tag":"SpacetimeParamsM","value":"5e30"}
//
// The server answers with msgpack-encoded snapshots in binary frames, and
// with a JSON {"type":"error","error":"..."} text frame for rejected input.
package control

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/state"
)

// Message types.
const (
	TypeCamera      = "camera"
	TypeClearCamera = "clear_camera"
	TypeWindow      = "window"
	TypeText        = "text"
)

var (
	// ErrUnknownType is returned for a message type Apply does not handle.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMissingField is returned when a message lacks a required field.
	ErrMissingField = errors.New("missing field")
	// ErrNotFinite is returned for a camera coordinate that is NaN or infinite.
	ErrNotFinite = errors.New("coordinate not finite")
	// ErrBadVector is returned when a vector does not have exactly three components.
	ErrBadVector = errors.New("vector must have 3 components")
)

// Vector is an x, y, z triple. It decodes only from a JSON array of exactly
// three numbers.
type Vector [3]float32

// UnmarshalJSON rejects arrays shorter or longer than three elements.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var parts []float32
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("%w, got %d", ErrBadVector, len(parts))
	}
	copy(v[:], parts)
	return nil
}

// Message is one input update.
type Message struct {
	Type   string                `json:"type"`
	Eye    *Vector               `json:"eye,omitempty"`
	Target *Vector               `json:"target,omitempty"`
	Window *state.WindowGeometry `json:"window,omitempty"`
	Tag    string                `json:"tag,omitempty"`
	Value  string                `json:"value,omitempty"`
}

// Apply writes msg to board. A camera message without a target looks at
// the origin. The board is not modified when an error is returned.
func Apply(board *input.Board, msg Message) error {
	switch msg.Type {
	case TypeCamera:
		if msg.Eye == nil {
			return fmt.Errorf("%s: %w: eye", msg.Type, ErrMissingField)
		}
		eye := mgl32.Vec3(*msg.Eye)
		var target mgl32.Vec3
		if msg.Target != nil {
			target = mgl32.Vec3(*msg.Target)
		}
		if !finite(eye) || !finite(target) {
			return fmt.Errorf("%s: %w", msg.Type, ErrNotFinite)
		}
		board.SetCamera(eye, target)
	case TypeClearCamera:
		board.ClearCamera()
	case TypeWindow:
		if msg.Window == nil {
			return fmt.Errorf("%s: %w: window", msg.Type, ErrMissingField)
		}
		board.SetWindow(*msg.Window)
	case TypeText:
		if msg.Tag == "" {
			return fmt.Errorf("%s: %w: tag", msg.Type, ErrMissingField)
		}
		board.SetText(msg.Tag, msg.Value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return nil
}

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
