// Package uniform builds the input block consumed by the ray-marching
// renderer and publishes it to readers outside the frame loop.
package uniform

import (
	"encoding/json"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/camera"
	"github.com/star/horizon/internal/state"
	"github.com/star/horizon/internal/units"
)

// Material holds the renderer constants that do not change per frame.
// Disc radius and width are in geometrized units.
type Material struct {
	FieldOfView     float32 `yaml:"field_of_view"`
	SkyboxIntensity float32 `yaml:"skybox_intensity"`
	DiscRadius      float32 `yaml:"accretion_disc_radius"`
	DiscWidth       float32 `yaml:"accretion_disc_width"`
	DiscIntensity   float32 `yaml:"accretion_disc_intensity"`
}

// DefaultMaterial returns a 90° field of view with a disc starting at the
// innermost stable circular orbit (r = 6).
func DefaultMaterial() Material {
	return Material{
		FieldOfView:     math.Pi / 2,
		SkyboxIntensity: 0.7,
		DiscRadius:      6,
		DiscWidth:       12,
		DiscIntensity:   0.8,
	}
}

// MassConstants are values the shader would otherwise recompute per pixel.
type MassConstants struct {
	Mass            float64 `msgpack:"mass_kg"`
	HorizonRadius   float32 `msgpack:"horizon_radius"`
	HorizonRadiusSI float64 `msgpack:"horizon_radius_m"`
}

// Snapshot is one frame's renderer input.
type Snapshot struct {
	Frame          uint64        `msgpack:"frame"`
	CameraPosition mgl32.Vec3    `msgpack:"camera_position"`
	CameraRight    mgl32.Vec3    `msgpack:"camera_right"`
	CameraUp       mgl32.Vec3    `msgpack:"camera_up"`
	CameraForward  mgl32.Vec3    `msgpack:"camera_forward"`
	BasisValid     bool          `msgpack:"basis_valid"`
	FieldOfView    float32       `msgpack:"field_of_view"`
	SimulationTime float32       `msgpack:"simulation_time"`
	Constants      MassConstants `msgpack:"mass_constants"`

	SkyboxIntensity float32 `msgpack:"skybox_intensity"`
	DiscRadius      float32 `msgpack:"accretion_disc_r"`
	DiscWidth       float32 `msgpack:"accretion_disc_width"`
	DiscIntensity   float32 `msgpack:"accretion_disc_intensity"`
}

// Build combines the camera frame and spacetime parameters of one frame.
// elapsed is wall-clock time since the session started.
func Build(frame uint64, cf state.CameraFrame, sp state.SpacetimeParams, elapsed time.Duration, m Material) Snapshot {
	return Snapshot{
		Frame:          frame,
		CameraPosition: cf.Position,
		CameraRight:    cf.Right,
		CameraUp:       cf.Up,
		CameraForward:  cf.Forward,
		BasisValid:     cf.Status == camera.Orthonormal,
		FieldOfView:    m.FieldOfView,
		SimulationTime: float32(units.TimeToGeo(float32(elapsed.Seconds()), sp.Mass)),
		Constants: MassConstants{
			Mass:            sp.Mass,
			HorizonRadius:   units.SchwarzschildRadius,
			HorizonRadiusSI: units.LengthToSI(units.SchwarzschildRadius, sp.Mass),
		},
		SkyboxIntensity: m.SkyboxIntensity,
		DiscRadius:      m.DiscRadius,
		DiscWidth:       m.DiscWidth,
		DiscIntensity:   m.DiscIntensity,
	}
}

// finite returns nil for NaN and ±Inf so the value encodes as JSON null.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finite32(v float32) *float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return nil
	}
	return &v
}

type massConstantsJSON struct {
	Mass            *float64 `json:"mass_kg"`
	HorizonRadius   float32  `json:"horizon_radius"`
	HorizonRadiusSI *float64 `json:"horizon_radius_m"`
}

type snapshotJSON struct {
	Frame           uint64            `json:"frame"`
	CameraPosition  mgl32.Vec3        `json:"camera_position"`
	CameraRight     mgl32.Vec3        `json:"camera_right"`
	CameraUp        mgl32.Vec3        `json:"camera_up"`
	CameraForward   mgl32.Vec3        `json:"camera_forward"`
	BasisValid      bool              `json:"basis_valid"`
	FieldOfView     float32           `json:"field_of_view"`
	SimulationTime  *float32          `json:"simulation_time"`
	Constants       massConstantsJSON `json:"mass_constants"`
	SkyboxIntensity float32           `json:"skybox_intensity"`
	DiscRadius      float32           `json:"accretion_disc_r"`
	DiscWidth       float32           `json:"accretion_disc_width"`
	DiscIntensity   float32           `json:"accretion_disc_intensity"`
}

// MarshalJSON encodes non-finite values (zero or infinite mass) as null,
// which encoding/json cannot represent otherwise.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{
		Frame:          s.Frame,
		CameraPosition: s.CameraPosition,
		CameraRight:    s.CameraRight,
		CameraUp:       s.CameraUp,
		CameraForward:  s.CameraForward,
		BasisValid:     s.BasisValid,
		FieldOfView:    s.FieldOfView,
		SimulationTime: finite32(s.SimulationTime),
		Constants: massConstantsJSON{
			Mass:            finite(s.Constants.Mass),
			HorizonRadius:   s.Constants.HorizonRadius,
			HorizonRadiusSI: finite(s.Constants.HorizonRadiusSI),
		},
		SkyboxIntensity: s.SkyboxIntensity,
		DiscRadius:      s.DiscRadius,
		DiscWidth:       s.DiscWidth,
		DiscIntensity:   s.DiscIntensity,
	})
}
