// Package config loads the scene file: the initial camera, the renderer
// material constants and the frame rate. Deployment settings (address,
// auth, stream limits) come from the environment and are read in main.
package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/uniform"
)

// Config is the scene configuration.
type Config struct {
	FrameRate int              `yaml:"frame_rate"`
	MassTag   string           `yaml:"mass_tag"`
	Camera    CameraConfig     `yaml:"camera"`
	Material  uniform.Material `yaml:"material"`
}

// CameraConfig is the initial camera pose in geometrized units.
type CameraConfig struct {
	Eye    [3]float32 `yaml:"eye"`
	Target [3]float32 `yaml:"target"`
}

// EyeVec returns the eye as a vector.
func (c CameraConfig) EyeVec() mgl32.Vec3 { return mgl32.Vec3(c.Eye) }

// TargetVec returns the target as a vector.
func (c CameraConfig) TargetVec() mgl32.Vec3 { return mgl32.Vec3(c.Target) }

// Default returns the built-in scene: a camera at (0, 10, 40) looking at
// the hole, 60 frames per second, and the default material.
func Default() *Config {
	return &Config{
		FrameRate: 60,
		MassTag:   input.MassFieldTag,
		Camera: CameraConfig{
			Eye:    [3]float32{0, 10, 40},
			Target: [3]float32{0, 0, 0},
		},
		Material: uniform.DefaultMaterial(),
	}
}

// Load reads a scene file. Fields missing from the file keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func Validate(cfg *Config) error {
	if cfg.FrameRate < 1 || cfg.FrameRate > 1000 {
		return fmt.Errorf("frame_rate must be 1-1000, got %d", cfg.FrameRate)
	}
	if cfg.MassTag == "" {
		return fmt.Errorf("mass_tag is required")
	}

	for i := 0; i < 3; i++ {
		if !finite(cfg.Camera.Eye[i]) || !finite(cfg.Camera.Target[i]) {
			return fmt.Errorf("camera coordinates must be finite")
		}
	}

	m := cfg.Material
	if !finite(m.FieldOfView) || m.FieldOfView <= 0 || m.FieldOfView >= math.Pi {
		return fmt.Errorf("material.field_of_view must be in (0, pi) radians, got %v", m.FieldOfView)
	}
	for name, v := range map[string]float32{
		"skybox_intensity":         m.SkyboxIntensity,
		"accretion_disc_radius":    m.DiscRadius,
		"accretion_disc_width":     m.DiscWidth,
		"accretion_disc_intensity": m.DiscIntensity,
	} {
		if !finite(v) || v < 0 {
			return fmt.Errorf("material.%s must be a finite value >= 0, got %v", name, v)
		}
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
