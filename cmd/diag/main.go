// Command diag runs the frame pipeline offline for a given mass and camera
// pose and prints what the renderer and the overlay would receive, as YAML.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/star/horizon/internal/config"
	"github.com/star/horizon/internal/display"
	"github.com/star/horizon/internal/frame"
	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/state"
	"github.com/star/horizon/internal/uniform"
	"github.com/star/horizon/internal/units"
)

type cameraReport struct {
	Eye     [3]float32 `yaml:"eye,flow"`
	Target  [3]float32 `yaml:"target,flow"`
	Right   [3]float32 `yaml:"right,flow"`
	Up      [3]float32 `yaml:"up,flow"`
	Forward [3]float32 `yaml:"forward,flow"`
	Status  string     `yaml:"status"`
	Radius  float32    `yaml:"radius"`
}

type uniformReport struct {
	Frame           uint64  `yaml:"frame"`
	SimulationTime  float32 `yaml:"simulation_time"`
	FieldOfView     float32 `yaml:"field_of_view"`
	HorizonRadiusM  float64 `yaml:"horizon_radius_m"`
	SkyboxIntensity float32 `yaml:"skybox_intensity"`
	DiscRadius      float32 `yaml:"accretion_disc_r"`
	DiscWidth       float32 `yaml:"accretion_disc_width"`
	DiscIntensity   float32 `yaml:"accretion_disc_intensity"`
	BufferBytes     int     `yaml:"buffer_bytes"`
}

type displayReport struct {
	SchwarzschildRadius float64  `yaml:"schwarzschild_radius_m"`
	HorizonDistance     float64  `yaml:"horizon_distance_m"`
	ProperDistance      float64  `yaml:"proper_distance_m"`
	Lines               []string `yaml:"lines"`
}

type unitsReport struct {
	MetersPerLength  float64 `yaml:"meters_per_unit_length"`
	SecondsPerTime   float64 `yaml:"seconds_per_unit_time"`
	ElapsedGeometric float64 `yaml:"elapsed_geometric"`
}

type report struct {
	MassText string        `yaml:"mass_text"`
	Mass     float64       `yaml:"mass_kg"`
	Policy   string        `yaml:"parse_policy"`
	Frames   uint64        `yaml:"frames"`
	Elapsed  string        `yaml:"elapsed"`
	Camera   cameraReport  `yaml:"camera"`
	Uniforms uniformReport `yaml:"uniforms"`
	Display  displayReport `yaml:"display"`
	Units    unitsReport   `yaml:"units"`
}

func main() {
	var (
		mass    = flag.String("mass", strconv.FormatFloat(state.DefaultMass, 'f', -1, 64), "mass field text, in kg")
		eye     = flag.String("eye", "0,10,40", "camera eye x,y,z (geometrized units)")
		target  = flag.String("target", "0,0,0", "camera target x,y,z")
		frames  = flag.Int("frames", 1, "frames to run")
		elapsed = flag.Duration("elapsed", time.Second, "wall time between frames")
		policy  = flag.String("policy", "zero", "mass parse policy: zero or keep")
		scene   = flag.String("config", "", "optional scene YAML file")
	)
	flag.Parse()

	if err := run(os.Stdout, *mass, *eye, *target, *frames, *elapsed, *policy, *scene); err != nil {
		fmt.Fprintln(os.Stderr, "diag:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, massText, eyeText, targetText string, frames int, step time.Duration, policyText, scenePath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := config.Default()
	if scenePath != "" {
		loaded, err := config.Load(scenePath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	eye, err := parseVec3(eyeText)
	if err != nil {
		return fmt.Errorf("-eye: %w", err)
	}
	target, err := parseVec3(targetText)
	if err != nil {
		return fmt.Errorf("-target: %w", err)
	}
	policy, err := frame.ParseParsePolicy(policyText)
	if err != nil {
		return fmt.Errorf("-policy: %w", err)
	}
	if frames < 1 {
		return fmt.Errorf("-frames must be >= 1, got %d", frames)
	}

	inputs := input.NewBoard()
	inputs.SetCamera(eye, target)
	inputs.SetText(cfg.MassTag, massText)

	store := uniform.NewStore()
	text := display.NewBoard()
	rec := state.NewRecords()
	p := frame.NewPipeline(frame.Config{
		Material:    cfg.Material,
		ParsePolicy: policy,
		MassTag:     cfg.MassTag,
	}, store, text, logger)

	var total time.Duration
	for i := 0; i < frames; i++ {
		total = time.Duration(i) * step
		if err := p.Run(inputs.Snapshot(), total, rec); err != nil {
			return err
		}
	}

	snap := store.Get()
	readout := display.Compute(rec.Camera.Position, rec.Spacetime.Mass)
	rep := report{
		MassText: massText,
		Mass:     rec.Spacetime.Mass,
		Policy:   policy.String(),
		Frames:   p.Frame(),
		Elapsed:  total.String(),
		Camera: cameraReport{
			Eye:     eye,
			Target:  target,
			Right:   rec.Camera.Right,
			Up:      rec.Camera.Up,
			Forward: rec.Camera.Forward,
			Status:  rec.Camera.Status.String(),
			Radius:  rec.Camera.Radius(),
		},
		Uniforms: uniformReport{
			Frame:           snap.Frame,
			SimulationTime:  snap.SimulationTime,
			FieldOfView:     snap.FieldOfView,
			HorizonRadiusM:  snap.Constants.HorizonRadiusSI,
			SkyboxIntensity: snap.SkyboxIntensity,
			DiscRadius:      snap.DiscRadius,
			DiscWidth:       snap.DiscWidth,
			DiscIntensity:   snap.DiscIntensity,
			BufferBytes:     len(snap.Marshal()),
		},
		Display: displayReport{
			SchwarzschildRadius: readout.SchwarzschildRadius,
			HorizonDistance:     readout.HorizonDistance,
			ProperDistance:      readout.ProperDistance,
			Lines:               strings.Split(text.Text(), "\n"),
		},
		Units: unitsReport{
			MetersPerLength:  units.LengthToSI(1, rec.Spacetime.Mass),
			SecondsPerTime:   units.TimeToSI(1, rec.Spacetime.Mass),
			ElapsedGeometric: units.TimeToGeo(float32(total.Seconds()), rec.Spacetime.Mass),
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("component %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
