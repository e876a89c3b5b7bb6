// Package frame runs the per-frame update pipeline.
//
// Every frame runs the same stages, once each, in this order:
//
//  1. window    - input window geometry      -> Records.Window
//  2. camera    - input camera pose          -> Records.Camera
//  3. spacetime - input mass text field      -> Records.Spacetime
//  4. export    - Camera + Spacetime + clock -> uniform sink
//  5. display   - Camera + Spacetime         -> display text target
//
// Stages 1-3 each write only their own record and are skipped when their
// input is missing. Stages 4-5 only read records, so they always see the
// values of the current frame. A missing uniform sink or display target is a
// configuration error and stops the pipeline.
package frame

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/star/horizon/internal/camera"
	"github.com/star/horizon/internal/display"
	"github.com/star/horizon/internal/input"
	"github.com/star/horizon/internal/metrics"
	"github.com/star/horizon/internal/state"
	"github.com/star/horizon/internal/uniform"
)

var (
	// ErrNoUniformSink is returned when the pipeline has nowhere to export.
	ErrNoUniformSink = errors.New("no uniform sink")
	// ErrNoDisplayTarget is returned when the pipeline has nowhere to show diagnostics.
	ErrNoDisplayTarget = errors.New("no display text target")
)

// Stage names, in execution order.
const (
	StageWindow    = "window"
	StageCamera    = "camera"
	StageSpacetime = "spacetime"
	StageExport    = "export"
	StageDisplay   = "display"
)

// Stages lists the stage names in execution order.
var Stages = []string{StageWindow, StageCamera, StageSpacetime, StageExport, StageDisplay}

// UniformSink receives the renderer snapshot of each frame.
type UniformSink interface {
	Publish(uniform.Snapshot)
}

// TextTarget receives the diagnostics text of each frame.
type TextTarget interface {
	SetText(string)
}

// Config holds pipeline configuration.
type Config struct {
	Material    uniform.Material
	ParsePolicy ParsePolicy
	MassTag     string // substring identifying the mass field (default: input.MassFieldTag)
}

// Pipeline runs the ordered stages against caller-owned records.
// Not safe for concurrent use; one goroutine drives it.
type Pipeline struct {
	config Config
	sink   UniformSink
	target TextTarget
	logger *slog.Logger

	frame      uint64
	lastStatus camera.Status
	lastText   string
}

// NewPipeline creates a pipeline. sink and target may be nil, in which case
// Run fails with ErrNoUniformSink or ErrNoDisplayTarget.
func NewPipeline(config Config, sink UniformSink, target TextTarget, logger *slog.Logger) *Pipeline {
	if config.MassTag == "" {
		config.MassTag = input.MassFieldTag
	}
	return &Pipeline{
		config:     config,
		sink:       sink,
		target:     target,
		logger:     logger,
		lastStatus: camera.Orthonormal,
	}
}

// Frame returns the number of frames run so far.
func (p *Pipeline) Frame() uint64 {
	return p.frame
}

// Run executes one frame. in is the input snapshot taken at frame start and
// elapsed is wall-clock time since the session started.
func (p *Pipeline) Run(in input.Snapshot, elapsed time.Duration, rec *state.Records) error {
	p.frame++
	frameStart := time.Now()

	p.timed(StageWindow, func() error {
		WindowStage(in, &rec.Window)
		return nil
	})
	p.timed(StageCamera, func() error {
		if CameraStage(in, &rec.Camera) {
			p.noteBasis(rec.Camera.Status)
		}
		return nil
	})
	p.timed(StageSpacetime, func() error {
		p.spacetime(in, &rec.Spacetime)
		return nil
	})
	if err := p.timed(StageExport, func() error {
		return ExportStage(p.frame, rec.Camera, rec.Spacetime, elapsed, p.config.Material, p.sink)
	}); err != nil {
		return fmt.Errorf("frame %d: %w", p.frame, err)
	}
	if err := p.timed(StageDisplay, func() error {
		return p.display(rec.Camera, rec.Spacetime)
	}); err != nil {
		return fmt.Errorf("frame %d: %w", p.frame, err)
	}

	metrics.IncFrames()
	metrics.ObserveFrameDuration(time.Since(frameStart))
	metrics.SetMass(rec.Spacetime.Mass)
	return nil
}

func (p *Pipeline) timed(stage string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStageDuration(stage, time.Since(start))
	return err
}

// noteBasis logs transitions into and out of the degenerate basis.
func (p *Pipeline) noteBasis(status camera.Status) {
	if status == camera.Degenerate {
		metrics.IncDegenerateFrames()
	}
	if status == p.lastStatus {
		return
	}
	if status == camera.Degenerate {
		p.logger.Warn("camera basis degenerate", "frame", p.frame)
	} else {
		p.logger.Info("camera basis restored", "frame", p.frame)
	}
	p.lastStatus = status
}

func (p *Pipeline) spacetime(in input.Snapshot, sp *state.SpacetimeParams) {
	res := SpacetimeStage(in, p.config.MassTag, p.config.ParsePolicy, sp)
	if res.Failed > 0 {
		metrics.AddMassParseFailures(res.Failed)
		p.logger.Debug("mass field not a number",
			"frame", p.frame,
			"value", res.LastValue,
			"policy", p.config.ParsePolicy.String(),
			"mass", sp.Mass,
		)
	}
}

func (p *Pipeline) display(cf state.CameraFrame, sp state.SpacetimeParams) error {
	text, err := DisplayStage(cf, sp, p.target)
	if err != nil {
		return err
	}
	if text != p.lastText {
		p.logger.Debug("display updated", "frame", p.frame, "text", text)
		p.lastText = text
	}
	return nil
}

// WindowStage overwrites w with the input window geometry.
// Returns false, leaving w untouched, when no window is reported.
func WindowStage(in input.Snapshot, w *state.WindowGeometry) bool {
	if !in.HasWindow {
		return false
	}
	*w = in.Window
	return true
}

// CameraStage overwrites cf with the frame derived from the input camera pose.
// Returns false, leaving the stale frame in place, when no camera is reported.
func CameraStage(in input.Snapshot, cf *state.CameraFrame) bool {
	if !in.HasCamera {
		return false
	}
	*cf = state.NewCameraFrame(in.Look.Eye, camera.Axes(in.Look.Eye, in.Look.Target))
	return true
}

// SpacetimeResult summarizes one spacetime stage run.
type SpacetimeResult struct {
	Matched   int    // text fields whose tag contains the mass tag
	Failed    int    // matched fields that did not parse
	LastValue string // value of the last matched field
}

// SpacetimeStage assigns the mass from every text field whose tag contains
// massTag, in field order, so the last one wins. A value that does not parse
// is handled according to policy.
func SpacetimeStage(in input.Snapshot, massTag string, policy ParsePolicy, sp *state.SpacetimeParams) SpacetimeResult {
	var res SpacetimeResult
	for _, t := range in.Texts {
		if !strings.Contains(t.Tag, massTag) {
			continue
		}
		res.Matched++
		res.LastValue = t.Value

		mass, err := parseMass(t.Value)
		if err != nil {
			res.Failed++
			if policy == KeepPrevious {
				continue
			}
			mass = 0
		}
		sp.Mass = mass
	}
	return res
}

// ExportStage builds the frame's renderer snapshot and hands it to sink.
func ExportStage(frame uint64, cf state.CameraFrame, sp state.SpacetimeParams, elapsed time.Duration, m uniform.Material, sink UniformSink) error {
	if sink == nil {
		return ErrNoUniformSink
	}
	sink.Publish(uniform.Build(frame, cf, sp, elapsed, m))
	return nil
}

// DisplayStage renders the horizon distances to target and returns the text.
func DisplayStage(cf state.CameraFrame, sp state.SpacetimeParams, target TextTarget) (string, error) {
	if target == nil {
		return "", ErrNoDisplayTarget
	}
	text := display.Compute(cf.Position, sp.Mass).Text()
	target.SetText(text)
	return text, nil
}
