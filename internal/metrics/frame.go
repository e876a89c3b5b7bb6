package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horizon_frames_total",
		Help: "Total number of frames run by the pipeline.",
	})

	frameDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "horizon_frame_duration_seconds",
		Help:    "Wall-clock duration of one pipeline frame.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	})

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "horizon_stage_duration_seconds",
			Help:    "Wall-clock duration of one pipeline stage.",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.01},
		},
		[]string{"stage"},
	)

	degenerateFramesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horizon_degenerate_frames_total",
		Help: "Frames whose camera basis was degenerate.",
	})

	massParseFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "horizon_mass_parse_failures_total",
		Help: "Mass field values that did not parse as a number.",
	})

	massKilograms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "horizon_mass_kilograms",
		Help: "Current mass of the central body in kg.",
	})
)

func init() {
	prometheus.MustRegister(framesTotal)
	prometheus.MustRegister(frameDurationSeconds)
	prometheus.MustRegister(stageDurationSeconds)
	prometheus.MustRegister(degenerateFramesTotal)
	prometheus.MustRegister(massParseFailuresTotal)
	prometheus.MustRegister(massKilograms)
}

// IncFrames counts one completed frame.
func IncFrames() {
	framesTotal.Inc()
}

// ObserveFrameDuration records the duration of one frame.
func ObserveFrameDuration(d time.Duration) {
	frameDurationSeconds.Observe(d.Seconds())
}

// ObserveStageDuration records the duration of one stage.
func ObserveStageDuration(stage string, d time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// IncDegenerateFrames counts a frame with a degenerate camera basis.
func IncDegenerateFrames() {
	degenerateFramesTotal.Inc()
}

// AddMassParseFailures counts unparsable mass field values.
func AddMassParseFailures(n int) {
	massParseFailuresTotal.Add(float64(n))
}

// SetMass publishes the current mass.
func SetMass(kg float64) {
	massKilograms.Set(kg)
}
