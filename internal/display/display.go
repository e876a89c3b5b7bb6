// Package display formats horizon-relative distances for the diagnostics
// overlay.
package display

import (
	"fmt"
	"math"
	"strconv"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/star/horizon/internal/units"
)

// Readout holds the three distances shown to the user, in meters.
//
// For a camera inside the horizon (r < 2) ProperDistance is NaN and
// HorizonDistance is negative; both are shown as-is.
type Readout struct {
	SchwarzschildRadius float64
	HorizonDistance     float64 // signed, r - 2 in meters
	ProperDistance      float64 // radial proper length from the horizon
}

// Compute derives the readout for a camera at position (geometrized units)
// around the given mass (kg).
//
// The proper radial distance from r = 2 to r is the closed form of
// ∫ dr / sqrt(1 - 2/r):
//
//	sqrt(r)·sqrt(r-2) + ln(r + sqrt(r)·sqrt(r-2) - 1)
func Compute(position mgl32.Vec3, mass float64) Readout {
	r := position.Len()

	rr := float64(r)
	root := math.Sqrt(rr) * math.Sqrt(rr-2)
	proper := float32(root + math.Log(rr+root-1))

	return Readout{
		SchwarzschildRadius: units.LengthToSI(units.SchwarzschildRadius, mass),
		HorizonDistance:     units.LengthToSI(r-2, mass),
		ProperDistance:      units.LengthToSI(proper, mass),
	}
}

// Text renders the readout as three lines.
func (r Readout) Text() string {
	return fmt.Sprintf("Schwarzschild radius: %s m\nDifference in r from event horizon: %s m\nProper distance from event horizon: %s m",
		formatFloat(r.SchwarzschildRadius),
		formatFloat(r.HorizonDistance),
		formatFloat(r.ProperDistance),
	)
}

// formatFloat prints v in plain decimal notation with the fewest digits
// that round-trip. NaN prints as "NaN", infinities as "+Inf"/"-Inf".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Board is the display text target. Safe for concurrent use.
type Board struct {
	text atomic.Pointer[string]
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// SetText replaces the displayed text.
func (b *Board) SetText(s string) {
	b.text.Store(&s)
}

// Text returns the displayed text, or "" before the first frame.
func (b *Board) Text() string {
	if s := b.text.Load(); s != nil {
		return *s
	}
	return ""
}
