package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLengthToSI_SchwarzschildRadius(t *testing.T) {
	// r_s = 2GM/c² for M = 1e34 kg is ~1.4843e7 m.
	rs := LengthToSI(SchwarzschildRadius, 1e34)
	assert.InDelta(t, 1.4843e7, rs, 1e4)

	want := 2 * NewtonConstant * 1e34 / (LightSpeed * LightSpeed)
	assert.InEpsilon(t, want, rs, 1e-12)
}

func TestLengthToSI_Monotonic(t *testing.T) {
	masses := []float64{1, 1e20, 1e30, 1e34, 5e40}
	values := []float32{-10, -1, 0, 0.5, 2, 40, 1e6}

	for _, m := range masses {
		for i := 1; i < len(values); i++ {
			lo := LengthToSI(values[i-1], m)
			hi := LengthToSI(values[i], m)
			if !(hi > lo) {
				t.Errorf("mass %g: LengthToSI(%g)=%g not > LengthToSI(%g)=%g", m, values[i], hi, values[i-1], lo)
			}
		}
	}

	for _, v := range []float32{0.5, 2, 40} {
		for i := 1; i < len(masses); i++ {
			lo := LengthToSI(v, masses[i-1])
			hi := LengthToSI(v, masses[i])
			if !(hi > lo) {
				t.Errorf("value %g: LengthToSI at mass %g = %g not > at mass %g = %g", v, masses[i], hi, masses[i-1], lo)
			}
		}
	}
}

func TestLengthToSI_EdgeValues(t *testing.T) {
	assert.Equal(t, 0.0, LengthToSI(40, 0), "zero mass")
	assert.Less(t, LengthToSI(-2, 1e34), 0.0, "negative value stays negative")
}

func TestLengthRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 1, 2, 6, 40, 1000} {
		m := LengthToSI(v, 1e34)
		assert.InDelta(t, float64(v), LengthToGeo(m, 1e34), 1e-9*math.Max(1, float64(v)), "value %g", v)
	}
}

func TestTimeToGeo_Zero(t *testing.T) {
	for _, m := range []float64{1, 1e30, 1e34, 1e40} {
		if got := TimeToGeo(0, m); got != 0 {
			t.Errorf("TimeToGeo(0, %g) = %g, want 0", m, got)
		}
	}
}

func TestTimeToGeo_ZeroMass(t *testing.T) {
	assert.True(t, math.IsInf(TimeToGeo(1, 0), 1), "positive time over zero mass is +Inf")
	assert.True(t, math.IsNaN(TimeToGeo(0, 0)), "zero time over zero mass is NaN")
}

func TestTimeToGeo_LongSession(t *testing.T) {
	// An hour of wall-clock time must stay finite.
	got := TimeToGeo(3600, 1e34)
	assert.False(t, math.IsInf(got, 0))
	assert.InEpsilon(t, 3600*LightSpeed*LightSpeed*LightSpeed/NewtonConstant/1e34, got, 1e-12)
}

func TestTimeRoundTrip(t *testing.T) {
	geo := TimeToGeo(12.5, 1e34)
	assert.InEpsilon(t, 12.5, TimeToSI(geo, 1e34), 1e-12)
}

func TestDeterministic(t *testing.T) {
	a := LengthToSI(38.98717, 1e34)
	b := LengthToSI(38.98717, 1e34)
	if math.Float64bits(a) != math.Float64bits(b) {
		t.Errorf("LengthToSI not reproducible: %v vs %v", a, b)
	}
	c := TimeToGeo(1.25, 3e31)
	d := TimeToGeo(1.25, 3e31)
	if math.Float64bits(c) != math.Float64bits(d) {
		t.Errorf("TimeToGeo not reproducible: %v vs %v", c, d)
	}
}
