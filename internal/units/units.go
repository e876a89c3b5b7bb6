// Package units converts between SI units and geometrized units.
//
// In geometrized units G = c = 1 and the central mass M sets the scale:
// one unit of length is GM/c² meters and one unit of time is GM/c³ seconds.
// The Schwarzschild radius of a non-rotating black hole is 2 in these units.
//
// All conversions are evaluated in float64 so that results are reproducible
// and do not overflow for long-running sessions (c³/G is ~4e35, which leaves
// float32 only a few minutes of headroom before +Inf).
package units

// NewtonConstant is the gravitational constant in m³ kg⁻¹ s⁻².
const NewtonConstant = 6.67e-11

// LightSpeed is the speed of light in m/s.
const LightSpeed = 299_792_458.0

// SchwarzschildRadius is the event horizon radius in geometrized units.
const SchwarzschildRadius = 2

// LengthToSI converts a geometrized length to meters for the given mass (kg).
// A zero mass yields 0; a negative value yields a negative length.
func LengthToSI(value float32, mass float64) float64 {
	return mass * (float64(value) * NewtonConstant / (LightSpeed * LightSpeed))
}

// LengthToGeo converts meters to a geometrized length for the given mass (kg).
// A zero mass yields ±Inf (or NaN for zero meters).
func LengthToGeo(meters, mass float64) float64 {
	return meters * (LightSpeed * LightSpeed) / (NewtonConstant * mass)
}

// TimeToGeo converts elapsed seconds to geometrized time for the given mass (kg).
//
// Division by a zero mass is not guarded: it yields +Inf (NaN for a zero
// value), which callers must tolerate.
func TimeToGeo(value float32, mass float64) float64 {
	return (float64(value) * (LightSpeed * LightSpeed * LightSpeed) / NewtonConstant) / mass
}

// TimeToSI converts geometrized time to seconds for the given mass (kg).
func TimeToSI(geo, mass float64) float64 {
	return geo * mass * NewtonConstant / (LightSpeed * LightSpeed * LightSpeed)
}
