package frame

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParsePolicy decides what happens to the mass when the mass field does not
// hold a valid number.
type ParsePolicy int

const (
	// CoerceZero sets the mass to 0. This is the historical behavior of the
	// UI; the renderer then sees an infinite simulation time.
	CoerceZero ParsePolicy = iota
	// KeepPrevious leaves the last valid mass in place.
	KeepPrevious
)

func (p ParsePolicy) String() string {
	switch p {
	case CoerceZero:
		return "zero"
	case KeepPrevious:
		return "keep"
	default:
		return "unknown"
	}
}

// ParseParsePolicy parses the configuration name of a policy.
func ParseParsePolicy(s string) (ParsePolicy, error) {
	switch s {
	case "zero", "":
		return CoerceZero, nil
	case "keep":
		return KeepPrevious, nil
	default:
		return CoerceZero, fmt.Errorf("unknown mass parse policy %q (want zero or keep)", s)
	}
}

// errMassSyntax is returned for Go literal forms a plain decimal field does
// not accept: hexadecimal mantissas and digit separators.
var errMassSyntax = errors.New("invalid mass syntax")

// parseMass parses a mass field value as a decimal float ("5e30", "inf",
// "NaN"). Hex literals and underscores are rejected. Literals too large or
// too small for float64 are accepted as ±Inf or 0, like any other float
// literal.
func parseMass(s string) (float64, error) {
	if strings.ContainsRune(s, '_') || strings.Contains(s, "0x") || strings.Contains(s, "0X") {
		return 0, fmt.Errorf("%w: %q", errMassSyntax, s)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return v, nil
		}
		return 0, err
	}
	return v, nil
}
