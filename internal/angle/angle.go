// Package angle provides a planar angle value type used by the sidereal
// time calculations.
//
// An Angle stores a single magnitude in radians. Degrees and hours are
// projections of that one value, so converting back and forth never
// compounds rounding error from a re-derived degree value.
//
// Behavior for NaN and ±Inf inputs is not defined. Nothing panics on them,
// but the results carry no meaning.
package angle

import (
	"fmt"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// DegToArc converts degrees to radians (π/180).
const DegToArc = math.Pi / 180

// fullTurnDeg is one revolution in degrees.
const fullTurnDeg = 360.0

// Angle is a planar angle. The zero value is an angle of 0 rad.
//
// Angle has value semantics: copies are independent. Normalize is the only
// method that changes the receiver.
type Angle struct {
	arc float64 // radians
}

// FromDegree creates an Angle from a value in degrees.
// Out-of-range values are kept as they are, not wrapped.
func FromDegree(deg float64) Angle {
	return Angle{arc: deg * DegToArc}
}

// FromArc creates an Angle from a value in radians.
func FromArc(rad float64) Angle {
	return Angle{arc: rad}
}

// FromUnit creates an Angle from a soniakeys/unit angle.
func FromUnit(a unit.Angle) Angle {
	return Angle{arc: a.Rad()}
}

// Degree returns the angle in degrees.
func (a Angle) Degree() float64 {
	return a.arc / DegToArc
}

// Arc returns the angle in radians. This is the stored value.
func (a Angle) Arc() float64 {
	return a.arc
}

// Hour returns the angle as an hour angle, where 24h is one full turn
// (1h = 15°). The result is not wrapped.
func (a Angle) Hour() float64 {
	return a.arc / math.Pi * 12
}

// Normalize reduces the angle in place to the range [0°, 360°).
//
// A negative remainder from math.Mod is shifted up by a full turn. When
// that shift rounds to exactly 360° (remainders within an ulp of zero)
// the result is 0°.
func (a *Angle) Normalize() {
	deg := math.Mod(a.Degree(), fullTurnDeg)
	if deg < 0 {
		deg += fullTurnDeg
	}
	if deg >= fullTurnDeg {
		deg = 0
	}
	*a = FromDegree(deg)
}

// Normalized returns a copy of a reduced to [0°, 360°). The receiver is
// left unchanged.
func (a Angle) Normalized() Angle {
	a.Normalize()
	return a
}

// Unit returns the angle as a soniakeys/unit angle.
func (a Angle) Unit() unit.Angle {
	return unit.Angle(a.arc)
}

// String formats the angle as sexagesimal degrees, e.g. 40°30′0.000″.
func (a Angle) String() string {
	return fmt.Sprintf("%.3s", sexa.FmtAngle(a.Unit()))
}

// HourString formats the angle as sexagesimal hours, e.g. 6ʰ0ᵐ0.000ˢ.
func (a Angle) HourString() string {
	return fmt.Sprintf("%.3s", sexa.FmtHourAngle(unit.HourAngle(a.arc)))
}
