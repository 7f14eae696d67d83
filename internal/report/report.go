// Package report builds the serialized views of angles and sidereal times
// shared by the HTTP API, the SSE stream and the CLI.
package report

import (
	"time"

	"github.com/star/astrocoords/internal/angle"
	"github.com/star/astrocoords/internal/sidereal"
)

// Angle is the serialized form of an angle in every supported unit.
type Angle struct {
	Normalized bool    `json:"normalized" yaml:"normalized"`
	Degree     float64 `json:"degree" yaml:"degree"`
	Arc        float64 `json:"arc" yaml:"arc"`
	Hour       float64 `json:"hour" yaml:"hour"`
	DMS        string  `json:"dms" yaml:"dms"`
	HMS        string  `json:"hms" yaml:"hms"`
}

// JulianDate is the serialized Julian Date for an instant.
type JulianDate struct {
	Time            string  `json:"time" yaml:"time"`
	JulianDate      float64 `json:"julian_date" yaml:"julian_date"`
	JulianCenturies float64 `json:"julian_centuries" yaml:"julian_centuries"`
}

// GMST is the serialized Greenwich Mean Sidereal Time for an instant.
type GMST struct {
	Time       string  `json:"time" yaml:"time"`
	JulianDate float64 `json:"julian_date" yaml:"julian_date"`
	Angle      `yaml:",inline"`
}

// NewAngle renders a. When normalize is set, a copy of a is reduced to
// [0°, 360°) first; a itself is never modified.
func NewAngle(a angle.Angle, normalize bool) Angle {
	if normalize {
		a = a.Normalized()
	}
	return Angle{
		Normalized: normalize,
		Degree:     a.Degree(),
		Arc:        a.Arc(),
		Hour:       a.Hour(),
		DMS:        a.String(),
		HMS:        a.HourString(),
	}
}

// NewJulianDate computes the Julian Date view for t.
func NewJulianDate(t time.Time) JulianDate {
	return JulianDate{
		Time:            t.UTC().Format(time.RFC3339),
		JulianDate:      sidereal.JulianDate(t),
		JulianCenturies: sidereal.JulianCenturies(t),
	}
}

// NewGMST computes the GMST view for t.
func NewGMST(t time.Time, normalize bool) GMST {
	return GMST{
		Time:       t.UTC().Format(time.RFC3339),
		JulianDate: sidereal.JulianDate(t),
		Angle:      NewAngle(sidereal.GMST(t), normalize),
	}
}
