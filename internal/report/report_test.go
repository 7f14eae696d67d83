package report

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/star/astrocoords/internal/angle"
)

func TestNewAngle(t *testing.T) {
	tests := []struct {
		name      string
		in        angle.Angle
		normalize bool
		degree    float64
		hour      float64
	}{
		{"raw negative", angle.FromDegree(-90), false, -90, -6},
		{"normalized negative", angle.FromDegree(-90), true, 270, 18},
		{"raw above turn", angle.FromDegree(400), false, 400, 400.0 / 15},
		{"normalized above turn", angle.FromDegree(400), true, 40, 40.0 / 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAngle(tt.in, tt.normalize)
			if got.Normalized != tt.normalize {
				t.Errorf("Normalized = %v, want %v", got.Normalized, tt.normalize)
			}
			if math.Abs(got.Degree-tt.degree) > 1e-9 {
				t.Errorf("Degree = %v, want %v", got.Degree, tt.degree)
			}
			if math.Abs(got.Hour-tt.hour) > 1e-9 {
				t.Errorf("Hour = %v, want %v", got.Hour, tt.hour)
			}
			if math.Abs(got.Arc-tt.degree*angle.DegToArc) > 1e-9 {
				t.Errorf("Arc = %v, want %v", got.Arc, tt.degree*angle.DegToArc)
			}
			if got.DMS == "" || got.HMS == "" {
				t.Errorf("empty sexagesimal fields: %+v", got)
			}
		})
	}
}

func TestNewAngleDoesNotMutate(t *testing.T) {
	a := angle.FromDegree(-1)
	NewAngle(a, true)
	if math.Abs(a.Degree()+1) > 1e-12 {
		t.Errorf("input changed to %v", a.Degree())
	}
}

func TestNewJulianDate(t *testing.T) {
	tm := time.Date(1582, 10, 15, 0, 0, 0, 0, time.UTC)
	got := NewJulianDate(tm)
	if got.JulianDate != 2299160.5 {
		t.Errorf("JulianDate = %v, want 2299160.5", got.JulianDate)
	}
	if got.Time != "1582-10-15T00:00:00Z" {
		t.Errorf("Time = %q", got.Time)
	}
	if got.JulianCenturies >= 0 {
		t.Errorf("JulianCenturies = %v, want negative before J2000", got.JulianCenturies)
	}
}

func TestGMSTJSONFlat(t *testing.T) {
	g := NewGMST(time.Date(2020, 3, 20, 3, 50, 0, 0, time.UTC), false)

	data, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"time", "julian_date", "normalized", "degree", "arc", "hour", "dms", "hms"} {
		if _, ok := parsed[key]; !ok {
			t.Errorf("missing JSON key %q in %s", key, data)
		}
	}
	if parsed["degree"].(float64) < 360 {
		t.Errorf("degree = %v, want un-normalized value above 360", parsed["degree"])
	}
}

func TestGMSTYAMLInline(t *testing.T) {
	g := NewGMST(time.Date(2020, 3, 20, 3, 50, 0, 0, time.UTC), true)

	data, err := yaml.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if _, ok := parsed["angle"]; ok {
		t.Errorf("angle fields nested, want inline: %s", data)
	}
	deg, ok := parsed["degree"].(float64)
	if !ok || deg < 0 || deg >= 360 {
		t.Errorf("degree = %v, want normalized value", parsed["degree"])
	}
}
