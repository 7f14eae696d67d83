package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/soniakeys/unit"

	"github.com/star/astrocoords/internal/angle"
	"github.com/star/astrocoords/internal/metrics"
	"github.com/star/astrocoords/internal/report"
)

var (
	errAngleParam  = errors.New("exactly one of deg, arc or hour is required")
	errNotFinite   = errors.New("angle value must be finite")
	errInvalidTime = errors.New("invalid t parameter, must be RFC3339")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseTime reads the optional t query parameter; an empty value means now.
func parseTime(q url.Values, now func() time.Time) (time.Time, error) {
	v := q.Get("t")
	if v == "" {
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, errInvalidTime
	}
	return t, nil
}

// parseNormalize reads the optional normalize query parameter.
func parseNormalize(q url.Values) (bool, error) {
	v := q.Get("normalize")
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid normalize parameter %q", v)
	}
	return b, nil
}

// parseAngle builds an angle from exactly one of the deg, arc or hour
// query parameters.
func parseAngle(q url.Values) (angle.Angle, error) {
	var (
		name  string
		count int
	)
	for _, k := range []string{"deg", "arc", "hour"} {
		if q.Has(k) {
			name = k
			count++
		}
	}
	if count != 1 {
		return angle.Angle{}, errAngleParam
	}

	v, err := strconv.ParseFloat(q.Get(name), 64)
	if err != nil {
		return angle.Angle{}, fmt.Errorf("invalid %s parameter %q", name, q.Get(name))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return angle.Angle{}, errNotFinite
	}

	switch name {
	case "deg":
		return angle.FromDegree(v), nil
	case "arc":
		return angle.FromArc(v), nil
	default:
		return angle.FromUnit(unit.HourAngleFromHour(v).Angle()), nil
	}
}

// julianDateHandler serves GET /api/v1/julian-date?t=<RFC3339>.
func julianDateHandler(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := parseTime(r.URL.Query(), now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.IncComputation(metrics.KindJulianDate)
		writeJSON(w, http.StatusOK, report.NewJulianDate(t))
	}
}

// gmstHandler serves GET /api/v1/gmst?t=<RFC3339>&normalize=<bool>.
func gmstHandler(now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		t, err := parseTime(q, now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		normalize, err := parseNormalize(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.IncComputation(metrics.KindGMST)
		writeJSON(w, http.StatusOK, report.NewGMST(t, normalize))
	}
}

// angleHandler serves GET /api/v1/angle?deg=|arc=|hour=&normalize=<bool>.
func angleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		a, err := parseAngle(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		normalize, err := parseNormalize(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		metrics.IncComputation(metrics.KindAngle)
		writeJSON(w, http.StatusOK, report.NewAngle(a, normalize))
	}
}
