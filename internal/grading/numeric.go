package grading

import (
	"math"
	"strconv"
	"strings"
)

// Tolerance bounds a numeric match. A negative field is disabled.
type Tolerance struct {
	Abs float64 `json:"abs"`
	Rel float64 `json:"rel"`
}

// NoTolerance accepts only an exact numeric match.
var NoTolerance = Tolerance{Abs: -1, Rel: -1}

func (t Tolerance) accepts(got, want float64) bool {
	diff := math.Abs(got - want)
	if diff == 0 {
		return true
	}
	if t.Abs >= 0 && diff <= t.Abs {
		return true
	}
	return t.Rel >= 0 && diff <= t.Rel*math.Abs(want)
}

// parseFloatLoose reads a number from the start of s, accepting a decimal
// comma and a trailing unit ("9,8 m/s2").
func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	first := strings.Fields(s)[0]
	if v, err := strconv.ParseFloat(first, 64); err == nil {
		return v, true
	}
	if strings.Count(first, ",") == 1 && !strings.Contains(first, ".") {
		if v, err := strconv.ParseFloat(strings.Replace(first, ",", ".", 1), 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// parseTolerances reads "tol=0.01" and "reltol=0.05" terms, separated by
// commas or whitespace, on top of base.
func parseTolerances(spec string, base Tolerance) Tolerance {
	out := base
	terms := strings.FieldsFunc(spec, func(r rune) bool { return r == ',' || r == ';' || r == ' ' })
	for _, k := range terms {
		k = strings.ToLower(strings.TrimSpace(k))
		switch {
		case strings.HasPrefix(k, "tol="):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(k, "tol="), 64); err == nil {
				out.Abs = v
			}
		case strings.HasPrefix(k, "reltol="):
			if v, err := strconv.ParseFloat(strings.TrimPrefix(k, "reltol="), 64); err == nil {
				out.Rel = v
			}
		}
	}
	return out
}
