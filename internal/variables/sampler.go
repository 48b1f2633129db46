// Package variables samples parametric question variables from
// "min:step:max" grids.
package variables

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

var ErrInvalidRange = errors.New("invalid range")

// maxPoints bounds the grid size so a typo like "0:0.0000001:1000" fails
// instead of producing an absurd index space.
const maxPoints = 10_000_000

const num = `([+-]?(?:\d+(?:\.\d*)?|\.\d+))`

var rangeRE = regexp.MustCompile(`^\s*` + num + `\s*:\s*` + num + `\s*:\s*` + num + `\s*$`)

// Range is a closed, discretized interval.
type Range struct {
	Min, Step, Max float64
	n              int64 // number of steps; Points() == n+1
	decimals       int
}

// ParseRange parses "min:step:max".
func ParseRange(spec string) (Range, error) {
	m := rangeRE.FindStringSubmatch(spec)
	if m == nil {
		return Range{}, fmt.Errorf("%w: %q must look like min:step:max (e.g. 1:0.5:3)", ErrInvalidRange, spec)
	}
	vals := make([]float64, 3)
	for i := range vals {
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q: %v", ErrInvalidRange, spec, err)
		}
		vals[i] = v
	}
	r := Range{Min: vals[0], Step: vals[1], Max: vals[2]}
	if r.Step <= 0 {
		return Range{}, fmt.Errorf("%w: %q: step must be > 0", ErrInvalidRange, spec)
	}
	if r.Max < r.Min {
		return Range{}, fmt.Errorf("%w: %q: max must be >= min", ErrInvalidRange, spec)
	}
	span := (r.Max - r.Min) / r.Step
	if span+1 > maxPoints {
		return Range{}, fmt.Errorf("%w: %q: more than %d grid points", ErrInvalidRange, spec, maxPoints)
	}
	r.decimals = max(decimals(m[1]), decimals(m[2]))
	r.n = int64(math.Round(span))
	for r.n > 0 && r.Point(r.n) > r.Max+1e-9*math.Max(1, math.Abs(r.Max)) {
		r.n--
	}
	return r, nil
}

// Points is the number of admissible values.
func (r Range) Points() int64 { return r.n + 1 }

// Point returns min + k*step, rounded to the precision of the literals so
// 0.1:0.1:0.3 yields 0.3 rather than 0.30000000000000004.
func (r Range) Point(k int64) float64 {
	v := r.Min + float64(k)*r.Step
	p := math.Pow(10, float64(r.decimals))
	snapped := math.Round(v*p) / p
	if math.IsInf(snapped, 0) || math.IsNaN(snapped) {
		return v
	}
	return snapped
}

// Grid materializes every admissible value in ascending order.
func (r Range) Grid() []float64 {
	out := make([]float64, 0, r.Points())
	for k := int64(0); k <= r.n; k++ {
		out = append(out, r.Point(k))
	}
	return out
}

// Draw picks one grid point uniformly.
func (r Range) Draw(src rng.Source) float64 {
	return r.Point(src.Int63n(r.Points()))
}

func (r Range) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(r.Min) + ":" + f(r.Step) + ":" + f(r.Max)
}

// Sample parses spec and draws one value from it.
func Sample(spec string, src rng.Source) (float64, error) {
	r, err := ParseRange(spec)
	if err != nil {
		return 0, err
	}
	return r.Draw(src), nil
}

func decimals(lit string) int {
	i := strings.IndexByte(lit, '.')
	if i < 0 {
		return 0
	}
	return len(lit) - i - 1
}
