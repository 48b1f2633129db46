// Package placeholder expands <...> spans embedded in question text.
package placeholder

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/expr"
)

// spans never nest; "<>" is a valid, empty placeholder.
var spanRE = regexp.MustCompile(`<([^<>]*)>`)

const intTolerance = 1e-9

// Format renders v as a bare integer when it is within 1e-9 of one,
// otherwise with two decimals.
func Format(v float64) string {
	r := math.Round(v)
	if math.Abs(v-r) < intTolerance {
		if r == 0 {
			return "0"
		}
		if math.Abs(r) < 1<<62 {
			return strconv.FormatInt(int64(r), 10)
		}
		return strconv.FormatFloat(r, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Substitute replaces every placeholder in text. The inner content is either a
// bound name or an arithmetic expression over bound names.
func Substitute(text string, env expr.Env) (string, error) {
	matches := spanRE.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}
	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		last = m[1]
		inner := strings.TrimSpace(text[m[2]:m[3]])
		if inner == "" {
			continue
		}
		if v, ok := env[inner]; ok {
			b.WriteString(Format(v))
			continue
		}
		v, err := expr.Evaluate(inner, env)
		if err != nil {
			return "", fmt.Errorf("placeholder %q: %w", text[m[0]:m[1]], err)
		}
		b.WriteString(Format(v))
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// SubstituteValue applies Substitute to every string reachable from v through
// slices and maps. Other values are returned untouched. Containers are
// rebuilt, never modified in place.
func SubstituteValue(v any, env expr.Env) (any, error) {
	switch t := v.(type) {
	case string:
		return Substitute(t, env)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			r, err := Substitute(s, env)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			r, err := SubstituteValue(e, env)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			r, err := SubstituteValue(e, env)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			r, err := Substitute(s, env)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	default:
		return v, nil
	}
}
