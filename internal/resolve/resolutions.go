// Package resolve turns a parametric question into a concrete one: it samples
// the variables, evaluates the resolutions and substitutes every placeholder.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/expr"
	"github.com/mind-engage/mindengage-quizgen/internal/placeholder"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

// ErrDuplicateBinding is returned when a name would be bound twice. The
// environment is write-once.
var ErrDuplicateBinding = errors.New("name already bound")

// EvaluateResolutions evaluates res in declaration order and binds each result
// into env. A resolution may reference variables and earlier resolutions only.
func EvaluateResolutions(res *question.OrderedMap, env expr.Env) error {
	for _, e := range res.Entries() {
		if _, bound := env[e.Key]; bound {
			return fmt.Errorf("resolution %q: %w", e.Key, ErrDuplicateBinding)
		}
		src, err := placeholder.Substitute(e.Value, env)
		if err != nil {
			return fmt.Errorf("resolution %q: %w", e.Key, err)
		}
		v, err := expr.Evaluate(src, env)
		if err != nil {
			if missing := unbound(src, env); len(missing) > 1 {
				return fmt.Errorf("resolution %q: %w (unbound: %s)", e.Key, err, strings.Join(missing, ", "))
			}
			return fmt.Errorf("resolution %q: %w", e.Key, err)
		}
		env[e.Key] = v
	}
	return nil
}

// unbound lists every name in src that env does not bind.
func unbound(src string, env expr.Env) []string {
	names, err := expr.Names(src)
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range names {
		if _, ok := env[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}
