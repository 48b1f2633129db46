// Package expr evaluates the restricted arithmetic used by question
// resolutions and placeholders: numbers, bound names, unary +/-, the binary
// operators + - * / % ** and parentheses. Nothing else parses.
package expr

import (
	"errors"
	"fmt"
	"math"
)

// Env maps variable and resolution names to their values.
type Env map[string]float64

var (
	ErrInvalidExpression = errors.New("invalid expression")
	ErrUnboundName       = errors.New("unbound name")
	ErrArithmetic        = errors.New("arithmetic error")
	ErrDivisionByZero    = fmt.Errorf("%w: division by zero", ErrArithmetic)
)

// Evaluate parses and evaluates expression against env.
func Evaluate(expression string, env Env) (float64, error) {
	n, err := Parse(expression)
	if err != nil {
		return 0, err
	}
	return Eval(n, env)
}

// Eval evaluates a parsed expression.
func Eval(n Node, env Env) (float64, error) {
	v, err := n.eval(env)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrArithmetic)
	}
	return v, nil
}

// Names lists the distinct identifiers referenced by expression, in order of
// first appearance.
func Names(expression string) ([]string, error) {
	n, err := Parse(expression)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	n.walkNames(func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	})
	return out, nil
}

func (n *numberNode) eval(Env) (float64, error) { return n.v, nil }

func (n *nameNode) eval(env Env) (float64, error) {
	v, ok := env[n.name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnboundName, n.name)
	}
	return v, nil
}

func (n *unaryNode) eval(env Env) (float64, error) {
	x, err := n.x.eval(env)
	if err != nil {
		return 0, err
	}
	if n.op == tokMinus {
		return -x, nil
	}
	return x, nil
}

func (n *binaryNode) eval(env Env) (float64, error) {
	l, err := n.l.eval(env)
	if err != nil {
		return 0, err
	}
	r, err := n.r.eval(env)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case tokPlus:
		return l + r, nil
	case tokMinus:
		return l - r, nil
	case tokStar:
		return l * r, nil
	case tokSlash:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return l / r, nil
	case tokPercent:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return floorMod(l, r), nil
	case tokPow:
		if l == 0 && r < 0 {
			return 0, ErrDivisionByZero
		}
		v := math.Pow(l, r)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: %g ** %g is not a finite real number", ErrArithmetic, l, r)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: unknown operator %s", ErrInvalidExpression, n.op)
}

// floorMod is the modulo whose result carries the sign of the divisor.
func floorMod(a, b float64) float64 {
	m := math.Mod(a, b)
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

func (n *numberNode) walkNames(func(string)) {}

func (n *nameNode) walkNames(fn func(string)) { fn(n.name) }

func (n *unaryNode) walkNames(fn func(string)) { n.x.walkNames(fn) }

func (n *binaryNode) walkNames(fn func(string)) {
	n.l.walkNames(fn)
	n.r.walkNames(fn)
}
