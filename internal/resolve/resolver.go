package resolve

import (
	"fmt"

	"github.com/mind-engage/mindengage-quizgen/internal/expr"
	"github.com/mind-engage/mindengage-quizgen/internal/placeholder"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
	"github.com/mind-engage/mindengage-quizgen/internal/variables"
)

// All resolves a copy of q. With a set seed the result depends only on the
// seed and the question's id, statement and alternative count; without one
// every call draws fresh values.
func All(q *question.Question, seed rng.Seed) (*question.Question, expr.Env, error) {
	var src rng.Source
	if seed.IsSet() {
		src = rng.ForQuestion(seed, q)
	} else {
		src = rng.Unseeded()
	}
	return With(q, src)
}

// With is All with an explicit random source. q is never modified.
func With(q *question.Question, src rng.Source) (*question.Question, expr.Env, error) {
	out := q.Clone()
	env := expr.Env{}

	for _, v := range out.Variables.Entries() {
		if _, bound := env[v.Key]; bound {
			return nil, nil, fmt.Errorf("question %d: variable %q: %w", q.ID, v.Key, ErrDuplicateBinding)
		}
		x, err := variables.Sample(v.Value, src)
		if err != nil {
			return nil, nil, fmt.Errorf("question %d: variable %q: %w", q.ID, v.Key, err)
		}
		env[v.Key] = x
	}
	if err := EvaluateResolutions(out.Resolutions, env); err != nil {
		return nil, nil, fmt.Errorf("question %d: %w", q.ID, err)
	}
	if err := substituteFields(out, env); err != nil {
		return nil, nil, fmt.Errorf("question %d: %w", q.ID, err)
	}
	return out, env, nil
}

func substituteFields(q *question.Question, env expr.Env) error {
	var err error
	if q.Statement, err = placeholder.Substitute(q.Statement, env); err != nil {
		return fmt.Errorf("enunciado: %w", err)
	}
	if q.Correct, err = placeholder.Substitute(q.Correct, env); err != nil {
		return fmt.Errorf("correta: %w", err)
	}
	for i, a := range q.Alternatives {
		if q.Alternatives[i], err = placeholder.Substitute(a, env); err != nil {
			return fmt.Errorf("alternativas[%d]: %w", i, err)
		}
	}
	for i, n := range q.Notes.Items {
		if q.Notes.Items[i], err = placeholder.Substitute(n, env); err != nil {
			return fmt.Errorf("obs: %w", err)
		}
	}
	if err := substituteMap("afirmacoes", q.Statements, env); err != nil {
		return err
	}
	return substituteMap("resolucoes", q.Resolutions, env)
}

func substituteMap(field string, m *question.OrderedMap, env expr.Env) error {
	for _, e := range m.Entries() {
		s, err := placeholder.Substitute(e.Value, env)
		if err != nil {
			return fmt.Errorf("%s[%q]: %w", field, e.Key, err)
		}
		m.Set(e.Key, s)
	}
	return nil
}
