// Package grading scores student responses against a generated exam.
package grading

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

var ErrInvalidResponse = errors.New("invalid response")

// Extra keys a question may carry to tune grading.
const (
	extraPoints    = "pontos"
	extraTolerance = "tolerancia"
)

// Response is one answer. Choice is a zero-based alternative index; Value is
// free text or a number.
type Response struct {
	QuestionID int64  `json:"question_id"`
	Choice     *int   `json:"choice,omitempty"`
	Value      string `json:"value,omitempty"`
}

// Result is the outcome of grading a single question response.
type Result struct {
	QuestionID  int64    `json:"question_id"`
	AutoPoints  float64  `json:"auto_points"`
	MaxPoints   float64  `json:"max_points"`
	NeedsManual bool     `json:"needs_manual"`
	Feedback    []string `json:"feedback,omitempty"`
}

// Report aggregates the results of one exam submission.
type Report struct {
	Results     []Result `json:"results"`
	AutoPoints  float64  `json:"auto_points"`
	MaxPoints   float64  `json:"max_points"`
	NeedsManual int      `json:"needs_manual"`
}

// Strategy grades a single kind of response.
type Strategy interface {
	Grade(ctx context.Context, it pipeline.Item, r Response, res Result) (Result, error)
}

type kind string

const (
	kindChoice  kind = "choice"
	kindNumeric kind = "numeric"
	kindText    kind = "text"
)

type Option func(*config)

type config struct {
	MaxEditDistance int
	DefaultPoints   float64
	Tolerance       Tolerance
}

func WithMaxEditDistance(n int) Option  { return func(c *config) { c.MaxEditDistance = n } }
func WithDefaultPoints(p float64) Option { return func(c *config) { c.DefaultPoints = p } }
func WithTolerance(t Tolerance) Option   { return func(c *config) { c.Tolerance = t } }

// Grader routes a response to the strategy for its kind.
type Grader struct {
	cfg        config
	strategies map[kind]Strategy
}

func NewGrader(opts ...Option) *Grader {
	cfg := config{
		MaxEditDistance: 1,
		DefaultPoints:   1,
		Tolerance:       NoTolerance,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Grader{
		cfg: cfg,
		strategies: map[kind]Strategy{
			kindChoice:  choiceStrategy{},
			kindNumeric: numericStrategy{tol: cfg.Tolerance},
			kindText:    textStrategy{maxEdit: cfg.MaxEditDistance},
		},
	}
}

// Grade scores one response against one prepared item.
func (g *Grader) Grade(ctx context.Context, it pipeline.Item, r Response) (Result, error) {
	if it.Question == nil {
		return Result{}, fmt.Errorf("%w: empty item", ErrInvalidResponse)
	}
	res := Result{QuestionID: it.Question.ID, MaxPoints: g.points(it.Question)}
	if !it.Resolved {
		res.NeedsManual = true
		res.Feedback = append(res.Feedback, "question was not resolved")
		return res, nil
	}
	k := kindOf(r)
	if k == "" {
		res.Feedback = append(res.Feedback, "no response")
		return res, nil
	}
	return g.strategies[k].Grade(ctx, it, r, res)
}

// GradeExam scores a full submission. Items without a response score zero;
// responses for questions not in the exam are rejected.
func (g *Grader) GradeExam(ctx context.Context, items []pipeline.Item, responses []Response) (Report, error) {
	byID := make(map[int64]Response, len(responses))
	for _, r := range responses {
		if _, dup := byID[r.QuestionID]; dup {
			return Report{}, fmt.Errorf("%w: duplicate answer for question %d", ErrInvalidResponse, r.QuestionID)
		}
		byID[r.QuestionID] = r
	}
	known := make(map[int64]bool, len(items))
	for _, it := range items {
		if it.Question != nil {
			known[it.Question.ID] = true
		}
	}
	for id := range byID {
		if !known[id] {
			return Report{}, fmt.Errorf("%w: question %d is not in this exam", ErrInvalidResponse, id)
		}
	}

	rep := Report{Results: make([]Result, 0, len(items))}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		if it.Question == nil {
			return Report{}, fmt.Errorf("%w: empty item", ErrInvalidResponse)
		}
		res, err := g.Grade(ctx, it, byID[it.Question.ID])
		if err != nil {
			return Report{}, fmt.Errorf("question %d: %w", it.Question.ID, err)
		}
		rep.Results = append(rep.Results, res)
		rep.AutoPoints += res.AutoPoints
		rep.MaxPoints += res.MaxPoints
		if res.NeedsManual {
			rep.NeedsManual++
		}
	}
	return rep, nil
}

func (g *Grader) points(q *question.Question) float64 {
	if raw, ok := q.Extra[extraPoints]; ok {
		if v, err := strconv.ParseFloat(strings.Trim(string(raw), `" `), 64); err == nil && v >= 0 {
			return v
		}
	}
	return g.cfg.DefaultPoints
}

func kindOf(r Response) kind {
	switch {
	case r.Choice != nil:
		return kindChoice
	case strings.TrimSpace(r.Value) == "":
		return ""
	default:
		if _, ok := parseFloatLoose(r.Value); ok {
			return kindNumeric
		}
		return kindText
	}
}

// answerText is the correct answer as text: the resolved correta, or the
// alternative at correct_index when correta is absent.
func answerText(q *question.Question) (string, bool) {
	if q.Correct != "" {
		return q.Correct, true
	}
	if q.CorrectIndex != nil && *q.CorrectIndex >= 0 && *q.CorrectIndex < len(q.Alternatives) {
		return q.Alternatives[*q.CorrectIndex], true
	}
	return "", false
}

// --- Strategies ---

type choiceStrategy struct{}

func (choiceStrategy) Grade(_ context.Context, it pipeline.Item, r Response, res Result) (Result, error) {
	q := it.Question
	if *r.Choice < 0 || *r.Choice >= len(q.Alternatives) {
		return res, fmt.Errorf("%w: choice %d out of range [0,%d)", ErrInvalidResponse, *r.Choice, len(q.Alternatives))
	}
	if q.CorrectIndex == nil {
		res.NeedsManual = true
		res.Feedback = append(res.Feedback, "no known correct alternative")
		return res, nil
	}
	if *r.Choice == *q.CorrectIndex {
		res.AutoPoints = res.MaxPoints
	}
	return res, nil
}

type numericStrategy struct{ tol Tolerance }

func (s numericStrategy) Grade(_ context.Context, it pipeline.Item, r Response, res Result) (Result, error) {
	target, ok := answerText(it.Question)
	if !ok {
		res.NeedsManual = true
		res.Feedback = append(res.Feedback, "no known correct answer")
		return res, nil
	}
	if strings.TrimSpace(r.Value) == strings.TrimSpace(target) {
		res.AutoPoints = res.MaxPoints
		return res, nil
	}
	tv, ok := parseFloatLoose(target)
	if !ok {
		res.NeedsManual = true
		res.Feedback = append(res.Feedback, "correct answer is not numeric")
		return res, nil
	}
	rv, _ := parseFloatLoose(r.Value)

	tol := s.tol
	if raw, ok := it.Question.Extra[extraTolerance]; ok {
		tol = parseTolerances(strings.Trim(string(raw), `"`), tol)
	}
	if tol.accepts(rv, tv) {
		res.AutoPoints = res.MaxPoints
	}
	return res, nil
}

type textStrategy struct{ maxEdit int }

func (s textStrategy) Grade(_ context.Context, it pipeline.Item, r Response, res Result) (Result, error) {
	target, ok := answerText(it.Question)
	if !ok {
		res.NeedsManual = true
		res.Feedback = append(res.Feedback, "no known correct answer")
		return res, nil
	}
	want, got := normalize(target), normalize(r.Value)
	switch {
	case want == got:
		res.AutoPoints = res.MaxPoints
	case s.maxEdit > 0 && levenshtein(want, got) <= s.maxEdit:
		res.AutoPoints = res.MaxPoints * 0.5
		res.Feedback = append(res.Feedback, "close match (fuzzy)")
	}
	return res, nil
}
