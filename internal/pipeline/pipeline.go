// Package pipeline prepares a batch of questions for an exam: each question is
// resolved and its alternatives normalized, and failures are contained per
// question.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quizgen/internal/alternatives"
	"github.com/mind-engage/mindengage-quizgen/internal/expr"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/resolve"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

type OnFailure string

const (
	Skip        OnFailure = "skip"
	Passthrough OnFailure = "passthrough"
)

// ParseOnFailure maps "" to Skip.
func ParseOnFailure(s string) (OnFailure, error) {
	switch OnFailure(strings.ToLower(strings.TrimSpace(s))) {
	case "", Skip:
		return Skip, nil
	case Passthrough:
		return Passthrough, nil
	default:
		return "", fmt.Errorf("on_failure must be skip or passthrough, got %q", s)
	}
}

type Options struct {
	Seed                rng.Seed  `json:"seed"`
	ResolveVariables    bool      `json:"resolve_variables"`
	ShuffleAlternatives bool      `json:"shuffle_alternatives"`
	ShuffleQuestions    bool      `json:"shuffle_questions"`
	Limit               int       `json:"limit,omitempty"` // 0 keeps every question
	MergeCorrect        bool      `json:"merge_correct"`
	Dedup               bool      `json:"dedup"`
	OnFailure           OnFailure `json:"on_failure"`
	Workers             int       `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		ResolveVariables: true,
		MergeCorrect:     true,
		Dedup:            true,
		OnFailure:        Skip,
		Workers:          1,
	}
}

// Item is one prepared question.
type Item struct {
	Question *question.Question `json:"question"`
	Env      expr.Env           `json:"env,omitempty"`
	// Resolved is false for a failed question passed through as authored.
	Resolved       bool   `json:"resolved"`
	StatementsLine string `json:"statements_line,omitempty"`
}

// Failure records a question the pipeline could not resolve.
type Failure struct {
	Position   int   `json:"position"` // index in the prepared order
	QuestionID int64 `json:"question_id"`
	Err        error `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("question %d: %v", f.QuestionID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

func (f Failure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		Position   int    `json:"position"`
		QuestionID int64  `json:"question_id"`
		Error      string `json:"error"`
	}{f.Position, f.QuestionID, msg})
}

type Result struct {
	Items    []Item    `json:"items"`
	Failures []Failure `json:"failures,omitempty"`
}

// FailureSink receives every failure as it happens.
type FailureSink interface {
	QuestionFailed(ctx context.Context, f Failure) error
}

// Recorder is the metrics surface the pipeline reports to.
type Recorder interface {
	ObserveQuestion(outcome string)
	ObservePrepare(d time.Duration)
}

type Preparer struct {
	log     *zap.Logger
	metrics Recorder
	sink    FailureSink
}

type Option func(*Preparer)

func WithLogger(l *zap.Logger) Option     { return func(p *Preparer) { p.log = l } }
func WithMetrics(r Recorder) Option       { return func(p *Preparer) { p.metrics = r } }
func WithFailureSink(s FailureSink) Option { return func(p *Preparer) { p.sink = s } }

func New(opts ...Option) *Preparer {
	p := &Preparer{log: zap.NewNop(), metrics: nopRecorder{}}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Prepare runs with a silent Preparer.
func Prepare(ctx context.Context, qs []*question.Question, opts Options) (Result, error) {
	return New().Prepare(ctx, qs, opts)
}

// Prepare orders, truncates and processes qs. The result does not depend on
// opts.Workers: every random draw comes from a source derived from the seed
// and the question itself. Only a cancelled ctx makes Prepare fail.
func (p *Preparer) Prepare(ctx context.Context, qs []*question.Question, opts Options) (Result, error) {
	start := time.Now()
	defer func() { p.metrics.ObservePrepare(time.Since(start)) }()

	if opts.OnFailure == "" {
		opts.OnFailure = Skip
	}
	order := Order(qs, opts)

	type slot struct {
		item Item
		fail *Failure
	}
	slots := make([]slot, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	for i, q := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item, err := prepareOne(q, opts)
			if err == nil {
				slots[i] = slot{item: item}
				return nil
			}
			f := Failure{Position: i, Err: err}
			if q != nil {
				f.QuestionID = q.ID
			}
			slots[i] = slot{fail: &f}
			if opts.OnFailure == Passthrough && q != nil {
				slots[i].item = passthrough(q, opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var res Result
	for _, s := range slots {
		if s.fail == nil {
			p.metrics.ObserveQuestion(metrics.OutcomeResolved)
			res.Items = append(res.Items, s.item)
			continue
		}
		p.report(ctx, *s.fail, opts.OnFailure)
		res.Failures = append(res.Failures, *s.fail)
		if opts.OnFailure == Passthrough && s.item.Question != nil {
			res.Items = append(res.Items, s.item)
		}
	}
	return res, nil
}

func (p *Preparer) report(ctx context.Context, f Failure, mode OnFailure) {
	outcome := metrics.OutcomeSkipped
	if mode == Passthrough {
		outcome = metrics.OutcomePassthrough
	}
	p.metrics.ObserveQuestion(outcome)
	p.log.Warn("question failed",
		zap.Int64("question_id", f.QuestionID),
		zap.Int("position", f.Position),
		zap.String("on_failure", string(mode)),
		zap.Error(f.Err))
	if p.sink == nil {
		return
	}
	if err := p.sink.QuestionFailed(ctx, f); err != nil {
		p.log.Error("failure sink", zap.Int64("question_id", f.QuestionID), zap.Error(err))
	}
}

// Order applies the question shuffle and the limit.
func Order(qs []*question.Question, opts Options) []*question.Question {
	out := append([]*question.Question(nil), qs...)
	if opts.ShuffleQuestions && len(out) > 1 {
		var src rng.Source
		if opts.Seed.IsSet() {
			src = rng.ForLabel(opts.Seed, "exam-order")
		} else {
			src = rng.Unseeded()
		}
		src.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}

func prepareOne(q *question.Question, opts Options) (Item, error) {
	if q == nil {
		return Item{}, fmt.Errorf("%w: null record", question.ErrMalformedQuestion)
	}
	if err := q.Validate(); err != nil {
		return Item{}, err
	}
	var (
		out *question.Question
		env expr.Env
		err error
	)
	if opts.ResolveVariables {
		out, env, err = resolve.All(q, opts.Seed)
		if err != nil {
			return Item{}, err
		}
	} else {
		out = q.Clone()
	}
	alternatives.Apply(out, opts.Seed, normalizeOptions(opts))
	return Item{
		Question:       out,
		Env:            env,
		Resolved:       true,
		StatementsLine: strings.Join(out.LabeledStatements(), "; "),
	}, nil
}

// passthrough keeps the authored text but still normalizes alternatives.
func passthrough(q *question.Question, opts Options) Item {
	out := q.Clone()
	alternatives.Apply(out, opts.Seed, normalizeOptions(opts))
	return Item{
		Question:       out,
		StatementsLine: strings.Join(out.LabeledStatements(), "; "),
	}
}

func normalizeOptions(opts Options) alternatives.Options {
	return alternatives.Options{
		MergeCorrect: opts.MergeCorrect,
		Dedup:        opts.Dedup,
		Shuffle:      opts.ShuffleAlternatives,
	}
}

type nopRecorder struct{}

func (nopRecorder) ObserveQuestion(string)       {}
func (nopRecorder) ObservePrepare(time.Duration) {}

func (f *Failure) UnmarshalJSON(b []byte) error {
	var w struct {
		Position   int    `json:"position"`
		QuestionID int64  `json:"question_id"`
		Error      string `json:"error"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*f = Failure{Position: w.Position, QuestionID: w.QuestionID, Err: errors.New(w.Error)}
	return nil
}
