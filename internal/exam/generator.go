package exam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quizgen/internal/bank"
	"github.com/mind-engage/mindengage-quizgen/internal/eventlog"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

// GenerateRequest is the body of POST /exams. Nil pointers fall back to the
// generator defaults.
type GenerateRequest struct {
	Title               string          `json:"title"`
	BankID              string          `json:"bank_id"`
	QuestionIDs         []int64         `json:"question_ids,omitempty"`
	Seed                json.RawMessage `json:"seed,omitempty"` // string or number
	ResolveVariables    *bool           `json:"resolve_variables,omitempty"`
	ShuffleQuestions    bool            `json:"shuffle_questions"`
	ShuffleAlternatives bool            `json:"shuffle_alternatives"`
	Limit               int             `json:"limit,omitempty"`
	OnFailure           string          `json:"on_failure,omitempty"`

	// CreatedBy is the authenticated subject; never read from the body.
	CreatedBy string `json:"-"`
}

// EventSink records audit events; eventlog.Repo implements it.
type EventSink interface {
	AppendJSON(ctx context.Context, typ, key string, data any) error
}

type Generator struct {
	Banks    bank.Store
	Exams    Store
	Preparer *pipeline.Preparer
	Events   EventSink
	Defaults pipeline.Options
	Log      *zap.Logger
}

// Generate prepares the requested questions and stores the exam. Question
// failures end up in Exam.Failures; only request and storage problems are
// returned as errors.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (Exam, error) {
	if req.BankID == "" {
		return Exam{}, fmt.Errorf("%w: bank_id is required", ErrInvalidRequest)
	}
	opts, err := g.options(req)
	if err != nil {
		return Exam{}, err
	}
	qs, err := g.selectQuestions(ctx, req)
	if err != nil {
		return Exam{}, err
	}
	if len(qs) == 0 {
		return Exam{}, fmt.Errorf("%w: bank %q has no matching questions", ErrInvalidRequest, req.BankID)
	}

	res, err := g.Preparer.Prepare(ctx, qs, opts)
	if err != nil {
		return Exam{}, err
	}
	title := req.Title
	if title == "" {
		title = "Exam " + req.BankID
	}
	e := Exam{
		ID:        uuid.New().String(),
		Title:     title,
		BankID:    req.BankID,
		Options:   opts,
		Items:     res.Items,
		Failures:  res.Failures,
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().Unix(),
	}
	if opts.Seed.IsSet() {
		e.Seed = opts.Seed.String()
	}
	if err := g.Exams.PutExam(ctx, e); err != nil {
		return Exam{}, err
	}
	if g.Events != nil {
		payload := map[string]any{"bank_id": e.BankID, "items": len(e.Items), "failures": len(e.Failures), "seed": e.Seed, "created_by": e.CreatedBy}
		if err := g.Events.AppendJSON(ctx, eventlog.TypeExamGenerated, e.ID, payload); err != nil && g.Log != nil {
			g.Log.Error("event log", zap.String("exam_id", e.ID), zap.Error(err))
		}
	}
	if g.Log != nil {
		g.Log.Info("exam generated",
			zap.String("exam_id", e.ID),
			zap.String("bank_id", e.BankID),
			zap.String("created_by", e.CreatedBy),
			zap.Int("items", len(e.Items)),
			zap.Int("failures", len(e.Failures)))
	}
	return e, nil
}

func (g *Generator) options(req GenerateRequest) (pipeline.Options, error) {
	opts := g.Defaults
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	seed, ok, err := ParseSeedJSON(req.Seed)
	if err != nil {
		return opts, err
	}
	if ok {
		opts.Seed = seed
	}
	if req.ResolveVariables != nil {
		opts.ResolveVariables = *req.ResolveVariables
	}
	opts.ShuffleQuestions = req.ShuffleQuestions
	opts.ShuffleAlternatives = req.ShuffleAlternatives
	if req.Limit < 0 {
		return opts, fmt.Errorf("%w: limit must be >= 0", ErrInvalidRequest)
	}
	opts.Limit = req.Limit
	if req.OnFailure != "" {
		mode, err := pipeline.ParseOnFailure(req.OnFailure)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		opts.OnFailure = mode
	}
	return opts, nil
}

func (g *Generator) selectQuestions(ctx context.Context, req GenerateRequest) ([]*question.Question, error) {
	if len(req.QuestionIDs) == 0 {
		return g.Banks.ListQuestions(ctx, req.BankID)
	}
	out := make([]*question.Question, 0, len(req.QuestionIDs))
	for _, id := range req.QuestionIDs {
		q, err := g.Banks.GetQuestion(ctx, req.BankID, id)
		if errors.Is(err, bank.ErrNotFound) {
			return nil, fmt.Errorf("%w: question %d not in bank %q", ErrInvalidRequest, id, req.BankID)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// ParseSeedJSON accepts a JSON string or number. ok is false for an absent or
// null seed.
func ParseSeedJSON(raw json.RawMessage) (seed rng.Seed, ok bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return rng.NoSeed, false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return rng.NoSeed, false, fmt.Errorf("%w: seed: %v", ErrInvalidRequest, err)
		}
		seed = rng.ParseSeed(s)
		return seed, seed.IsSet(), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return rng.NoSeed, false, fmt.Errorf("%w: seed must be a string or a number", ErrInvalidRequest)
	}
	return rng.StringSeed(n.String()), true, nil
}
