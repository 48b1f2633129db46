package exam

import (
	"errors"

	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
)

var (
	ErrNotFound       = errors.New("exam not found")
	ErrInvalidRequest = errors.New("invalid exam request")
)

// Exam is a generated, frozen set of prepared questions.
type Exam struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	BankID    string             `json:"bank_id"`
	Seed      string             `json:"seed,omitempty"`
	Options   pipeline.Options   `json:"options"`
	Items     []pipeline.Item    `json:"items"`
	Failures  []pipeline.Failure `json:"failures,omitempty"`
	CreatedBy string             `json:"created_by,omitempty"`
	CreatedAt int64              `json:"created_at,omitempty"`
}

type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	BankID    string `json:"bank_id"`
	Items     int    `json:"items"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

func (e Exam) Summary() Summary {
	return Summary{ID: e.ID, Title: e.Title, BankID: e.BankID, Items: len(e.Items), CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt}
}

// StudentView drops everything that reveals an answer: the correct text and
// index, the evaluated environment, the resolution transcript and the notes.
// The receiver is not modified.
func (e Exam) StudentView() Exam {
	out := e
	out.Failures = nil
	out.Items = make([]pipeline.Item, len(e.Items))
	for i, it := range e.Items {
		q := it.Question.Clone()
		q.Correct = ""
		q.CorrectIndex = nil
		q.Resolutions = nil
		q.Variables = nil
		q.Notes.Items = nil
		out.Items[i] = pipeline.Item{
			Question:       q,
			Resolved:       it.Resolved,
			StatementsLine: it.StatementsLine,
		}
	}
	return out
}
