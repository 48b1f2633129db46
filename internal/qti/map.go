// Package qti maps QTI content packages onto bank questions.
package qti

import (
	"archive/zip"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/qti/parser"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

var ErrUnsupportedItem = errors.New("unsupported QTI interaction")

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	imgRe   = regexp.MustCompile(`(?i)<img[^>]*\bsrc="([^"]+)"`)
	identRe = regexp.MustCompile(`^q(\d+)`)
)

// ItemError reports one item that could not be mapped.
type ItemError struct {
	Item string
	Err  error
}

func (e ItemError) Error() string { return fmt.Sprintf("item %s: %v", e.Item, e.Err) }
func (e ItemError) Unwrap() error { return e.Err }

// Import reads a QTI package into questions. Items that cannot be mapped are
// reported and skipped.
func Import(zr *zip.Reader) ([]*question.Question, []ItemError, error) {
	_, items, err := parser.ReadPackage(zr)
	if err != nil {
		return nil, nil, err
	}
	qs, errs := MapToQuestions(items)
	return qs, errs, nil
}

// MapToQuestions maps single-choice and text-entry items. Ids come from
// "q<N>" identifiers when present, otherwise from the item position.
func MapToQuestions(items []parser.ParsedItem) ([]*question.Question, []ItemError) {
	var (
		out  []*question.Question
		errs []ItemError
	)
	for i, it := range items {
		q := &question.Question{ID: idFor(it.ID, i)}
		prompt := it.Prompt
		for _, m := range imgRe.FindAllStringSubmatch(prompt, -1) {
			q.Images = append(q.Images, m[1])
		}
		q.Statement = plainText(prompt)

		switch it.Kind {
		case parser.InteractionChoiceSingle:
			correct := ""
			if len(it.AnswerKey) > 0 {
				correct = it.AnswerKey[0]
			}
			for j, c := range it.Choices {
				label := plainText(c.Label)
				if m := imgRe.FindStringSubmatch(c.Label); m != nil && label == "" {
					label = m[1]
				}
				q.Alternatives = append(q.Alternatives, label)
				if c.ID == correct && correct != "" {
					idx := j
					q.CorrectIndex = &idx
					q.Correct = label
				}
			}
		case parser.InteractionTextEntry:
			if len(it.AnswerKey) > 0 {
				q.Correct = it.AnswerKey[0]
			}
		default:
			errs = append(errs, ItemError{Item: it.ID, Err: fmt.Errorf("%w: %s", ErrUnsupportedItem, it.Kind)})
			continue
		}
		q.Type = q.InferType()
		if err := q.Validate(); err != nil {
			errs = append(errs, ItemError{Item: it.ID, Err: err})
			continue
		}
		out = append(out, q)
	}
	return out, errs
}

func idFor(ident string, pos int) int64 {
	if m := identRe.FindStringSubmatch(ident); m != nil {
		if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			return n
		}
	}
	return int64(pos + 1)
}

// plainText drops markup and collapses whitespace.
func plainText(inner string) string {
	s := html.UnescapeString(tagRe.ReplaceAllString(inner, " "))
	return strings.Join(strings.Fields(s), " ")
}
