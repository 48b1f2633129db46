// Package question defines the canonical question record that the resolver,
// the normalizer and every renderer share.
package question

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrMalformedQuestion = errors.New("malformed question")

// Type mirrors the four kinds of question the bank format knows about.
type Type int

const (
	TypeText       Type = 1 // text alternatives
	TypeImage      Type = 2 // image (or mixed) alternatives
	TypeParametric Type = 3 // variables and resolutions
	TypeStatements Type = 4 // numbered statements (I, II, III...)
)

// Question is one record of a question bank. Fields the model does not know
// are kept in Extra and written back unchanged.
type Question struct {
	ID           int64
	Type         Type
	Statement    string
	Images       []string
	Alternatives []string
	Correct      string
	// CorrectIndex is set by alternative normalization; nil means the
	// correct alternative is unknown.
	CorrectIndex *int
	Variables    *OrderedMap
	Resolutions  *OrderedMap
	Statements   *OrderedMap
	Notes        Notes

	Extra map[string]json.RawMessage
}

// wire is the JSON layout of Question.
type wire struct {
	ID           int64       `json:"id"`
	Type         Type        `json:"tipo,omitempty"`
	Statement    text        `json:"enunciado"`
	Images       []text      `json:"imagens,omitempty"`
	Alternatives []text      `json:"alternativas"`
	Correct      text        `json:"correta"`
	CorrectIndex *int        `json:"correct_index,omitempty"`
	Variables    *OrderedMap `json:"variaveis,omitempty"`
	Resolutions  *OrderedMap `json:"resolucoes,omitempty"`
	Statements   *OrderedMap `json:"afirmacoes,omitempty"`
	Notes        *Notes      `json:"obs,omitempty"`
}

var knownKeys = map[string]bool{
	"id": true, "tipo": true, "enunciado": true, "imagens": true,
	"alternativas": true, "correta": true, "correct_index": true,
	"variaveis": true, "resolucoes": true, "afirmacoes": true, "obs": true,
}

func (q *Question) UnmarshalJSON(data []byte) error {
	entries, err := DecodeObject(data)
	if err != nil {
		return err
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}
	*q = Question{
		ID:           w.ID,
		Type:         w.Type,
		Statement:    string(w.Statement),
		Images:       texts(w.Images),
		Alternatives: texts(w.Alternatives),
		Correct:      string(w.Correct),
		CorrectIndex: w.CorrectIndex,
		Variables:    w.Variables,
		Resolutions:  w.Resolutions,
		Statements:   w.Statements,
	}
	if w.Notes != nil {
		q.Notes = *w.Notes
	}
	for _, e := range entries {
		if knownKeys[e.Key] {
			continue
		}
		if q.Extra == nil {
			q.Extra = map[string]json.RawMessage{}
		}
		q.Extra[e.Key] = append(json.RawMessage(nil), e.Value...)
	}
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := wire{
		ID:           q.ID,
		Type:         q.Type,
		Statement:    text(q.Statement),
		Images:       fromTexts(q.Images),
		Alternatives: fromTexts(q.Alternatives),
		Correct:      text(q.Correct),
		CorrectIndex: q.CorrectIndex,
		Variables:    nonEmpty(q.Variables),
		Resolutions:  nonEmpty(q.Resolutions),
		Statements:   nonEmpty(q.Statements),
	}
	if w.Alternatives == nil {
		w.Alternatives = []text{}
	}
	if !q.Notes.IsZero() {
		n := q.Notes
		w.Notes = &n
	}
	base, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	if len(q.Extra) == 0 {
		return base, nil
	}
	entries, err := DecodeObject(base)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(q.Extra))
	for k := range q.Extra {
		if !knownKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		entries = append(entries, RawEntry{Key: k, Value: q.Extra[k]})
	}
	return EncodeObject(entries)
}

// EncodeObject writes entries as a JSON object in the given order.
func EncodeObject(entries []RawEntry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(e.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns a deep copy of q.
func (q *Question) Clone() *Question {
	c := *q
	c.Images = cloneStrings(q.Images)
	c.Alternatives = cloneStrings(q.Alternatives)
	if q.CorrectIndex != nil {
		i := *q.CorrectIndex
		c.CorrectIndex = &i
	}
	c.Variables = q.Variables.Clone()
	c.Resolutions = q.Resolutions.Clone()
	c.Statements = q.Statements.Clone()
	c.Notes = q.Notes.Clone()
	if q.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(q.Extra))
		for k, v := range q.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// Validate checks the structural rules the resolver relies on.
func (q *Question) Validate() error {
	if q.ID < 0 {
		return fmt.Errorf("%w: negative id %d", ErrMalformedQuestion, q.ID)
	}
	if q.Type != 0 && (q.Type < TypeText || q.Type > TypeStatements) {
		return fmt.Errorf("%w: question %d: unknown tipo %d", ErrMalformedQuestion, q.ID, q.Type)
	}
	seen := map[string]string{}
	check := func(field string, m *OrderedMap) error {
		for _, k := range m.Keys() {
			if strings.TrimSpace(k) == "" || strings.ContainsAny(k, "<>") {
				return fmt.Errorf("%w: question %d: %s has an invalid name %q", ErrMalformedQuestion, q.ID, field, k)
			}
			if prev, dup := seen[k]; dup {
				return fmt.Errorf("%w: question %d: %q declared in both %s and %s", ErrMalformedQuestion, q.ID, k, prev, field)
			}
			seen[k] = field
		}
		return nil
	}
	if err := check("variaveis", q.Variables); err != nil {
		return err
	}
	if err := check("resolucoes", q.Resolutions); err != nil {
		return err
	}
	if q.CorrectIndex != nil && (*q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Alternatives)) {
		return fmt.Errorf("%w: question %d: correct_index %d out of range", ErrMalformedQuestion, q.ID, *q.CorrectIndex)
	}
	return nil
}

// InferType returns the declared type, or guesses one from the content.
func (q *Question) InferType() Type {
	if q.Type >= TypeText && q.Type <= TypeStatements {
		return q.Type
	}
	if q.Variables.Len() > 0 || q.Resolutions.Len() > 0 {
		return TypeParametric
	}
	if q.Statements.Len() > 0 {
		return TypeStatements
	}
	for _, a := range q.Alternatives {
		if IsImagePath(a) {
			return TypeImage
		}
	}
	return TypeText
}

func (q *Question) SeedID() int64             { return q.ID }
func (q *Question) SeedStatement() string     { return q.Statement }
func (q *Question) SeedAlternativeCount() int { return len(q.Alternatives) }

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".pdf"}

// IsImagePath reports whether s names an image file, optionally followed by
// a ";WxH" size suffix in millimetres.
func IsImagePath(s string) bool {
	p, _, _ := strings.Cut(s, ";")
	p = strings.ToLower(strings.TrimSpace(p))
	for _, ext := range imageExts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

// ImagePath strips the size suffix from an image reference.
func ImagePath(s string) string {
	p, _, _ := strings.Cut(s, ";")
	return strings.TrimSpace(p)
}

// text decodes JSON strings, numbers and null into a string.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	*t = text(s)
	return nil
}

func texts(in []text) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = string(t)
	}
	return out
}

func fromTexts(in []string) []text {
	if in == nil {
		return nil
	}
	out := make([]text, len(in))
	for i, s := range in {
		out[i] = text(s)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func nonEmpty(m *OrderedMap) *OrderedMap {
	if m.Len() == 0 {
		return nil
	}
	return m
}

var romanLabels = []string{"I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X"}

// LabeledStatements returns "I. text", "II. text"... in roman order. Only the
// labels I to X are rendered.
func (q *Question) LabeledStatements() []string {
	var out []string
	for _, k := range romanLabels {
		if v, ok := q.Statements.Get(k); ok {
			out = append(out, k+". "+v)
		}
	}
	return out
}
