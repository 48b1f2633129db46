package bank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

const (
	altKey         = "alternativas"
	altKeyPrefix   = "alternativas;"
	altFirstRowKey = "alternativas_firstrow"
	variablesKey   = "variaveis"
)

// canonicalize rewrites the legacy shapes of one question record:
//   - "alternativas;K": [...] becomes "alternativas" plus "alternativas_firstrow": K
//   - {"min":..,"step":..,"max":..} range objects become "min:step:max"
func canonicalize(raw json.RawMessage) (json.RawMessage, error) {
	entries, err := question.DecodeObject(raw)
	if err != nil {
		return nil, err
	}

	var (
		hasAlts     bool
		hasFirstRow bool
		legacy      []question.RawEntry
		legacyK     []int
		out         = make([]question.RawEntry, 0, len(entries)+1)
	)
	for _, e := range entries {
		switch {
		case e.Key == altKey:
			if !isArray(e.Value) && !isNull(e.Value) {
				return nil, fmt.Errorf("%w: %s must be a list", question.ErrMalformedQuestion, altKey)
			}
			hasAlts = true
		case e.Key == altFirstRowKey:
			hasFirstRow = true
		case strings.HasPrefix(e.Key, altKeyPrefix):
			k, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(e.Key, altKeyPrefix)))
			if err == nil {
				legacy = append(legacy, e)
				legacyK = append(legacyK, k)
				continue
			}
		case e.Key == variablesKey:
			v, err := canonicalRanges(e.Value)
			if err != nil {
				return nil, err
			}
			e.Value = v
		}
		out = append(out, e)
	}

	for i, e := range legacy {
		if !isArray(e.Value) {
			continue
		}
		if !hasAlts {
			out = append(out, question.RawEntry{Key: altKey, Value: e.Value})
			hasAlts = true
		}
		if !hasFirstRow {
			out = append(out, question.RawEntry{Key: altFirstRowKey, Value: json.RawMessage(strconv.Itoa(legacyK[i]))})
			hasFirstRow = true
		}
		break
	}
	return question.EncodeObject(out)
}

func canonicalRanges(raw json.RawMessage) (json.RawMessage, error) {
	if !isObject(raw) {
		return raw, nil
	}
	entries, err := question.DecodeObject(raw)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if !isObject(e.Value) {
			continue
		}
		var spec struct {
			Min, Step, Max json.Number
		}
		dec := json.NewDecoder(bytes.NewReader(e.Value))
		dec.UseNumber()
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("%w: variable %q: %v", question.ErrMalformedQuestion, e.Key, err)
		}
		if spec.Min == "" || spec.Max == "" {
			return nil, fmt.Errorf("%w: variable %q: range object needs min and max", question.ErrMalformedQuestion, e.Key)
		}
		if spec.Step == "" {
			spec.Step = "1"
		}
		parts := make([]string, 3)
		for j, n := range []json.Number{spec.Min, spec.Step, spec.Max} {
			if parts[j], err = plainNumber(n); err != nil {
				return nil, fmt.Errorf("%w: variable %q: %v", question.ErrMalformedQuestion, e.Key, err)
			}
		}
		s, _ := json.Marshal(strings.Join(parts, ":"))
		entries[i].Value = s
	}
	return question.EncodeObject(entries)
}

// plainNumber spells n without an exponent, which range specs do not accept.
func plainNumber(n json.Number) (string, error) {
	if !strings.ContainsAny(string(n), "eE") {
		return string(n), nil
	}
	f, err := n.Float64()
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func firstByte(raw json.RawMessage) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	return raw[0]
}

func isArray(raw json.RawMessage) bool  { return firstByte(raw) == '[' }
func isObject(raw json.RawMessage) bool { return firstByte(raw) == '{' }
func isNull(raw json.RawMessage) bool   { return bytes.Equal(bytes.TrimSpace(raw), []byte("null")) }
