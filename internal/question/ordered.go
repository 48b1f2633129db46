package question

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OrderedMap is a string-to-string map that remembers insertion order. It
// decodes from and encodes to a JSON object with keys in that order.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// Entry is one key/value pair of an OrderedMap.
type Entry struct {
	Key   string
	Value string
}

// NewOrderedMap builds a map from pairs, in order.
func NewOrderedMap(entries ...Entry) *OrderedMap {
	m := &OrderedMap{}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return m
}

func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *OrderedMap) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set adds or replaces key. A replaced key keeps its original position.
func (m *OrderedMap) Set(key, value string) {
	if m.values == nil {
		m.values = map[string]string{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

func (m *OrderedMap) Entries() []Entry {
	if m == nil {
		return nil
	}
	out := make([]Entry, len(m.keys))
	for i, k := range m.keys {
		out[i] = Entry{Key: k, Value: m.values[k]}
	}
	return out
}

func (m *OrderedMap) Clone() *OrderedMap {
	if m == nil {
		return nil
	}
	return NewOrderedMap(m.Entries()...)
}

func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts an object whose values are strings or numbers.
// Numbers keep their literal text, so {"K": 2} reads as "2".
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	raw, err := DecodeObject(data)
	if err != nil {
		return err
	}
	*m = OrderedMap{}
	for _, e := range raw {
		v, err := scalarText(e.Value)
		if err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrMalformedQuestion, e.Key, err)
		}
		m.Set(e.Key, v)
	}
	return nil
}

// RawEntry is one member of a JSON object, value undecoded.
type RawEntry struct {
	Key   string
	Value json.RawMessage
}

// DecodeObject reads a JSON object and returns its members in document order.
// null decodes as an empty list.
func DecodeObject(data []byte) ([]RawEntry, error) {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrMalformedQuestion)
	}
	var out []RawEntry
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
		}
		key, _ := kt.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformedQuestion, key, err)
		}
		out = append(out, RawEntry{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuestion, err)
	}
	return out, nil
}

func scalarText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), nil
	default:
		return "", fmt.Errorf("expected a string, got %s", raw)
	}
}
