package question

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Notes holds the "obs" field, which banks write either as a single string
// or as a list of strings. The original shape is kept on re-encoding.
type Notes struct {
	Items []string
	list  bool
}

func NoteText(s string) Notes        { return Notes{Items: []string{s}} }
func NoteList(items ...string) Notes { return Notes{Items: items, list: true} }

func (n Notes) IsList() bool { return n.list }
func (n Notes) IsZero() bool { return len(n.Items) == 0 }

func (n Notes) Clone() Notes {
	return Notes{Items: cloneStrings(n.Items), list: n.list}
}

func (n Notes) MarshalJSON() ([]byte, error) {
	if !n.list && len(n.Items) == 1 {
		return json.Marshal(n.Items[0])
	}
	items := n.Items
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func (n *Notes) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*n = Notes{}
	case len(b) > 0 && b[0] == '[':
		var raw []text
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("%w: obs: %v", ErrMalformedQuestion, err)
		}
		*n = NoteList(texts(raw)...)
	default:
		s, err := scalarText(b)
		if err != nil {
			return fmt.Errorf("%w: obs: %v", ErrMalformedQuestion, err)
		}
		*n = NoteText(s)
	}
	return nil
}
