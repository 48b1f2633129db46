package parser

import (
	"encoding/xml"
	"strings"
)

type InteractionType string

const (
	InteractionChoiceSingle InteractionType = "choice_single"
	InteractionChoiceMulti  InteractionType = "choice_multi"
	InteractionTextEntry    InteractionType = "text_entry"
	InteractionExtendedText InteractionType = "extended_text"
)

type ParsedItem struct {
	ID        string
	Title     string
	Prompt    string // inner XML before the interaction
	Kind      InteractionType
	Choices   []Choice
	AnswerKey []string // choice identifiers or literal answers
}

type Choice struct {
	ID    string
	Label string // inner XML
}

type assessmentItem struct {
	XMLName      xml.Name            `xml:"assessmentItem"`
	Identifier   string              `xml:"identifier,attr"`
	Title        string              `xml:"title,attr"`
	Body         itemBody            `xml:"itemBody"`
	ResponseDecl responseDeclaration `xml:"responseDeclaration"`
}

type itemBody struct {
	RawXML string `xml:",innerxml"`
}

type responseDeclaration struct {
	Identifier  string `xml:"identifier,attr"`
	Cardinality string `xml:"cardinality,attr"`
	Correct     struct {
		Values []string `xml:"value"`
	} `xml:"correctResponse"`
}

// ParseItem reads one assessmentItem document. The interaction kind is
// inferred from the body; anything unrecognized is extended text.
func ParseItem(b []byte) (ParsedItem, error) {
	var it assessmentItem
	if err := xml.Unmarshal(b, &it); err != nil {
		return ParsedItem{}, err
	}
	pi := ParsedItem{
		ID:     it.Identifier,
		Title:  it.Title,
		Prompt: extractPrompt(it.Body.RawXML),
	}
	body := strings.ToLower(it.Body.RawXML)
	switch {
	case strings.Contains(body, "<choiceinteraction"):
		pi.Kind = InteractionChoiceSingle
		if it.ResponseDecl.Cardinality == "multiple" {
			pi.Kind = InteractionChoiceMulti
		}
		pi.Choices = extractChoices(it.Body.RawXML)
		pi.AnswerKey = trimAll(it.ResponseDecl.Correct.Values)
	case strings.Contains(body, "<textentryinteraction"):
		pi.Kind = InteractionTextEntry
		pi.AnswerKey = trimAll(it.ResponseDecl.Correct.Values)
	default:
		pi.Kind = InteractionExtendedText
	}
	return pi, nil
}

func extractPrompt(inner string) string {
	l := strings.ToLower(inner)
	idx := -1
	for _, tag := range []string{"<choiceinteraction", "<textentryinteraction", "<extendedtextinteraction"} {
		if i := strings.Index(l, tag); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	if idx < 0 {
		return strings.TrimSpace(inner)
	}
	return strings.TrimSpace(inner[:idx])
}

// extractChoices collects <simpleChoice identifier="A">Label</simpleChoice>.
func extractChoices(inner string) []Choice {
	var out []Choice
	dec := xml.NewDecoder(strings.NewReader(inner))
	for {
		t, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := t.(xml.StartElement)
		if !ok || !strings.EqualFold(se.Name.Local, "simpleChoice") {
			continue
		}
		var id string
		for _, a := range se.Attr {
			if strings.EqualFold(a.Name.Local, "identifier") {
				id = a.Value
				break
			}
		}
		var text struct {
			Inner string `xml:",innerxml"`
		}
		if err := dec.DecodeElement(&text, &se); err == nil {
			out = append(out, Choice{ID: id, Label: strings.TrimSpace(text.Inner)})
		}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
