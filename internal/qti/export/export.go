// Package export writes prepared questions as a QTI 2.1 content package.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

const (
	nsQTI         = "http://www.imsglobal.org/xsd/imsqti_v2p1"
	nsCP          = "http://www.imsglobal.org/xsd/imscp_v1p1"
	itemType      = "imsqti_item_xmlv2p1"
	matchCorrect  = "http://www.imsglobal.org/question/qti_v2p1/rptemplates/match_correct"
	responseIdent = "RESPONSE"
	mediaDir      = "media"
)

// MediaFetcher opens an image referenced by a question. Returning
// os.ErrNotExist leaves the reference as is.
type MediaFetcher func(path string) (io.ReadCloser, error)

// ItemIdentifier is the QTI identifier of a question; the importer reads the
// id back from it.
func ItemIdentifier(id int64) string { return fmt.Sprintf("q%d", id) }

// ChoiceIdentifier names the i-th alternative: A..Z, then C27, C28...
func ChoiceIdentifier(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("C%d", i+1)
}

// BuildPackage writes a manifest plus one item per prepared question. Only
// questions with a known correct alternative carry a correctResponse.
func BuildPackage(title string, items []pipeline.Item, fetchMedia MediaFetcher) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	b := &builder{zw: zw, fetch: fetchMedia, media: map[string]string{}}

	mf := imsManifest{
		Xmlns:      nsCP,
		Identifier: "manifest-" + safeName(title),
		Title:      title,
	}
	seen := map[string]int{}
	for _, it := range items {
		if it.Question == nil {
			continue
		}
		ident := ItemIdentifier(it.Question.ID)
		seen[ident]++
		if n := seen[ident]; n > 1 {
			ident = fmt.Sprintf("%s-%d", ident, n)
		}
		href := ident + ".xml"

		doc, files, err := b.item(ident, it)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", it.Question.ID, err)
		}
		if err := writeXML(zw, href, doc); err != nil {
			return nil, err
		}
		res := imsResource{Identifier: ident, Type: itemType, Href: href, Files: []imsFile{{Href: href}}}
		for _, f := range files {
			res.Files = append(res.Files, imsFile{Href: f})
		}
		mf.Resources = append(mf.Resources, res)
	}
	if err := writeXML(zw, "imsmanifest.xml", mf); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type builder struct {
	zw    *zip.Writer
	fetch MediaFetcher
	media map[string]string // source path -> package path
}

func (b *builder) item(ident string, it pipeline.Item) (assessmentItem, []string, error) {
	q := it.Question
	doc := assessmentItem{
		Xmlns:         nsQTI,
		Identifier:    ident,
		Title:         fmt.Sprintf("Question %d", q.ID),
		Adaptive:      false,
		TimeDependent: false,
		Outcome:       outcomeDeclaration{Identifier: "SCORE", Cardinality: "single", BaseType: "float"},
	}
	var files []string
	img := func(src string) (*imgTag, error) {
		p, err := b.addMedia(question.ImagePath(src))
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(p, mediaDir+"/") {
			files = append(files, p)
		}
		return &imgTag{Src: p, Alt: path.Base(p)}, nil
	}

	if q.Statement != "" {
		doc.Body.Content = append(doc.Body.Content, para{Text: q.Statement})
	}
	if it.StatementsLine != "" {
		doc.Body.Content = append(doc.Body.Content, para{Text: it.StatementsLine})
	}
	for _, src := range q.Images {
		t, err := img(src)
		if err != nil {
			return doc, nil, err
		}
		doc.Body.Content = append(doc.Body.Content, para{Img: t})
	}

	decl := &responseDeclaration{Identifier: responseIdent, Cardinality: "single"}
	switch {
	case len(q.Alternatives) > 0:
		decl.BaseType = "identifier"
		ci := choiceInteraction{ResponseIdentifier: responseIdent, MaxChoices: 1}
		for i, alt := range q.Alternatives {
			c := simpleChoice{Identifier: ChoiceIdentifier(i)}
			if question.IsImagePath(alt) {
				t, err := img(alt)
				if err != nil {
					return doc, nil, err
				}
				c.Img = t
			} else {
				c.Text = alt
			}
			ci.Choices = append(ci.Choices, c)
		}
		doc.Body.Content = append(doc.Body.Content, ci)
		if q.CorrectIndex != nil && *q.CorrectIndex >= 0 && *q.CorrectIndex < len(q.Alternatives) {
			decl.Correct = &correctResponse{Values: []string{ChoiceIdentifier(*q.CorrectIndex)}}
		}
	case q.Correct != "":
		decl.BaseType = "string"
		doc.Body.Content = append(doc.Body.Content, textEntryInteraction{ResponseIdentifier: responseIdent})
		decl.Correct = &correctResponse{Values: []string{q.Correct}}
	default:
		decl.BaseType = "string"
		doc.Body.Content = append(doc.Body.Content, extendedTextInteraction{ResponseIdentifier: responseIdent})
	}
	doc.Response = decl
	if decl.Correct != nil {
		doc.Processing = &responseProcessing{Template: matchCorrect}
	}
	return doc, files, nil
}

// addMedia copies an image into the package once and returns the path the
// item should reference.
func (b *builder) addMedia(src string) (string, error) {
	if p, ok := b.media[src]; ok {
		return p, nil
	}
	if b.fetch == nil {
		b.media[src] = src
		return src, nil
	}
	rc, err := b.fetch(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			b.media[src] = src
			return src, nil
		}
		return "", fmt.Errorf("media %s: %w", src, err)
	}
	defer rc.Close()

	dst := fmt.Sprintf("%s/%d-%s", mediaDir, len(b.media)+1, path.Base(src))
	w, err := b.zw.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, rc); err != nil {
		return "", fmt.Errorf("media %s: %w", src, err)
	}
	b.media[src] = dst
	return dst, nil
}

func writeXML(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return enc.Close()
}

func safeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, s)
	if s == "" {
		return "exam"
	}
	return s
}
