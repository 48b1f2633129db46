// Package latex renders prepared questions as a LaTeX exam or a Beamer deck.
package latex

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

// firstRowKey is the layout hint written by the bank loader for
// "alternativas;K" records.
const firstRowKey = "alternativas_firstrow"

var sizeRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)x(\d+(?:\.\d+)?)$`)

// Options control both renderers.
type Options struct {
	Title string
	// AnswerKey marks the correct alternatives and appends a key. Ignored by
	// the Beamer deck, which always has an answer frame.
	AnswerKey bool
	// ImageDir is prefixed to relative image paths.
	ImageDir string
	// ImageExists reports whether an image can be included; missing images
	// become an empty frame. Nil assumes every image exists.
	ImageExists func(path string) bool
}

var specials = map[rune]string{
	'\\': `\textbackslash{}`,
	'&':  `\&`,
	'%':  `\%`,
	'$':  `\$`,
	'#':  `\#`,
	'_':  `\_`,
	'{':  `\{`,
	'}':  `\}`,
	'~':  `\textasciitilde{}`,
	'^':  `\textasciicircum{}`,
	'<':  `\textless{}`,
	'>':  `\textgreater{}`,
}

// Escape makes s safe as LaTeX body text.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := specials[r]; ok {
			b.WriteString(rep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Label is the printed label of the i-th alternative: a), b)... then 27).
func Label(i int) string {
	if i < 26 {
		return string(rune('a'+i)) + ")"
	}
	return strconv.Itoa(i+1) + ")"
}

// imageSpec splits "path;WxH" into the path and a size in millimetres.
func imageSpec(s string) (p string, w, h float64) {
	p = question.ImagePath(s)
	_, size, ok := strings.Cut(s, ";")
	if !ok {
		return p, 0, 0
	}
	m := sizeRe.FindStringSubmatch(strings.TrimSpace(size))
	if m == nil {
		return p, 0, 0
	}
	w, _ = strconv.ParseFloat(m[1], 64)
	h, _ = strconv.ParseFloat(m[2], 64)
	return p, w, h
}

func (o Options) graphic(spec, width, box string) string {
	p, w, h := imageSpec(spec)
	if o.ImageDir != "" && !path.IsAbs(p) {
		p = path.Join(o.ImageDir, p)
	}
	if o.ImageExists != nil && !o.ImageExists(p) {
		return box
	}
	if w > 0 && h > 0 {
		return fmt.Sprintf(`\includegraphics[width=%smm,height=%smm]{%s}`, fmtMM(w), fmtMM(h), p)
	}
	return fmt.Sprintf(`\includegraphics[width=%s]{%s}`, width, p)
}

func fmtMM(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

const (
	bigBox   = `\fbox{\rule{0pt}{4cm}\rule{6cm}{0pt}}`
	smallBox = `\fbox{\rule{0pt}{2.5cm}\rule{3.5cm}{0pt}}`
)

func (o Options) images(imgs []string) string {
	if len(imgs) == 0 {
		return ""
	}
	lines := []string{`\begin{center}`}
	for _, img := range imgs {
		lines = append(lines, o.graphic(img, `0.9\linewidth`, bigBox))
	}
	lines = append(lines, `\end{center}`)
	return strings.Join(lines, "\n")
}

// firstRow reads the layout hint; 0 means a plain list.
func firstRow(q *question.Question) int {
	raw, ok := q.Extra[firstRowKey]
	if !ok {
		return 0
	}
	var k int
	if err := json.Unmarshal(raw, &k); err != nil {
		return 0
	}
	if k <= 0 || k >= len(q.Alternatives) {
		return 0
	}
	return k
}

func correctIndex(q *question.Question) int {
	if q.CorrectIndex == nil || *q.CorrectIndex < 0 || *q.CorrectIndex >= len(q.Alternatives) {
		return -1
	}
	return *q.CorrectIndex
}

func notes(q *question.Question) []string {
	var out []string
	for _, n := range q.Notes.Items {
		if s := strings.TrimSpace(n); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func statementsLine(it pipeline.Item) string {
	if it.StatementsLine == "" {
		return ""
	}
	return `\par ` + Escape(it.StatementsLine)
}
