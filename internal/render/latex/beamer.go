package latex

import (
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

const beamerPreamble = `\documentclass[aspectratio=169]{beamer}
\usepackage{bookmark}
\usepackage[utf8]{inputenc}
\usepackage[T1]{fontenc}
\usepackage{lmodern}
\usepackage{textcomp}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{graphicx}
\usepackage{array}
\usepackage{tabularx}
\newcolumntype{C}{>{\centering\arraybackslash}X}
\newcommand{\BodySize}{\small}
`

// WriteBeamer writes a slide deck with two frames per question, the second
// highlighting the correct alternative, plus a notes frame when the question
// has notes.
func WriteBeamer(w io.Writer, items []pipeline.Item, opts Options) error {
	var b strings.Builder
	b.WriteString(beamerPreamble)
	title := opts.Title
	if title == "" {
		title = "Exercícios"
	}
	fmt.Fprintf(&b, "\\title{%s}\n\\date{}\n", Escape(title))
	b.WriteString("\\begin{document}\n\\frame{\\titlepage}\n\n")
	for _, it := range items {
		if it.Question == nil {
			continue
		}
		writeFrame(&b, it, opts, false)
		writeFrame(&b, it, opts, true)
		if ns := notes(it.Question); len(ns) > 0 {
			writeNotesFrame(&b, it.Question, ns)
		}
	}
	b.WriteString("\\end{document}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func frameTitle(q *question.Question) string {
	return fmt.Sprintf("\\frametitle{%d) %s}", q.ID, Escape(strings.TrimSpace(q.Statement)))
}

func writeFrame(b *strings.Builder, it pipeline.Item, opts Options, highlight bool) {
	q := it.Question
	b.WriteString("\\begin{frame}\n")
	b.WriteString(frameTitle(q) + "\n")
	b.WriteString("{\\BodySize\n")
	if s := opts.images(q.Images); s != "" {
		b.WriteString(s + "\n")
	}
	if s := statementsLine(it); s != "" {
		b.WriteString(s + "\n")
	}
	correct := -1
	if highlight {
		correct = correctIndex(q)
	}
	if len(q.Alternatives) > 0 {
		if k := firstRow(q); k > 0 {
			b.WriteString(altGrid(q.Alternatives, k, correct, opts) + "\n")
		} else {
			b.WriteString(altList(q.Alternatives, correct, opts) + "\n")
		}
	}
	b.WriteString("}\n\\end{frame}\n\n")
}

// alert wraps text alternatives only; images and labels are never alerted.
func alert(alt string, i, correct int, opts Options, width string) string {
	content := altContent(alt, opts, width)
	if i == correct && !question.IsImagePath(alt) {
		return `\alert{` + content + `}`
	}
	return content
}

func altList(alts []string, correct int, opts Options) string {
	lines := []string{`\begin{itemize}`}
	for i, alt := range alts {
		lines = append(lines, fmt.Sprintf(`\item[%s] %s`, Label(i), alert(alt, i, correct, opts, `0.75\linewidth`)))
	}
	lines = append(lines, `\end{itemize}`)
	return strings.Join(lines, "\n")
}

// altGrid lays the alternatives out in two rows, the first with k columns.
func altGrid(alts []string, k, correct int, opts Options) string {
	cell := func(i int) string {
		return `\centering ` + Label(i) + " " + alert(alts[i], i, correct, opts, `0.9\linewidth`)
	}
	row := func(from, to int) string {
		cells := make([]string, 0, to-from)
		for i := from; i < to; i++ {
			cells = append(cells, cell(i))
		}
		return strings.Join([]string{
			`\begin{tabularx}{\linewidth}{` + strings.Repeat("C", to-from) + `}`,
			strings.Join(cells, " & ") + ` \\`,
			`\end{tabularx}`,
		}, "\n")
	}
	out := row(0, k)
	if k < len(alts) {
		out += "\n\\vspace{0.6em}\n" + row(k, len(alts))
	}
	return out
}

func writeNotesFrame(b *strings.Builder, q *question.Question, ns []string) {
	b.WriteString("\\begin{frame}\n")
	b.WriteString(frameTitle(q) + "\n")
	b.WriteString("{\\BodySize\n\\textbf{OBS.:}\n\\begin{itemize}\n")
	for _, n := range ns {
		b.WriteString("\\item " + Escape(n) + "\n")
	}
	b.WriteString("\\end{itemize}\n}\n\\end{frame}\n\n")
}
