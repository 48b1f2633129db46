package latex

import (
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
)

const examPreamble = `\documentclass[12pt,a4paper]{article}
\usepackage[utf8]{inputenc}
\usepackage[T1]{fontenc}
\usepackage{lmodern}
\usepackage{textcomp}
\usepackage{amsmath}
\usepackage{amssymb}
\usepackage{graphicx}
\usepackage{enumitem}
\usepackage[margin=2cm]{geometry}
`

// WriteExam writes a printable exam: one enumerated item per question with
// labeled alternatives. With AnswerKey the correct alternative is set in bold
// and a key follows the questions.
func WriteExam(w io.Writer, items []pipeline.Item, opts Options) error {
	var b strings.Builder
	b.WriteString(examPreamble)
	b.WriteString("\\begin{document}\n")
	if opts.Title != "" {
		fmt.Fprintf(&b, "\\section*{%s}\n", Escape(opts.Title))
	}
	b.WriteString("\\begin{enumerate}[label=\\arabic*.]\n")
	for _, it := range items {
		if it.Question == nil {
			continue
		}
		writeExamItem(&b, it, opts)
	}
	b.WriteString("\\end{enumerate}\n")

	if opts.AnswerKey {
		b.WriteString("\n\\section*{Gabarito}\n")
		b.WriteString("\\begin{enumerate}[label=\\arabic*.]\n")
		for _, it := range items {
			if it.Question == nil {
				continue
			}
			b.WriteString("\\item " + keyEntry(it.Question) + "\n")
		}
		b.WriteString("\\end{enumerate}\n")
	}
	b.WriteString("\\end{document}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeExamItem(b *strings.Builder, it pipeline.Item, opts Options) {
	q := it.Question
	b.WriteString("\\item " + Escape(strings.TrimSpace(q.Statement)) + "\n")
	if s := opts.images(q.Images); s != "" {
		b.WriteString(s + "\n")
	}
	if s := statementsLine(it); s != "" {
		b.WriteString(s + "\n")
	}
	if len(q.Alternatives) == 0 {
		b.WriteString("\\vspace{3cm}\n")
		return
	}
	correct := -1
	if opts.AnswerKey {
		correct = correctIndex(q)
	}
	b.WriteString("\\begin{itemize}\n")
	for i, alt := range q.Alternatives {
		content := altContent(alt, opts, `0.4\linewidth`)
		if i == correct {
			content = `\textbf{` + content + `}`
		}
		fmt.Fprintf(b, "\\item[%s] %s\n", Label(i), content)
	}
	b.WriteString("\\end{itemize}\n")
}

// keyEntry is the label of the correct alternative, the correct text for
// open questions, or a dash when the answer is unknown.
func keyEntry(q *question.Question) string {
	if i := correctIndex(q); i >= 0 {
		return Label(i)
	}
	if len(q.Alternatives) == 0 && q.Correct != "" {
		return Escape(q.Correct)
	}
	return "---"
}

func altContent(alt string, opts Options, width string) string {
	if question.IsImagePath(alt) {
		return opts.graphic(alt, width, smallBox)
	}
	return Escape(alt)
}
