// Package alternatives merges, deduplicates and shuffles the alternatives of a
// question while keeping track of which one is correct.
package alternatives

import (
	"strings"

	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

type Options struct {
	MergeCorrect bool
	Dedup        bool
	Shuffle      bool
}

// DefaultOptions merges and deduplicates but keeps the authored order.
func DefaultOptions() Options {
	return Options{MergeCorrect: true, Dedup: true}
}

type Result struct {
	Alternatives []string
	// CorrectIndex is nil when the correct answer is not among Alternatives.
	CorrectIndex *int
	// Permutation[i] is the pre-shuffle index of Alternatives[i].
	Permutation []int
}

// Normalize never modifies alts.
func Normalize(alts []string, correct string, src rng.Source, opts Options) Result {
	list := make([]string, 0, len(alts)+1)
	list = append(list, alts...)

	if opts.MergeCorrect && correct != "" && locate(list, correct) < 0 {
		list = append(list, correct)
	}
	if opts.Dedup {
		list = dedup(list)
	}

	idx := locate(list, correct)
	perm := make([]int, len(list))
	for i := range perm {
		perm[i] = i
	}
	if opts.Shuffle && len(list) > 1 && src != nil {
		src.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		shuffled := make([]string, len(list))
		old := idx
		for i, p := range perm {
			shuffled[i] = list[p]
			if p == old {
				idx = i
			}
		}
		list = shuffled
	}

	res := Result{Alternatives: list, Permutation: perm}
	if idx >= 0 {
		i := idx
		res.CorrectIndex = &i
	}
	return res
}

// locate returns the position of correct, trying an exact match first and a
// whitespace-trimmed one second, or -1.
func locate(list []string, correct string) int {
	if correct == "" {
		return -1
	}
	for i, a := range list {
		if a == correct {
			return i
		}
	}
	want := strings.TrimSpace(correct)
	for i, a := range list {
		if strings.TrimSpace(a) == want {
			return i
		}
	}
	return -1
}

func dedup(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, a := range list {
		k := strings.TrimSpace(a)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, a)
	}
	return out
}

// Apply normalizes q's alternatives in place using the question's own random
// source, and records the correct index. An unset seed still derives the
// source from the question, so the order is stable across calls.
func Apply(q *question.Question, seed rng.Seed, opts Options) {
	var src rng.Source
	if opts.Shuffle {
		src = rng.ForQuestion(seed, q)
	}
	res := Normalize(q.Alternatives, q.Correct, src, opts)
	q.Alternatives = res.Alternatives
	q.CorrectIndex = res.CorrectIndex
}
