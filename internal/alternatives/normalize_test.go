package alternatives

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
)

func TestNormalize_NoShuffle(t *testing.T) {
	tests := []struct {
		name    string
		alts    []string
		correct string
		want    []string
		index   *int
	}{
		{"merge missing correct", []string{"4", "6"}, "3", []string{"4", "6", "3"}, ptr(2)},
		{"already present", []string{"4", "3", "6"}, "3", []string{"4", "3", "6"}, ptr(1)},
		{"trimmed match", []string{"a", " b "}, "b", []string{"a", " b "}, ptr(1)},
		{"dedup keeps first", []string{"x", " x", "y", "x "}, "y", []string{"x", "y"}, ptr(1)},
		{"empty correct", []string{"a", "b"}, "", []string{"a", "b"}, nil},
		{"blank correct is merged", []string{"a", "b"}, "  ", []string{"a", "b", "  "}, ptr(2)},
		{"no alternatives", nil, "", []string{}, nil},
		{"only correct", nil, "42", []string{"42"}, ptr(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(tt.alts, tt.correct, nil, DefaultOptions())
			assert.Equal(t, tt.want, res.Alternatives)
			assert.Equal(t, tt.index, res.CorrectIndex)
		})
	}
}

func TestNormalize_WithoutMergeCorrectIsUnknown(t *testing.T) {
	res := Normalize([]string{"4", "6"}, "3", nil, Options{Dedup: true})
	assert.Equal(t, []string{"4", "6"}, res.Alternatives)
	assert.Nil(t, res.CorrectIndex)
}

func TestNormalize_ShuffleKeepsCorrectIndex(t *testing.T) {
	alts := []string{"a", "b", "c", "d", "e"}
	opts := Options{MergeCorrect: true, Dedup: true, Shuffle: true}
	for seed := int64(0); seed < 200; seed++ {
		res := Normalize(alts, "c", rand.New(rand.NewSource(seed)), opts)
		require.NotNil(t, res.CorrectIndex)
		assert.Equal(t, "c", res.Alternatives[*res.CorrectIndex])
		assert.ElementsMatch(t, alts, res.Alternatives)
		for i, p := range res.Permutation {
			assert.Equal(t, alts[p], res.Alternatives[i])
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, alts)
}

func TestNormalize_DedupIdempotent(t *testing.T) {
	first := Normalize([]string{"1", "1 ", "2", "3", "2"}, "3", nil, DefaultOptions())
	second := Normalize(first.Alternatives, "3", nil, DefaultOptions())
	assert.Equal(t, first.Alternatives, second.Alternatives)
	assert.Equal(t, first.CorrectIndex, second.CorrectIndex)
}

func TestApply_Deterministic(t *testing.T) {
	mk := func() *question.Question {
		return &question.Question{ID: 3, Statement: "Valor 3", Alternatives: []string{"4", "6"}, Correct: "3"}
	}
	opts := Options{MergeCorrect: true, Dedup: true, Shuffle: true}
	a, b := mk(), mk()
	Apply(a, rng.IntSeed(42), opts)
	Apply(b, rng.IntSeed(42), opts)
	assert.Equal(t, a.Alternatives, b.Alternatives)
	require.NotNil(t, a.CorrectIndex)
	assert.Equal(t, "3", a.Alternatives[*a.CorrectIndex])
	assert.Equal(t, a.CorrectIndex, b.CorrectIndex)

	plain := mk()
	Apply(plain, rng.IntSeed(42), DefaultOptions())
	assert.Equal(t, []string{"4", "6", "3"}, plain.Alternatives)
	assert.Equal(t, 2, *plain.CorrectIndex)
}

func TestApply_NoSeedIsStable(t *testing.T) {
	mk := func() *question.Question {
		return &question.Question{ID: 7, Statement: "Qual?", Alternatives: []string{"a", "b", "c", "d", "e"}, Correct: "f"}
	}
	opts := Options{MergeCorrect: true, Dedup: true, Shuffle: true}
	first := mk()
	Apply(first, rng.NoSeed, opts)
	require.NotNil(t, first.CorrectIndex)
	assert.Equal(t, "f", first.Alternatives[*first.CorrectIndex])

	for i := 0; i < 20; i++ {
		q := mk()
		Apply(q, rng.NoSeed, opts)
		assert.Equal(t, first.Alternatives, q.Alternatives)
		assert.Equal(t, first.CorrectIndex, q.CorrectIndex)
	}
}

func ptr(i int) *int { return &i }
