package resolve

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quizgen/internal/expr"
	"github.com/mind-engage/mindengage-quizgen/internal/question"
	"github.com/mind-engage/mindengage-quizgen/internal/rng"
	"github.com/mind-engage/mindengage-quizgen/internal/variables"
)

func decode(t *testing.T, s string) *question.Question {
	t.Helper()
	var q question.Question
	require.NoError(t, json.Unmarshal([]byte(s), &q))
	return &q
}

const parametric = `{
  "id": 3,
  "enunciado": "Valor <TEMP>",
  "variaveis": {"X": "1:1:1", "Y": "2:1:2"},
  "resolucoes": {"TEMP": "X + Y", "DOBRO": "<TEMP> * 2"},
  "alternativas": ["<TEMP + 1>", "<DOBRO>"],
  "correta": "<TEMP>",
  "obs": ["X vale <X>"],
  "afirmacoes": {"I": "Y = <Y>"}
}`

func TestAll_EndToEnd(t *testing.T) {
	q := decode(t, parametric)
	out, env, err := All(q, rng.IntSeed(42))
	require.NoError(t, err)

	assert.Equal(t, expr.Env{"X": 1, "Y": 2, "TEMP": 3, "DOBRO": 6}, env)
	assert.Equal(t, "Valor 3", out.Statement)
	assert.Equal(t, []string{"4", "6"}, out.Alternatives)
	assert.Equal(t, "3", out.Correct)
	assert.Equal(t, []string{"X vale 1"}, out.Notes.Items)
	s, _ := out.Statements.Get("I")
	assert.Equal(t, "Y = 2", s)
	d, _ := out.Resolutions.Get("DOBRO")
	assert.Equal(t, "3 * 2", d)
}

func TestAll_DoesNotMutateInput(t *testing.T) {
	q := decode(t, parametric)
	before, err := json.Marshal(q)
	require.NoError(t, err)

	_, _, err = All(q, rng.IntSeed(1))
	require.NoError(t, err)

	after, err := json.Marshal(q)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestAll_SeededIsReproducible(t *testing.T) {
	q := decode(t, `{
	  "id": 8, "enunciado": "<A> + <B>",
	  "variaveis": {"A": "1:1:1000", "B": "0:0.5:50"},
	  "alternativas": ["x"]
	}`)
	a, envA, err := All(q, rng.StringSeed("prova"))
	require.NoError(t, err)
	b, envB, err := All(q, rng.StringSeed("prova"))
	require.NoError(t, err)
	assert.Equal(t, envA, envB)
	assert.Equal(t, a.Statement, b.Statement)
}

func TestAll_VariablesStayOnGrid(t *testing.T) {
	q := decode(t, `{"id": 1, "enunciado": "", "variaveis": {"V": "-3:0.7:4"}}`)
	r, err := variables.ParseRange("-3:0.7:4")
	require.NoError(t, err)
	grid := map[float64]bool{}
	for _, p := range r.Grid() {
		grid[p] = true
	}
	for i := 0; i < 200; i++ {
		_, env, err := With(q, rand.New(rand.NewSource(int64(i))))
		require.NoError(t, err)
		assert.True(t, grid[env["V"]], "%v not on grid", env["V"])
	}
}

func TestAll_NoSeedStillResolves(t *testing.T) {
	q := decode(t, parametric)
	out, _, err := All(q, rng.NoSeed)
	require.NoError(t, err)
	assert.Equal(t, "Valor 3", out.Statement)
}

func TestAll_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"forward reference", `{"id":1,"resolucoes":{"A":"B + 1","B":"2"}}`, expr.ErrUnboundName},
		{"bad range", `{"id":1,"variaveis":{"X":"5:1:1"}}`, variables.ErrInvalidRange},
		{"call in resolution", `{"id":1,"resolucoes":{"A":"abs(2)"}}`, expr.ErrInvalidExpression},
		{"division by zero", `{"id":1,"resolucoes":{"A":"1 / 0"}}`, expr.ErrDivisionByZero},
		{"unbound placeholder", `{"id":1,"enunciado":"<Z>"}`, expr.ErrUnboundName},
		{"resolution shadows variable", `{"id":1,"variaveis":{"X":"1:1:1"},"resolucoes":{"X":"2"}}`, ErrDuplicateBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := All(decode(t, tt.in), rng.IntSeed(42))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "question 1")
		})
	}
}

func TestEvaluateResolutions_Order(t *testing.T) {
	env := expr.Env{"X": 2}
	res := question.NewOrderedMap(
		question.Entry{Key: "A", Value: "X * 3"},
		question.Entry{Key: "B", Value: "A - 1"},
	)
	require.NoError(t, EvaluateResolutions(res, env))
	assert.Equal(t, expr.Env{"X": 2, "A": 6, "B": 5}, env)

	swapped := question.NewOrderedMap(
		question.Entry{Key: "B", Value: "A - 1"},
		question.Entry{Key: "A", Value: "X * 3"},
	)
	assert.ErrorIs(t, EvaluateResolutions(swapped, expr.Env{"X": 2}), expr.ErrUnboundName)
}

func TestEvaluateResolutions_ListsEveryUnboundName(t *testing.T) {
	res := question.NewOrderedMap(question.Entry{Key: "T", Value: "X + Y * Z"})
	err := EvaluateResolutions(res, expr.Env{"X": 1})
	require.ErrorIs(t, err, expr.ErrUnboundName)
	assert.Contains(t, err.Error(), "(unbound: Y, Z)")
}
