package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-quizgen/internal/expr"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{-3, "-3"},
		{0, "0"},
		{-0.0000000001, "0"},
		{2.9999999999, "3"},
		{3.0000000001, "3"},
		{2.5, "2.50"},
		{1.0 / 3.0, "0.33"},
		{-1.005, "-1.00"},
		{0.1 + 0.2, "0.30"},
		{1e15, "1000000000000000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in), "Format(%v)", tt.in)
	}
}

func TestSubstitute(t *testing.T) {
	env := expr.Env{"TEMP": 3, "R": 2.5, "X": 1}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bound name", "Valor <TEMP>", "Valor 3"},
		{"expression", "<TEMP+1> e <TEMP*2>", "4 e 6"},
		{"decimal value", "R = <R> ohms", "R = 2.50 ohms"},
		{"trimmed inner", "< TEMP >", "3"},
		{"empty placeholder", "a<>b", "ab"},
		{"blank placeholder", "a< >b", "ab"},
		{"no placeholder", "plain text", "plain text"},
		{"several", "<X>/<TEMP>/<R*2>", "1/3/5"},
		{"unmatched open", "x < 3", "x < 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Substitute(tt.in, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubstitute_Errors(t *testing.T) {
	_, err := Substitute("valor <MISSING>", expr.Env{})
	require.ErrorIs(t, err, expr.ErrUnboundName)
	assert.Contains(t, err.Error(), "<MISSING>")

	_, err = Substitute("<sqrt(X)>", expr.Env{"X": 4})
	assert.ErrorIs(t, err, expr.ErrInvalidExpression)

	_, err = Substitute("<X/0>", expr.Env{"X": 4})
	assert.ErrorIs(t, err, expr.ErrDivisionByZero)
}

func TestSubstituteValue(t *testing.T) {
	env := expr.Env{"A": 2}
	in := map[string]any{
		"list":   []any{"<A>", 7.0, []any{"<A*A>"}},
		"nested": map[string]any{"k": "<A+1>"},
		"num":    12.0,
		"flag":   true,
		"nil":    nil,
	}
	got, err := SubstituteValue(in, env)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"list":   []any{"2", 7.0, []any{"4"}},
		"nested": map[string]any{"k": "3"},
		"num":    12.0,
		"flag":   true,
		"nil":    nil,
	}, got)

	// input untouched
	assert.Equal(t, "<A>", in["list"].([]any)[0])

	strs, err := SubstituteValue([]string{"<A>", "x"}, env)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "x"}, strs)
}
