package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	env := Env{"X": 1, "Y": 2, "TEMP": 3, "velocidade": 12.5, "_k": 4}
	tests := []struct {
		name string
		expr string
		want float64
	}{
		{"literal", "42", 42},
		{"decimal", "1.5", 1.5},
		{"leading dot", ".5", 0.5},
		{"exponent literal", "2.5e2", 250},
		{"names", "X+Y", 3},
		{"precedence", "1 + 2 * 3", 7},
		{"parens", "(1 + 2) * 3", 9},
		{"left assoc minus", "10 - 4 - 3", 3},
		{"true division", "7 / 2", 3.5},
		{"modulo", "7 % 3", 1},
		{"floored modulo negative dividend", "-7 % 3", 2},
		{"floored modulo negative divisor", "7 % -3", -2},
		{"power", "2 ** 10", 1024},
		{"power right assoc", "2 ** 3 ** 2", 512},
		{"unary binds looser than power", "-2 ** 2", -4},
		{"negative exponent", "2 ** -1", 0.5},
		{"double unary", "--3", 3},
		{"unary plus", "+X", 1},
		{"unicode and underscore names", "velocidade * _k", 50},
		{"whitespace", "  TEMP   *2 ", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, env)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvaluate_RejectsUnsafeConstructs(t *testing.T) {
	tests := []string{
		"__import__('os').system('x')",
		"abs(X)",
		"(X)(1)",
		"X.real",
		"[1, 2]",
		"X if Y else 1",
		"X == Y",
		"X < Y",
		"X and Y",
		"X // 2",
		"X ^ 2",
		"lambda: 1",
		"1, 2",
		"'a'",
		"",
		"   ",
		"1 +",
		"(1 + 2",
		"1 2",
		"X Y",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Evaluate(src, Env{"X": 1, "Y": 2})
			assert.ErrorIs(t, err, ErrInvalidExpression)
		})
	}
}

func TestEvaluate_UnboundName(t *testing.T) {
	_, err := Evaluate("X + LATER", Env{"X": 1})
	require.ErrorIs(t, err, ErrUnboundName)
	assert.Contains(t, err.Error(), "LATER")
}

func TestEvaluate_Arithmetic(t *testing.T) {
	tests := []struct {
		expr      string
		divByZero bool
	}{
		{"1 / 0", true},
		{"1 % 0", true},
		{"X / (Y - 2)", true},
		{"0 ** -1", true},
		{"(-8) ** 0.5", false},
		{"10 ** 400", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Evaluate(tt.expr, Env{"X": 1, "Y": 2})
			require.ErrorIs(t, err, ErrArithmetic)
			if tt.divByZero {
				assert.ErrorIs(t, err, ErrDivisionByZero)
			}
		})
	}
}

func TestEvaluate_DoesNotMutateEnv(t *testing.T) {
	env := Env{"X": 1}
	_, err := Evaluate("X * 2", env)
	require.NoError(t, err)
	assert.Equal(t, Env{"X": 1}, env)
}

func TestNames(t *testing.T) {
	names, err := Names("A * (B + A) - C ** 2")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names)

	_, err = Names("f(A)")
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestParse_Reusable(t *testing.T) {
	n, err := Parse("X * X")
	require.NoError(t, err)
	for _, x := range []float64{1, 2, 3} {
		v, err := Eval(n, Env{"X": x})
		require.NoError(t, err)
		assert.Equal(t, x*x, v)
	}
}
