package calc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zus_chatbot/pkg"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2 + 3 * 4", 14},
		{"2 ** 10", 1024},
		{"7 * (3 + 2)", 35},
		{"(1 + 2) * (3 + 4)", 21},
		{"10 / 4", 2.5},
		{"-5 % 3", 1},
		{"5 % -3", -1},
		{"7 % 3", 1},
		{"-2 ** 2", -4},
		{"2 ** -1", 0.5},
		{"2 ** 3 ** 2", 512},
		{"--3", 3},
		{"+4", 4},
		{"1.5e2 + .5", 150.5},
		{"  42  ", 42},
		{"100 - 10 - 1", 89},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateRejectsNonWhitelistedSyntax(t *testing.T) {
	exprs := []string{
		"__import__('os')",
		"1 if True else 0",
		"abs(-3)",
		"x + 1",
		"(1).real",
		"1 < 2",
		"1 == 1",
		"2 // 3",
		"'a' * 3",
		"1; 2",
		"2 +",
		"(1 + 2",
		"1 + 2)",
		"3 4",
		"1.2.3",
		"2 ^ 3",
	}

	for _, expr := range exprs {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			require.Error(t, err)
			assert.True(t, errors.Is(err, pkg.ErrInvalidExpression), "got %v", err)
		})
	}
}

func TestEvaluateArithmeticErrors(t *testing.T) {
	for _, expr := range []string{"1 / 0", "5 % 0", "0 ** -1", "(-8) ** 0.5", "10 ** 400"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrArithmetic)
			assert.ErrorIs(t, err, pkg.ErrInvalidExpression)
		})
	}
}

func TestEvaluateEmpty(t *testing.T) {
	_, err := Evaluate("   ")
	assert.ErrorIs(t, err, pkg.ErrInvalidRequest)
}

func TestParseLimits(t *testing.T) {
	deep := ""
	for i := 0; i < MaxNestingDepth+1; i++ {
		deep += "("
	}
	deep += "1"
	for i := 0; i < MaxNestingDepth+1; i++ {
		deep += ")"
	}

	_, err := Parse(deep)
	assert.ErrorIs(t, err, pkg.ErrInvalidExpression)

	long := make([]byte, MaxExpressionLength+1)
	for i := range long {
		long[i] = '1'
	}
	_, err = Parse(string(long))
	assert.ErrorIs(t, err, pkg.ErrInvalidExpression)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "35", Format(35))
	assert.Equal(t, "2.5", Format(2.5))
	assert.Equal(t, "-4", Format(-4))
	assert.Equal(t, "0", Format(-0.0*1))
	assert.Equal(t, "1e+20", Format(1e20))
}
