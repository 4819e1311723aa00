// Package calc evaluates a restricted arithmetic grammar. Only numeric literals,
// parentheses, unary negation and the binary operators + - * / % ** are accepted;
// every operator is dispatched through a fixed table of pure functions.
package calc

import (
	"fmt"
	"math"
	"strconv"

	"zus_chatbot/pkg"
)

// ErrArithmetic reports a runtime arithmetic failure such as division by zero.
// It wraps pkg.ErrInvalidExpression.
var ErrArithmetic = fmt.Errorf("%w: arithmetic error", pkg.ErrInvalidExpression)

type binaryFunc func(a, b float64) (float64, error)
type unaryFunc func(a float64) (float64, error)

var binaryOperators = map[string]binaryFunc{
	"+":  func(a, b float64) (float64, error) { return a + b, nil },
	"-":  func(a, b float64) (float64, error) { return a - b, nil },
	"*":  func(a, b float64) (float64, error) { return a * b, nil },
	"/":  divide,
	"%":  modulo,
	"**": power,
}

var unaryOperators = map[string]unaryFunc{
	"-": func(a float64) (float64, error) { return -a, nil },
}

// Evaluate parses and evaluates expr
func Evaluate(expr string) (float64, error) {
	root, err := Parse(expr)
	if err != nil {
		return 0, err
	}
	return Eval(root)
}

// Eval walks a parsed expression tree
func Eval(n Node) (float64, error) {
	var result float64

	switch n := n.(type) {
	case Number:
		result = n.Value
	case Unary:
		fn, ok := unaryOperators[n.Op]
		if !ok {
			return 0, fmt.Errorf("%w: operator not allowed: %s", pkg.ErrInvalidExpression, n.Op)
		}
		operand, err := Eval(n.Operand)
		if err != nil {
			return 0, err
		}
		result, err = fn(operand)
		if err != nil {
			return 0, err
		}
	case Binary:
		fn, ok := binaryOperators[n.Op]
		if !ok {
			return 0, fmt.Errorf("%w: operator not allowed: %s", pkg.ErrInvalidExpression, n.Op)
		}
		left, err := Eval(n.Left)
		if err != nil {
			return 0, err
		}
		right, err := Eval(n.Right)
		if err != nil {
			return 0, err
		}
		result, err = fn(left, right)
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: unsupported expression", pkg.ErrInvalidExpression)
	}

	if math.IsInf(result, 0) || math.IsNaN(result) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrArithmetic)
	}
	return result, nil
}

func divide(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	return a / b, nil
}

// modulo uses floored division: the result takes the sign of the divisor
func modulo(a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: modulo by zero", ErrArithmetic)
	}
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

func power(a, b float64) (float64, error) {
	if a == 0 && b < 0 {
		return 0, fmt.Errorf("%w: zero cannot be raised to a negative power", ErrArithmetic)
	}
	return math.Pow(a, b), nil
}

// Format renders a result without a trailing fractional part when it is integral
func Format(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
