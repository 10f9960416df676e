// Package union implements operations over number-or-text values.
package union

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidArgumentCombination is returned when operands are not both
	// numbers or both text
	ErrInvalidArgumentCombination = errors.New("parameters must be numbers or strings")

	// ErrTextExpected is returned by Shout for non-text values
	ErrTextExpected = errors.New("a string was expected here")
)

// Combine adds two numbers or concatenates two strings.
// Each operand is checked on its own before branching; mixed or invalid
// operands fail without a partial result.
func Combine(x, y Value) (Value, error) {
	xn, xIsNum := x.AsNumber()
	yn, yIsNum := y.AsNumber()
	if xIsNum && yIsNum {
		return Number(xn + yn), nil
	}

	xs, xIsText := x.AsText()
	ys, yIsText := y.AsText()
	if xIsText && yIsText {
		return Text(xs + ys), nil
	}

	return Value{}, fmt.Errorf("combine %s with %s: %w", x.Kind(), y.Kind(), ErrInvalidArgumentCombination)
}

// Shout narrows v to text and upper-cases it
func Shout(v Value) (string, error) {
	s, ok := v.AsText()
	if !ok {
		return "", fmt.Errorf("shout %s: %w", v.Kind(), ErrTextExpected)
	}
	return strings.ToUpper(s), nil
}
