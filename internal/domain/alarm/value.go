package alarm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueKind tags the shape carried by a Value.
type ValueKind uint8

const (
	// KindNone is the zero Value: nothing has been observed yet.
	KindNone ValueKind = iota
	// KindNumber is a numeric process value.
	KindNumber
	// KindBool is a boolean process value.
	KindBool
)

// Value is a trigger sample: either a number or a boolean.
type Value struct {
	kind   ValueKind
	number float64
	flag   bool
}

// Number wraps a numeric sample.
func Number(f float64) Value {
	return Value{kind: KindNumber, number: f}
}

// Bool wraps a boolean sample.
func Bool(b bool) Value {
	return Value{kind: KindBool, flag: b}
}

// ParseValue reads "true"/"false" as booleans and anything else as a number.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q is neither a number nor a boolean", ErrTypeMismatch, s)
	}

	v := Number(f)
	if !v.Finite() {
		return Value{}, fmt.Errorf("%w: %q is not a finite number", ErrTypeMismatch, s)
	}

	return v, nil
}

// Finite reports false for NaN and infinite numbers. Booleans and the zero Value are finite.
func (v Value) Finite() bool {
	return v.kind != KindNumber || !(math.IsNaN(v.number) || math.IsInf(v.number, 0))
}

// Kind reports the shape of the value.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsZero reports whether nothing was observed.
func (v Value) IsZero() bool {
	return v.kind == KindNone
}

// Float returns the numeric sample or ErrTypeMismatch.
func (v Value) Float() (float64, error) {
	if v.kind != KindNumber {
		return 0, fmt.Errorf("%w: expected number, got %s", ErrTypeMismatch, v.kind)
	}

	return v.number, nil
}

// Bool returns the boolean sample or ErrTypeMismatch.
func (v Value) Bool() (bool, error) {
	if v.kind != KindBool {
		return false, fmt.Errorf("%w: expected boolean, got %s", ErrTypeMismatch, v.kind)
	}

	return v.flag, nil
}

// Truthy is true for true booleans and positive numbers.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.flag
	case KindNumber:
		return v.number > 0
	default:
		return false
	}
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	return v == other
}

// String renders the sample for messages and logs.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.flag)
	default:
		return "<none>"
	}
}

// String names the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "none"
	}
}
