// Package runtime implements the tree-walking interpreter and the runtime
// value system for Lox.
package runtime

import (
	"math"
	"strconv"
)

// Value is the interface for all runtime values.
type Value interface {
	TypeName() string
	String() string
}

// ---- Primitive values ----

// NilVal represents nil.
type NilVal struct{}

func (v NilVal) TypeName() string { return "nil" }
func (v NilVal) String() string   { return "nil" }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "boolean" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. All Lox numbers are float64.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }
func (v NumberVal) String() string   { return formatNumber(float64(v)) }

// StringVal represents a string value.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return string(v) }

// formatNumber prints integral values without a fractional part. Magnitudes
// from 1e21 up switch to exponent form.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case math.Abs(f) >= 1e21:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ---- Truthiness ----

// IsTruthy reports whether v counts as true in a condition: nil and false
// are falsy, everything else (including 0 and "") is truthy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case nil, NilVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ============================================================
// Value equality
// ============================================================

// valuesEqual compares primitives by value and everything else by identity.
// Values of different kinds are never equal. Numbers follow IEEE-754, so
// NaN is not equal to itself.
func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case NilVal:
		_, ok := b.(NilVal)
		return ok
	case BoolVal:
		bv, ok := b.(BoolVal)
		return ok && av == bv
	case NumberVal:
		bv, ok := b.(NumberVal)
		return ok && float64(av) == float64(bv)
	case StringVal:
		bv, ok := b.(StringVal)
		return ok && av == bv
	}
	// Reference equality for functions, classes and instances
	return a == b
}
