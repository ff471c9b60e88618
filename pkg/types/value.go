package types

import (
	"strconv"
	"strings"
)

// Value kinds an option value coerced from text can take.
const (
	ValueKindBoolean ValueKind = "boolean"
	ValueKindInteger ValueKind = "integer"
	ValueKindFloat   ValueKind = "float"
	ValueKindText    ValueKind = "text"
)

// ValueKind tags the variant held by an OptionValue.
type ValueKind string

// OptionValue is a tagged scalar produced from untyped text input.
// Exactly one of the payload fields is meaningful, selected by Kind.
type OptionValue struct {
	Kind  ValueKind
	Bool  bool
	Int   int64
	Float float64
	Str   string
}

// CoerceFromString converts UI text into a typed value. Precedence:
// the literals "true" and "false" become booleans; signed decimal text
// becomes an integer when it has no decimal point and a float otherwise;
// anything else stays text.
func CoerceFromString(s string) OptionValue {
	switch s {
	case "true":
		return OptionValue{Kind: ValueKindBoolean, Bool: true}
	case "false":
		return OptionValue{Kind: ValueKindBoolean, Bool: false}
	}
	if !isDecimal(s) {
		return OptionValue{Kind: ValueKindText, Str: s}
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return OptionValue{Kind: ValueKindFloat, Float: f}
		}
	} else if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return OptionValue{Kind: ValueKindInteger, Int: i}
	}
	return OptionValue{Kind: ValueKindText, Str: s}
}

// isDecimal reports whether s is an optionally signed run of digits with at
// most one decimal point. Exponents, hex and underscores are not numbers here.
func isDecimal(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits, points := 0, 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			points++
		default:
			return false
		}
	}
	return digits > 0 && points <= 1
}

// Any returns the payload as a plain Go value suitable for Options.
func (v OptionValue) Any() any {
	switch v.Kind {
	case ValueKindBoolean:
		return v.Bool
	case ValueKindInteger:
		return v.Int
	case ValueKindFloat:
		return v.Float
	default:
		return v.Str
	}
}

// String renders the value the way it would be typed into the UI.
func (v OptionValue) String() string {
	switch v.Kind {
	case ValueKindBoolean:
		return strconv.FormatBool(v.Bool)
	case ValueKindInteger:
		return strconv.FormatInt(v.Int, 10)
	case ValueKindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return v.Str
	}
}
