package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Well-known option keys.
const (
	OptionName              = "name"
	OptionAlternativeImages = "alternativeImages"
)

// Options holds per-entity overrides for token properties. Values are
// bool, int64, float64, string, []string, []any or nested maps of those.
type Options map[string]any

// Clone returns a deep copy of o. A nil receiver yields an empty map.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = cloneOptionValue(v)
	}
	return out
}

func cloneOptionValue(v any) any {
	switch tv := v.(type) {
	case []string:
		cp := make([]string, len(tv))
		copy(cp, tv)
		return cp
	case []any:
		cp := make([]any, len(tv))
		for i, e := range tv {
			cp[i] = cloneOptionValue(e)
		}
		return cp
	case map[string]any:
		cp := make(map[string]any, len(tv))
		for k, e := range tv {
			cp[k] = cloneOptionValue(e)
		}
		return cp
	case Options:
		return tv.Clone()
	default:
		return v
	}
}

// MarshalJSON writes float values with a fraction, so 12.0 stays a float
// when read back instead of becoming the integer 12.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodableOption(map[string]any(o)))
}

func encodableOption(v any) any {
	switch tv := v.(type) {
	case float64:
		return floatLiteral(tv)
	case float32:
		return floatLiteral(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = encodableOption(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = encodableOption(e)
		}
		return out
	case Options:
		return encodableOption(map[string]any(tv))
	default:
		return v
	}
}

// floatLiteral is a float64 that always encodes with a decimal point.
type floatLiteral float64

func (f floatLiteral) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("unsupported option value %v", v)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

// normalizeOptionValue converts values decoded with json.Decoder.UseNumber
// into the option value types: numbers written without a fraction or
// exponent become int64, other numbers float64, and arrays made only of
// strings become []string.
func normalizeOptionValue(v any) any {
	switch tv := v.(type) {
	case json.Number:
		s := tv.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := tv.Int64(); err == nil {
				return i
			}
		}
		if f, err := tv.Float64(); err == nil {
			return f
		}
		return s
	case int:
		return int64(tv)
	case int32:
		return int64(tv)
	case []any:
		allStrings := true
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = normalizeOptionValue(e)
			if _, ok := out[i].(string); !ok {
				allStrings = false
			}
		}
		if allStrings {
			strs := make([]string, len(out))
			for i, e := range out {
				strs[i] = e.(string)
			}
			return strs
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = normalizeOptionValue(e)
		}
		return out
	default:
		return v
	}
}

// NormalizeOptions returns a deep copy of raw with every value converted
// to the option value types.
func NormalizeOptions(raw map[string]any) Options {
	out := make(Options, len(raw))
	for k, v := range raw {
		out[k] = normalizeOptionValue(v)
	}
	return out
}

// stringSlice reads a []string or []any of strings. Non-string elements are
// dropped.
func stringSlice(v any) ([]string, bool) {
	switch tv := v.(type) {
	case []string:
		return tv, true
	case []any:
		out := make([]string, 0, len(tv))
		for _, e := range tv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
