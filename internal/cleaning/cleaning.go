// Package cleaning provides the per-field coercion functions applied while
// normalizing raw API records, together with the registry that resolves the
// identifiers used in the field mapping config.
package cleaning

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format accepted by CheckDate unless the
// field mapping overrides it with a "format" arg.
const DateLayout = "2006-01-02"

// Args carries the optional per-field arguments from the mapping config,
// e.g. {"length": 10} for check_varchar.
type Args map[string]any

// Func coerces one raw value into its destination representation.
type Func func(val any, args Args) (any, error)

// CoercionError reports a raw value that could not be coerced to its target
// type.
type CoercionError struct {
	Target string
	Value  any
	Reason string
}

func (e *CoercionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cannot coerce %v to %s", e.Value, e.Target)
	}
	return fmt.Sprintf("cannot coerce %v to %s: %s", e.Value, e.Target, e.Reason)
}

var registry = map[string]Func{
	"check_integer": CheckInteger,
	"check_float":   CheckFloat,
	"check_date":    CheckDate,
	"check_epoch":   CheckEpoch,
	"check_varchar": CheckVarchar,
	"check_text":    CheckText,
	"do_none":       DoNone,
}

// Lookup resolves a cleaning function identifier from the mapping config.
// Unknown identifiers are a configuration error, surfaced at config load
// rather than while processing records.
func Lookup(name string) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown cleaning function %q", name)
	}
	return fn, nil
}

// CheckInteger accepts values representable as a whole number. Fractional
// input such as "42.5" is rejected rather than truncated.
func CheckInteger(val any, _ Args) (any, error) {
	n, err := toInt64(val)
	if err != nil {
		return nil, &CoercionError{Target: "integer", Value: val, Reason: "not a whole number"}
	}
	return n, nil
}

// CheckFloat accepts values representable as a decimal number and returns a
// decimal.Decimal so price columns never go through binary floats.
func CheckFloat(val any, _ Args) (any, error) {
	switch v := val.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return nil, &CoercionError{Target: "float", Value: val}
		}
		return d, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, &CoercionError{Target: "float", Value: val}
		}
		return d, nil
	default:
		return nil, &CoercionError{Target: "float", Value: val, Reason: fmt.Sprintf("unsupported type %T", val)}
	}
}

// CheckDate accepts a calendar-date string and returns the UTC time at
// midnight of that date.
func CheckDate(val any, args Args) (any, error) {
	s, ok := val.(string)
	if !ok {
		return nil, &CoercionError{Target: "date", Value: val, Reason: fmt.Sprintf("expected string, got %T", val)}
	}

	layout := DateLayout
	if raw, ok := args["format"]; ok {
		custom, ok := raw.(string)
		if !ok || custom == "" {
			return nil, &CoercionError{Target: "date", Value: val, Reason: "invalid format arg"}
		}
		layout = custom
	}

	t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil, &CoercionError{Target: "date", Value: val, Reason: err.Error()}
	}
	return t, nil
}

// CheckEpoch accepts a Unix timestamp with 10 digits (seconds) or 13 digits
// (milliseconds) and converts it to a UTC timestamp. Any other magnitude is
// rejected.
func CheckEpoch(val any, _ Args) (any, error) {
	n, err := toInt64(val)
	if err != nil {
		return nil, &CoercionError{Target: "epoch timestamp", Value: val, Reason: "not numeric"}
	}

	switch digits(n) {
	case 13:
		n /= 1000
	case 10:
	default:
		return nil, &CoercionError{Target: "epoch timestamp", Value: val, Reason: "expected 10 or 13 digit epoch"}
	}

	return time.Unix(n, 0).UTC(), nil
}

// CheckVarchar stringifies the value, strips backslashes and truncates it to
// the "length" arg from the mapping config.
func CheckVarchar(val any, args Args) (any, error) {
	length, err := argInt(args, "length")
	if err != nil {
		return nil, &CoercionError{Target: "varchar", Value: val, Reason: err.Error()}
	}

	s := strings.ReplaceAll(stringify(val), `\`, "")
	runes := []rune(s)
	if len(runes) > length {
		s = string(runes[:length])
	}
	return s, nil
}

// CheckText stringifies the value and strips backslashes.
func CheckText(val any, _ Args) (any, error) {
	return strings.ReplaceAll(stringify(val), `\`, ""), nil
}

// DoNone passes the raw value through unchanged.
func DoNone(val any, _ Args) (any, error) {
	return val, nil
}

func toInt64(val any) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("fractional value %v", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported type %T", val)
	}
}

func digits(n int64) int {
	if n < 0 {
		n = -n
	}
	return len(strconv.FormatInt(n, 10))
}

func argInt(args Args, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing %q arg", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("invalid %q arg %v", key, raw)
	}
}

func stringify(val any) string {
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}
