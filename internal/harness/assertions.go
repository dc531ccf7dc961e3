package harness

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/IvanVnn/icerpc-csharp/internal/codec"
	"github.com/IvanVnn/icerpc-csharp/internal/wire"
)

// AssertionError is a failed expectation.
type AssertionError struct {
	Field    string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %v, got %v", e.Field, e.Expected, e.Actual)
}

// Plain converts a codec value into the form scenario files use: integers
// become int64 (uint64 above MaxInt64 stays uint64), float32 becomes
// float64, structs become field maps, classes and exceptions add their type
// ID under "$type", enums become their enumerator name (or value when
// unnamed) and dictionaries become maps keyed by the printed key.
func Plain(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint:
		return plainUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return plainUint(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = Plain(item)
		}
		return out
	case map[string]any:
		return plainMap(x)
	case *codec.StructValue:
		return plainMap(x.Fields)
	case *codec.ClassValue:
		m := plainMap(x.Fields)
		m[codec.TypeKey] = x.TypeID
		return m
	case *codec.ExceptionValue:
		m := plainMap(x.Fields)
		m[codec.TypeKey] = x.TypeID
		return m
	case codec.EnumValue:
		if x.Name != "" {
			return x.Name
		}
		return x.Value
	case *codec.Dictionary:
		m := make(map[string]any, len(x.Entries))
		for _, e := range x.Entries {
			m[fmt.Sprint(Plain(e.Key))] = Plain(e.Value)
		}
		return m
	case codec.ServiceAddress:
		return string(x)
	}
	return v
}

func plainUint(u uint64) any {
	if u > math.MaxInt64 {
		return u
	}
	return int64(u)
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Plain(v)
	}
	return out
}

// matchSubset checks that actual holds every key of expected with an equal
// value. Extra keys in actual are ignored at the top level only.
func matchSubset(field string, actual, expected map[string]any) error {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actualVal, exists := actual[key]
		if !exists {
			return &AssertionError{Field: field + "." + key, Expected: Plain(expected[key]), Actual: "<absent>"}
		}
		if !valuesEqual(actualVal, expected[key]) {
			return &AssertionError{Field: field + "." + key, Expected: Plain(expected[key]), Actual: Plain(actualVal)}
		}
	}
	return nil
}

// valuesEqual compares two values after converting both to plain form.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(Plain(actual), Plain(expected))
}

// errorClass maps a codec error onto the class names scenario files use.
func errorClass(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, wire.ErrInvalidEnumValue):
		return ErrorInvalidEnumValue
	case errors.Is(err, wire.ErrOutOfRange):
		return ErrorOutOfRange
	case errors.Is(err, wire.ErrInvalidData), errors.Is(err, wire.ErrEndOfBuffer):
		return ErrorInvalidData
	}
	return "error"
}

// checkError compares an observed error with the expected class. It returns
// true when the case is finished (an error was expected or occurred).
func checkError(res *CaseResult, expect *ExpectClause, err error) bool {
	want := ""
	if expect != nil {
		want = expect.Error
	}
	got := errorClass(err)
	if got != "" {
		res.Observed["error"] = got
	}
	switch {
	case want == "" && err != nil:
		res.fail(fmt.Sprintf("unexpected error: %v", err))
		return true
	case want != "" && got != want:
		res.fail((&AssertionError{Field: "error", Expected: want, Actual: orNone(got)}).Error())
		return true
	}
	return want != ""
}

func orNone(s string) string {
	if s == "" {
		return "<none>"
	}
	return s
}
