package api

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NormalizeList returns v when it is an array, the "items" or "data" array
// when v is an object carrying one, and an empty list otherwise.
func NormalizeList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case map[string]any:
		for _, key := range []string{"items", "data"} {
			if list, ok := val[key].([]any); ok {
				return list
			}
		}
	}
	return []any{}
}

// Object returns v as a JSON object, or nil.
func Object(v any) map[string]any {
	obj, _ := v.(map[string]any)
	return obj
}

// String returns the first non-empty string-ish value among keys.
func String(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := Scalar(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

// Scalar renders a JSON scalar as a string. Objects, arrays and null render
// as "".
func Scalar(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	}
	return ""
}

// Strings extracts a list of strings from v. Elements that are objects
// contribute their "key", "name" or "code" field, so both ["a","b"] and
// [{"key":"a"}] shapes are accepted.
func Strings(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		var s string
		if obj, ok := item.(map[string]any); ok {
			s = String(obj, "key", "name", "code")
		} else {
			s = Scalar(item)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
