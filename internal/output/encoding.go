package output

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// DeterministicEncode produces byte-identical JSON output
// - Stable key ordering (sorted alphabetically)
// - Floats rounded to places decimals
// - Nil fields omitted entirely
func DeterministicEncode(v interface{}, places int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(normalizeValue(v, places)); err != nil {
		return nil, err
	}

	// Remove the trailing newline added by Encode
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DeterministicEncodeIndented produces indented byte-identical JSON output
func DeterministicEncodeIndented(v interface{}, indent string, places int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", indent)

	if err := encoder.Encode(normalizeValue(v, places)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizeValue recursively normalizes a value for deterministic encoding.
// Maps and structs become map[string]interface{}, which encoding/json writes
// with sorted keys.
func normalizeValue(v interface{}, places int) interface{} {
	if v == nil {
		return nil
	}

	val := reflect.ValueOf(v)

	// Types with their own encoding (time.Time, json.RawMessage) pass through.
	if _, ok := v.(json.Marshaler); ok {
		if val.Kind() == reflect.Ptr && val.IsNil() {
			return nil
		}
		return v
	}

	// Dereference pointers
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Map:
		return normalizeMap(val, places)
	case reflect.Slice, reflect.Array:
		return normalizeSlice(val, places)
	case reflect.Struct:
		return normalizeStruct(val, places)
	case reflect.Float32, reflect.Float64:
		return RoundFloat(val.Float(), places)
	case reflect.Interface:
		if val.IsNil() {
			return nil
		}
		return normalizeValue(val.Interface(), places)
	default:
		return val.Interface()
	}
}

func normalizeMap(val reflect.Value, places int) interface{} {
	if val.IsNil() {
		return nil
	}

	result := make(map[string]interface{}, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		// Only include non-nil values
		if value := normalizeValue(iter.Value().Interface(), places); value != nil {
			result[iter.Key().String()] = value
		}
	}
	return result
}

func normalizeSlice(val reflect.Value, places int) interface{} {
	if val.Kind() == reflect.Slice && val.IsNil() {
		return nil
	}

	result := make([]interface{}, val.Len())
	for i := 0; i < val.Len(); i++ {
		result[i] = normalizeValue(val.Index(i).Interface(), places)
	}
	return result
}

func normalizeStruct(val reflect.Value, places int) interface{} {
	result := make(map[string]interface{})
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}
		tagName, opts, _ := strings.Cut(jsonTag, ",")
		if tagName == "" {
			tagName = field.Name
		}

		fieldVal := val.Field(i)
		if strings.Contains(opts, "omitempty") && fieldVal.IsZero() {
			continue
		}
		if normalized := normalizeValue(fieldVal.Interface(), places); normalized != nil {
			result[tagName] = normalized
		}
	}
	return result
}
