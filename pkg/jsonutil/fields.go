// Package jsonutil reads loosely typed fields out of model-generated JSON.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ObjectFields decodes raw as a JSON object. ok is false for arrays, scalars,
// null and invalid JSON.
func ObjectFields(raw json.RawMessage) (fields map[string]json.RawMessage, ok bool) {
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// FieldText returns the text form of a field the model may have typed loosely.
// Strings are unquoted, numbers keep their literal digits (so ids beyond 2^53
// survive), booleans become "true"/"false", and null or absent fields are "".
// Objects and arrays are returned compacted.
func FieldText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return string(trimmed)
	}

	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return string(trimmed)
		}
		return buf.String()
	}
}
