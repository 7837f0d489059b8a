// Package record decodes JSON objects into partially typed Go values without
// losing the keys, or the value shapes, the Go side does not model.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
)

// ErrNotObject is returned when the document is not a JSON object.
var ErrNotObject = errors.New("record: not a JSON object")

// Field binds a JSON key to a pointer the value decodes into.
type Field struct {
	Key   string
	Value any
}

// Unmarshal decodes the object in data. A field is filled only when its JSON
// value fits the Go type and is not null; it is then reported in present.
// Every other key, including known keys of an unexpected shape, is kept in
// rest unchanged.
func Unmarshal(data []byte, fields []Field) (rest map[string]json.RawMessage, present map[string]bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, ErrNotObject
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &all); err != nil {
		return nil, nil, err
	}
	for _, f := range fields {
		raw, ok := all[f.Key]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, f.Value); err != nil {
			reflect.ValueOf(f.Value).Elem().SetZero()
			continue
		}
		delete(all, f.Key)
		if present == nil {
			present = make(map[string]bool, len(fields))
		}
		present[f.Key] = true
	}
	if len(all) > 0 {
		rest = all
	}
	return rest, present, nil
}

// Marshal encodes rest with the fields laid over it. A field is written when
// it was present on decode or now holds a non-zero value; otherwise whatever
// rest has under its key is kept.
func Marshal(rest map[string]json.RawMessage, present map[string]bool, fields []Field) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(rest)+len(fields))
	for k, v := range rest {
		out[k] = v
	}
	for _, f := range fields {
		if !present[f.Key] && reflect.ValueOf(f.Value).Elem().IsZero() {
			continue
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		out[f.Key] = v
	}
	return json.Marshal(out)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
