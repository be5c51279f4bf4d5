package model

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Record is the plain, JSON-shaped form of an entity as exchanged with the server.
type Record map[string]any

// Editable is implemented by every entity a dialog or composition node edits.
//
// Load replaces every known field from r (absent fields become zero values); unknown keys
// are dropped. Serialize produces a fresh Record holding every known field.
type Editable interface {
	Load(r Record)
	Serialize() Record
}

// Normalize maps differently-cased payload keys onto their canonical names.
//
// Servers have historically sent "Id", "ID" or "slide_id" for what the client calls "id"
// and "slideId". Keys already in canonical form win; other keys are matched
// case-insensitively with underscores ignored, and among several variants of one field the
// first in byte order wins. Keys that match no canonical field are kept so callers can
// still inspect them.
func Normalize(r Record, fields ...string) Record {
	if r == nil {
		return Record{}
	}
	out := make(Record, len(r))
	canon := make(map[string]string, len(fields))
	for _, f := range fields {
		canon[foldKey(f)] = f
	}
	for _, k := range slices.Sorted(maps.Keys(r)) {
		v := r[k]
		name, ok := canon[foldKey(k)]
		if !ok {
			out[k] = v
			continue
		}
		if k != name {
			if _, exact := r[name]; exact {
				continue
			}
			if _, taken := out[name]; taken {
				continue
			}
		}
		out[name] = v
	}
	return out
}

func foldKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

// AsRecord converts a decoded response payload to a Record.
func AsRecord(v any) (Record, bool) {
	switch t := v.(type) {
	case Record:
		return t, true
	case map[string]any:
		return Record(t), true
	default:
		return nil, false
	}
}

// AsRecords converts a decoded list payload to Records, skipping entries that are not objects.
func AsRecords(v any) []Record {
	switch t := v.(type) {
	case []Record:
		return t
	case []any:
		out := make([]Record, 0, len(t))
		for _, x := range t {
			if r, ok := AsRecord(x); ok {
				out = append(out, r)
			}
		}
		return out
	case []map[string]any:
		out := make([]Record, 0, len(t))
		for _, x := range t {
			out = append(out, Record(x))
		}
		return out
	default:
		return nil
	}
}

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Record) String(key string) string {
	switch t := r[key].(type) {
	case string:
		return t
	case nil:
		return ""
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func (r Record) Int(key string) int64 {
	switch t := r[key].(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float64:
		return int64(t)
	case float32:
		return int64(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, _ := t.Float64()
			return int64(f)
		}
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n
	default:
		return 0
	}
}

func (r Record) Float(key string) float64 {
	switch t := r[key].(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

func (r Record) Bool(key string) bool {
	switch t := r[key].(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return false
	}
}

// Records returns the list stored under key as Records.
func (r Record) Records(key string) []Record {
	return AsRecords(r[key])
}

// Clone returns a deep copy; nested maps and slices are copied too.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return cloneValue(r).(Record)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		out := make(Record, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneValue(x)
		}
		return out
	case []Record:
		out := make([]Record, len(t))
		for i, x := range t {
			out[i] = cloneValue(x).(Record)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneValue(x)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
