package types

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

// Reserved record fields managed by the store.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// FieldStatus is the conventional lifecycle field. Records are never deleted;
// callers change status instead.
const FieldStatus = "status"

// TimeFormat is the layout of created_at and updated_at values.
const TimeFormat = time.RFC3339Nano

// Record is a schema-less entry in a table. Values are JSON-compatible:
// string, float64, bool, nil, []any or map[string]any once normalized.
type Record map[string]any

// Filter holds exact-match constraints for Store.Query. All entries must
// match (AND semantics).
type Filter map[string]any

// NormalizeRecord returns a deep copy of r with every value converted to the
// form it takes after a JSON round trip. A nil record normalizes to an empty
// one. Values that cannot be encoded yield ErrInvalidData.
func NormalizeRecord(r Record) (Record, error) {
	if r == nil {
		return Record{}, nil
	}
	out, err := normalize(map[string]any(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return Record(out), nil
}

// Normalize converts filter values the same way NormalizeRecord converts
// record values so that the two compare by equality. Values that cannot be
// encoded yield ErrInvalidFilter.
func (f Filter) Normalize() (Filter, error) {
	if len(f) == 0 {
		return nil, nil
	}
	out, err := normalize(map[string]any(f))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	return Filter(out), nil
}

// Matches reports whether r satisfies every entry in f. Both sides must be
// normalized. A key absent from r never matches, even against a nil value.
func (f Filter) Matches(r Record) bool {
	for k, want := range f {
		got, ok := r[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func normalize(m map[string]any) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(m))
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ID returns the record's id, or 0 when the field is missing or not a
// positive whole number.
func (r Record) ID() int64 {
	id, ok := ToInt64(r[FieldID])
	if !ok || id <= 0 {
		return 0
	}
	return id
}

// Text returns the string value of key, or "" when absent or not a string.
func (r Record) Text(key string) string {
	s, _ := r[key].(string)
	return s
}

// Merge copies patch entries into r, overwriting existing keys. The id and
// created_at fields are never touched.
func (r Record) Merge(patch Record) {
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		r[k] = v
	}
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(cloneMap(r))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case Record:
		return Record(cloneMap(val))
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// ToInt64 converts the numeric forms an id can take (after JSON decoding,
// from a database driver, or from a caller) to int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
