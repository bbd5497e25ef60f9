// Package docstore is a small keyed document store abstraction with
// Firestore, MySQL and in-memory backends.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrConflict is returned by Update when the stored revision differs from
// the one the caller read, or the document disappeared in between.
var ErrConflict = errors.New("document revision conflict")

// TimeLayout is the fixed-width layout used where a backend stores times as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type Fields map[string]any

type Document struct {
	Key      string
	Fields   Fields
	Revision string
}

type Filter struct {
	Field string
	Value any
}

type Query struct {
	Where   []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func Where(field string, value any) Query {
	return Query{Where: []Filter{{Field: field, Value: value}}}
}

type Store interface {
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, collection, key string) (*Document, error)
	// Set creates or overwrites a document unconditionally.
	Set(ctx context.Context, collection, key string, fields Fields) error
	// Update overwrites a document only if its revision still equals revision.
	Update(ctx context.Context, collection, key string, fields Fields, revision string) error
	Find(ctx context.Context, collection string, q Query) ([]Document, error)
	Close() error
}

func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (f Fields) Int64(key string) int64 {
	switch v := f[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}

func (f Fields) Int(key string) int {
	return int(f.Int64(key))
}

func (f Fields) Bool(key string) bool {
	switch v := f[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

func (f Fields) Time(key string) time.Time {
	switch v := f[key].(type) {
	case time.Time:
		return v.UTC()
	case *time.Time:
		if v == nil {
			return time.Time{}
		}
		return v.UTC()
	case string:
		for _, layout := range []string{TimeLayout, time.RFC3339Nano} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// TimePtr returns nil for missing, null or zero times.
func (f Fields) TimePtr(key string) *time.Time {
	t := f.Time(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

// Has reports whether key is present with a non-nil value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}

func cloneFields(f Fields) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if t, ok := v.(*time.Time); ok {
			if t == nil {
				out[k] = nil
				continue
			}
			copied := *t
			out[k] = copied
			continue
		}
		out[k] = v
	}
	return out
}

// normalizeValue reduces a field value to a form usable with == and ordering.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float64:
		if x == float64(int64(x)) {
			return int64(x)
		}
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		return x.String()
	case time.Time:
		return x.UTC().UnixNano()
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC().UnixNano()
	default:
		return v
	}
}

func less(a, b any) bool {
	switch x := normalizeValue(a).(type) {
	case int64:
		y, ok := normalizeValue(b).(int64)
		return ok && x < y
	case float64:
		y, ok := normalizeValue(b).(float64)
		return ok && x < y
	case string:
		y, ok := normalizeValue(b).(string)
		return ok && x < y
	case nil:
		return normalizeValue(b) != nil
	default:
		return false
	}
}
