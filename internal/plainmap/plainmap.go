// Package plainmap reads typed fields out of map[string]any values such as
// those produced by encoding/json or yaml.v3 when a host application embeds
// our data in its own project file.
package plainmap

import (
	"errors"
	"fmt"
	"math"
)

// Reader collects the first conversion error so callers can read many
// fields and check once.
type Reader struct {
	m   map[string]any
	err error
}

func NewReader(m map[string]any) *Reader {
	return &Reader{m: m}
}

// Err returns the first error encountered.
func (r *Reader) Err() error { return r.err }

func (r *Reader) fail(key string, v any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: want %s, got %T", key, want, v)
	}
}

// Has reports whether key is present and non-nil.
func (r *Reader) Has(key string) bool {
	v, ok := r.m[key]
	return ok && v != nil
}

// Bool stores m[key] into dst when present.
func (r *Reader) Bool(key string, dst *bool) {
	v, ok := r.m[key]
	if !ok || v == nil {
		return
	}
	b, ok := v.(bool)
	if !ok {
		r.fail(key, v, "bool")
		return
	}
	*dst = b
}

// Float stores m[key] into dst when present. Any numeric type is accepted.
func (r *Reader) Float(key string, dst *float64) {
	v, ok := r.m[key]
	if !ok || v == nil {
		return
	}
	f, err := ToFloat(v)
	if err != nil {
		r.fail(key, v, "number")
		return
	}
	*dst = f
}

// Int stores m[key] into dst when present. Floats must be integral.
func (r *Reader) Int(key string, dst *int) {
	v, ok := r.m[key]
	if !ok || v == nil {
		return
	}
	i, err := ToInt(v)
	if err != nil {
		r.fail(key, v, "integer")
		return
	}
	*dst = i
}

// Ints stores a list of integers found at m[key] into dst when present.
func (r *Reader) Ints(key string, dst *[]int) {
	v, ok := r.m[key]
	if !ok || v == nil {
		return
	}
	var out []int
	switch s := v.(type) {
	case []int:
		out = append([]int(nil), s...)
	case []int64:
		out = make([]int, len(s))
		for i, x := range s {
			out[i] = int(x)
		}
	case []float64:
		out = make([]int, len(s))
		for i, x := range s {
			n, err := ToInt(x)
			if err != nil {
				r.fail(key, x, "integer list")
				return
			}
			out[i] = n
		}
	case []any:
		out = make([]int, len(s))
		for i, x := range s {
			n, err := ToInt(x)
			if err != nil {
				r.fail(key, x, "integer list")
				return
			}
			out[i] = n
		}
	default:
		r.fail(key, v, "integer list")
		return
	}
	*dst = out
}

var errNotNumber = errors.New("not a number")

// ToFloat converts any Go numeric value to float64.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	}
	return 0, errNotNumber
}

// ToInt converts any Go numeric value to int, rejecting fractional floats.
func ToInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	}
	f, err := ToFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, errNotNumber
	}
	return int(f), nil
}
