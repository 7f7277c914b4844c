// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package partseq

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared value kind of a key column.
type Kind uint8

const (
	// KindAuto binds to the kind of the first non-null value seen.
	KindAuto Kind = iota
	KindString
	KindInt64
	KindFloat64
	KindBool
	KindBytes
	KindTimestamp
)

var kindNames = [...]string{
	KindAuto:      "auto",
	KindString:    "string",
	KindInt64:     "int64",
	KindFloat64:   "float64",
	KindBool:      "bool",
	KindBytes:     "bytes",
	KindTimestamp: "timestamp",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// ParseKind accepts the kind names above plus a few common SQL aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "string", "str", "text", "varchar":
		return KindString, nil
	case "int64", "int", "integer", "bigint", "long":
		return KindInt64, nil
	case "float64", "float", "double":
		return KindFloat64, nil
	case "bool", "boolean":
		return KindBool, nil
	case "bytes", "binary", "blob":
		return KindBytes, nil
	case "timestamp", "time":
		return KindTimestamp, nil
	}
	return KindAuto, fmt.Errorf("unknown key kind %q", s)
}

// Comparator normalizes, compares and copies the values of one key column.
// Equal is null-safe. Compare is only called with two non-null values that
// are not Equal. Copy returns a value that shares no memory with its input.
type Comparator interface {
	Kind() Kind
	Normalize(v any) (any, error)
	Equal(a, b any) bool
	Compare(a, b any) int
	Copy(v any) any
}

// NewComparator returns the comparator for the given kind. KindAuto returns
// a fresh comparator that is bound on first use, so it must not be shared.
func NewComparator(k Kind) (Comparator, error) {
	switch k {
	case KindAuto:
		return &autoComparator{}, nil
	case KindString:
		return orderedComparator[string]{kind: KindString, normalize: toString, clone: strings.Clone}, nil
	case KindInt64:
		return orderedComparator[int64]{kind: KindInt64, normalize: toInt64}, nil
	case KindFloat64:
		return orderedComparator[float64]{kind: KindFloat64, normalize: toFloat64}, nil
	case KindBool:
		return boolComparator{}, nil
	case KindBytes:
		return bytesComparator{}, nil
	case KindTimestamp:
		return timeComparator{}, nil
	}
	return nil, fmt.Errorf("unknown key kind %d", k)
}

type orderedComparator[T cmp.Ordered] struct {
	kind      Kind
	normalize func(any) (T, error)
	clone     func(T) T
}

func (c orderedComparator[T]) Kind() Kind { return c.kind }

func (c orderedComparator[T]) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, err := c.normalize(v)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Equal uses ==, so a float NaN is never equal to anything, itself included.
func (c orderedComparator[T]) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.(T) == b.(T)
}

func (c orderedComparator[T]) Compare(a, b any) int {
	return cmp.Compare(a.(T), b.(T))
}

func (c orderedComparator[T]) Copy(v any) any {
	if v == nil || c.clone == nil {
		return v
	}
	return c.clone(v.(T))
}

type boolComparator struct{}

func (boolComparator) Kind() Kind { return KindBool }

func (boolComparator) Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	}
	return nil, unsupported(v)
}

func (boolComparator) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.(bool) == b.(bool)
}

// Compare orders false before true.
func (boolComparator) Compare(a, b any) int {
	x, y := a.(bool), b.(bool)
	switch {
	case x == y:
		return 0
	case y:
		return -1
	default:
		return 1
	}
}

func (boolComparator) Copy(v any) any { return v }

type bytesComparator struct{}

func (bytesComparator) Kind() Kind { return KindBytes }

func (bytesComparator) Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	}
	return nil, unsupported(v)
}

func (bytesComparator) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return bytes.Equal(a.([]byte), b.([]byte))
}

func (bytesComparator) Compare(a, b any) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

func (bytesComparator) Copy(v any) any {
	if v == nil {
		return nil
	}
	return bytes.Clone(v.([]byte))
}

type timeComparator struct{}

func (timeComparator) Kind() Kind { return KindTimestamp }

// Normalize accepts time.Time, RFC 3339 strings and integer epoch milliseconds.
func (timeComparator) Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x, nil
	case string:
		return time.Parse(time.RFC3339Nano, x)
	}
	ms, err := toInt64(v)
	if err != nil {
		return nil, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (timeComparator) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.(time.Time).Equal(b.(time.Time))
}

func (timeComparator) Compare(a, b any) int {
	return a.(time.Time).Compare(b.(time.Time))
}

func (timeComparator) Copy(v any) any { return v }

// autoComparator delegates to the comparator of the first non-null value's
// kind. A column that binds to a number accepts both integers and floats.
type autoComparator struct {
	bound Comparator
}

func (c *autoComparator) Kind() Kind {
	if c.bound == nil {
		return KindAuto
	}
	return c.bound.Kind()
}

func (c *autoComparator) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	k, err := kindOf(v)
	if err != nil {
		return nil, err
	}
	if c.bound == nil {
		if isNumeric(k) {
			c.bound = &numericComparator{}
		} else {
			bound, err := NewComparator(k)
			if err != nil {
				return nil, err
			}
			c.bound = bound
		}
	}
	if _, ok := c.bound.(*numericComparator); ok {
		if !isNumeric(k) {
			return nil, fmt.Errorf("column already holds numeric values, got %s", k)
		}
	} else if bk := c.bound.Kind(); bk != k {
		return nil, fmt.Errorf("column already holds %s values, got %s", bk, k)
	}
	return c.bound.Normalize(v)
}

func (c *autoComparator) Equal(a, b any) bool {
	if c.bound == nil {
		return a == nil && b == nil
	}
	return c.bound.Equal(a, b)
}

func (c *autoComparator) Compare(a, b any) int {
	return c.bound.Compare(a, b)
}

func (c *autoComparator) Copy(v any) any {
	if c.bound == nil {
		return v
	}
	return c.bound.Copy(v)
}

func isNumeric(k Kind) bool {
	return k == KindInt64 || k == KindFloat64
}

// numericComparator holds int64 and float64 values side by side and
// compares them exactly, so an integer column may later see fractions
// without losing precision on large integers.
type numericComparator struct {
	sawFloat bool
}

func (c *numericComparator) Kind() Kind {
	if c.sawFloat {
		return KindFloat64
	}
	return KindInt64
}

func (c *numericComparator) Normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	k, err := kindOf(v)
	if err != nil {
		return nil, err
	}
	if k == KindInt64 {
		return toInt64(v)
	}
	c.sawFloat = true
	return toFloat64(v)
}

// Equal treats a NaN as unequal to everything, like the float comparator.
func (c *numericComparator) Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNaN(a) || isNaN(b) {
		return false
	}
	return c.Compare(a, b) == 0
}

func (c *numericComparator) Compare(a, b any) int {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return cmp.Compare(x, y)
		case float64:
			return compareIntFloat(x, y)
		}
	case float64:
		switch y := b.(type) {
		case int64:
			return -compareIntFloat(y, x)
		case float64:
			return cmp.Compare(x, y)
		}
	}
	// Normalize only produces int64 and float64.
	return 0
}

func isNaN(v any) bool {
	f, ok := v.(float64)
	return ok && math.IsNaN(f)
}

// compareIntFloat compares i and f exactly. A NaN compares as 0, which the
// sequencer treats as "not discriminating".
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64: // 2^63, above every int64
		return -1
	case f < math.MinInt64:
		return 1
	}
	t := math.Trunc(f)
	if c := cmp.Compare(i, int64(t)); c != 0 {
		return c
	}
	return cmp.Compare(t, f)
}

func (c *numericComparator) Copy(v any) any { return v }

// kindOf maps a host value to the kind an auto column would bind to.
func kindOf(v any) (Kind, error) {
	switch x := v.(type) {
	case string:
		return KindString, nil
	case []byte:
		return KindBytes, nil
	case bool:
		return KindBool, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt64, nil
	case float32, float64:
		return KindFloat64, nil
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return KindInt64, nil
		}
		return KindFloat64, nil
	case time.Time:
		return KindTimestamp, nil
	}
	return KindAuto, unsupported(v)
}

func unsupported(v any) error {
	return fmt.Errorf("unsupported value type %T", v)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.Number:
		return x.String(), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	return "", unsupported(v)
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", x)
		}
		return int64(x), nil
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	}
	return 0, unsupported(v)
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %v is not an int64", f)
	}
	return int64(f), nil
}

func toFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}
