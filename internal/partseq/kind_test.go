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
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindAuto, false},
		{"auto", KindAuto, false},
		{"STRING", KindString, false},
		{"bigint", KindInt64, false},
		{"double", KindFloat64, false},
		{"boolean", KindBool, false},
		{"binary", KindBytes, false},
		{"timestamp", KindTimestamp, false},
		{"decimal", KindAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "int64", KindInt64.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestComparator_Normalize(t *testing.T) {
	tests := []struct {
		kind    Kind
		in      any
		want    any
		wantErr bool
	}{
		{KindString, "a", "a", false},
		{KindString, []byte("b"), "b", false},
		{KindString, json.Number("12"), "12", false},
		{KindString, 3.5, "3.5", false},
		{KindString, []int{1}, nil, true},
		{KindInt64, 7, int64(7), false},
		{KindInt64, uint32(7), int64(7), false},
		{KindInt64, 7.0, int64(7), false},
		{KindInt64, 7.5, nil, true},
		{KindInt64, json.Number("42"), int64(42), false},
		{KindInt64, " 9 ", int64(9), false},
		{KindInt64, uint64(1 << 63), nil, true},
		{KindFloat64, 2, float64(2), false},
		{KindFloat64, float32(1.5), 1.5, false},
		{KindFloat64, json.Number("2.25"), 2.25, false},
		{KindBool, true, true, false},
		{KindBool, "false", false, false},
		{KindBool, 1, nil, true},
		{KindBytes, "xy", []byte("xy"), false},
		{KindBytes, 1, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			c, err := NewComparator(tt.kind)
			require.NoError(t, err)
			got, err := c.Normalize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparator_NullSafeEqual(t *testing.T) {
	for _, k := range []Kind{KindAuto, KindString, KindInt64, KindFloat64, KindBool, KindBytes, KindTimestamp} {
		c, err := NewComparator(k)
		require.NoError(t, err)
		n, err := c.Normalize(nil)
		require.NoError(t, err)
		assert.Nil(t, n, k.String())
		assert.True(t, c.Equal(nil, nil), k.String())
	}

	c, err := NewComparator(KindString)
	require.NoError(t, err)
	assert.False(t, c.Equal(nil, "a"))
	assert.False(t, c.Equal("a", nil))
}

func TestComparator_Compare(t *testing.T) {
	b, _ := NewComparator(KindBool)
	assert.Equal(t, -1, b.Compare(false, true))
	assert.Equal(t, 1, b.Compare(true, false))
	assert.Equal(t, 0, b.Compare(true, true))

	by, _ := NewComparator(KindBytes)
	assert.Equal(t, -1, by.Compare([]byte("a"), []byte("b")))

	s, _ := NewComparator(KindString)
	assert.Equal(t, 1, s.Compare("b", "a"))
}

func TestAutoComparator_BindsToFirstKind(t *testing.T) {
	c, err := NewComparator(KindAuto)
	require.NoError(t, err)
	assert.Equal(t, KindAuto, c.Kind())

	_, err = c.Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, KindAuto, c.Kind())

	v, err := c.Normalize(3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
	assert.Equal(t, KindInt64, c.Kind())

	_, err = c.Normalize("3")
	assert.Error(t, err)
	_, err = c.Normalize(true)
	assert.Error(t, err)
}

func TestAutoComparator_NumbersMixInEitherOrder(t *testing.T) {
	tests := []struct {
		name string
		in   []any
	}{
		{"int first", []any{int64(1), 1.5, int64(2)}},
		{"float first", []any{json.Number("1.5"), int64(2), 2.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewComparator(KindAuto)
			require.NoError(t, err)
			var prev any
			for i, in := range tt.in {
				v, err := c.Normalize(in)
				require.NoError(t, err)
				if i > 0 {
					assert.Equal(t, 1, c.Compare(v, prev), "value %d", i)
					assert.Equal(t, -1, c.Compare(prev, v), "value %d", i)
					assert.False(t, c.Equal(v, prev))
				}
				prev = v
			}
			assert.Equal(t, KindFloat64, c.Kind())
			_, err = c.Normalize("x")
			assert.Error(t, err)
		})
	}
}

func TestAutoComparator_IntegersStayExact(t *testing.T) {
	c, err := NewComparator(KindAuto)
	require.NoError(t, err)

	v, err := c.Normalize(int64(2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	big := int64(1<<53 + 1)
	assert.Equal(t, 1, c.Compare(big, float64(1<<53)), "2^53+1 must not round to 2^53")
	assert.Equal(t, -1, c.Compare(int64(-2), -1.5))
	assert.Equal(t, 1, c.Compare(int64(-1), -1.5))
	assert.True(t, c.Equal(int64(3), 3.0))
	assert.Equal(t, -1, c.Compare(int64(math.MaxInt64), 1e19))
	assert.Equal(t, 1, c.Compare(int64(math.MinInt64), -1e19))
	assert.Equal(t, 0, c.Compare(int64(1), math.NaN()))
	assert.False(t, c.Equal(int64(1), math.NaN()))
}

func TestAutoComparator_RejectsUnsupported(t *testing.T) {
	c, err := NewComparator(KindAuto)
	require.NoError(t, err)
	_, err = c.Normalize(struct{}{})
	assert.Error(t, err)
}

func TestParseColumnSpec(t *testing.T) {
	tests := []struct {
		in      string
		want    ColumnSpec
		wantErr bool
	}{
		{"host", ColumnSpec{Name: "host"}, false},
		{" ts:timestamp ", ColumnSpec{Name: "ts", Kind: KindTimestamp}, false},
		{"n:int", ColumnSpec{Name: "n", Kind: KindInt64}, false},
		{"'x'", ColumnSpec{Name: "'x'", Constant: true}, false},
		{"42", ColumnSpec{Name: "42", Constant: true}, false},
		{"", ColumnSpec{}, true},
		{":int", ColumnSpec{}, true},
		{"a:decimal", ColumnSpec{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColumnSpec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseColumnSpecs(t *testing.T) {
	got, err := ParseColumnSpecs([]string{"a", "b:string"})
	require.NoError(t, err)
	assert.Equal(t, []ColumnSpec{{Name: "a"}, {Name: "b", Kind: KindString}}, got)
	assert.Equal(t, "b:string", got[1].String())
	assert.Equal(t, "a", got[0].String())

	_, err = ParseColumnSpecs([]string{"a", ""})
	assert.Error(t, err)
}

func TestDirectionString(t *testing.T) {
	assert.Equal(t, "ascending", DirectionAscending.String())
	assert.Equal(t, "descending", DirectionDescending.String())
	assert.Equal(t, "unknown", DirectionUnknown.String())
	assert.Equal(t, DirectionDescending, DirectionAscending.Opposite())
}
