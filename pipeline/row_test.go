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

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/partseq/pipeline/wkk"
)

func TestToStringMap_RoundTrip(t *testing.T) {
	row := Row{
		wkk.NewRowKey("customer"): "acme",
		wkk.NewRowKey("seq"):      int64(3),
	}

	m := ToStringMap(row)
	assert.Equal(t, map[string]any{"customer": "acme", "seq": int64(3)}, m)
	assert.Equal(t, row, FromStringMap(m))
}

func TestCopyRow(t *testing.T) {
	original := Row{wkk.NewRowKey("id"): 1}
	copied := CopyRow(original)

	original[wkk.NewRowKey("id")] = 999
	original[wkk.NewRowKey("new_field")] = "added"

	assert.Equal(t, 1, copied[wkk.NewRowKey("id")])
	assert.Len(t, copied, 1)
}

func TestRowGetters(t *testing.T) {
	row := Row{
		wkk.NewRowKey("s"):   "text",
		wkk.NewRowKey("i"):   42,
		wkk.NewRowKey("i32"): int32(7),
		wkk.NewRowKey("f"):   1.5,
	}

	assert.Equal(t, "text", row.GetString(wkk.NewRowKey("s")))
	assert.Equal(t, "", row.GetString(wkk.NewRowKey("i")))

	v, ok := row.GetInt64(wkk.NewRowKey("i"))
	assert.True(t, ok)
	assert.Equal(t, int64(42), v)

	v, ok = row.GetInt64(wkk.NewRowKey("i32"))
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = row.GetInt64(wkk.NewRowKey("f"))
	assert.False(t, ok)
}

func TestRowJSON_SortedKeys(t *testing.T) {
	row := Row{
		wkk.NewRowKey("b"): int64(2),
		wkk.NewRowKey("a"): "x\"y",
		wkk.NewRowKey("c"): nil,
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x\"y","b":2,"c":null}`, string(data))
}

func TestRowJSON_UnmarshalKeepsNumbers(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"id": 12, "ratio": 0.5, "name": "n"}`), &row))

	assert.Equal(t, json.Number("12"), row[wkk.NewRowKey("id")])
	assert.Equal(t, json.Number("0.5"), row[wkk.NewRowKey("ratio")])
	assert.Equal(t, "n", row[wkk.NewRowKey("name")])
}

func TestRowJSON_InvalidJSON(t *testing.T) {
	var row Row
	assert.Error(t, json.Unmarshal([]byte(`{"id":`), &row))
}

func TestSliceSource(t *testing.T) {
	ctx := context.Background()
	data := make([]Row, 5)
	for i := range data {
		data[i] = Row{wkk.NewRowKey("i"): i}
	}

	src := NewSliceSource(data, 2)
	var got []int
	require.NoError(t, Drain(ctx, src, func(r Row) error {
		got = append(got, r[wkk.NewRowKey("i")].(int))
		return nil
	}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)

	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	require.NoError(t, src.Close())
}

func TestSliceSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSliceSource([]Row{{wkk.NewRowKey("i"): 1}}, 0)
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrain_StopsOnCallbackError(t *testing.T) {
	boom := errors.New("boom")
	src := NewSliceSource([]Row{{wkk.NewRowKey("i"): 1}, {wkk.NewRowKey("i"): 2}}, 10)

	calls := 0
	err := Drain(context.Background(), src, func(Row) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
