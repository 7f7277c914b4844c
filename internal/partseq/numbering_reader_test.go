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
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

func rowsOf(pairs ...[2]any) []pipeline.Row {
	rows := make([]pipeline.Row, len(pairs))
	for i, p := range pairs {
		rows[i] = pipeline.Row{
			wkk.NewRowKey("host"): p[0],
			wkk.NewRowKey("seq"):  p[1],
		}
	}
	return rows
}

func collectNumbers(t *testing.T, r pipeline.Reader, column wkk.RowKey) []int64 {
	t.Helper()
	var out []int64
	err := pipeline.Drain(context.Background(), r, func(row pipeline.Row) error {
		n, ok := row[column].(int64)
		require.True(t, ok, "row number should be int64")
		out = append(out, n)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestNumberingReader_NumbersAcrossBatches(t *testing.T) {
	src := pipeline.NewSliceSource(rowsOf(
		[2]any{"a", 1}, [2]any{"a", 2}, [2]any{"a", 3},
		[2]any{"b", 1}, [2]any{"b", 2}, [2]any{"c", 1},
	), 2)
	r, err := NewNumberingReader(src, []ColumnSpec{{Name: "host"}}, "")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []int64{1, 2, 3, 1, 2, 1}, collectNumbers(t, r, wkk.RowKeyRowNumber))

	stats := r.Stats()
	assert.Equal(t, int64(6), stats.Rows)
	assert.Equal(t, int64(3), stats.Partitions)
	assert.Equal(t, []Direction{DirectionAscending}, stats.Directions)
}

func TestNumberingReader_CustomOutputColumn(t *testing.T) {
	src := pipeline.NewSliceSource(rowsOf([2]any{"a", 1}, [2]any{"a", 1}), 10)
	r, err := NewNumberingReader(src, []ColumnSpec{{Name: "host"}, {Name: "seq", Kind: KindInt64}}, "rn")
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, collectNumbers(t, r, wkk.NewRowKey("rn")))
}

func TestNumberingReader_MissingColumnIsNull(t *testing.T) {
	rows := []pipeline.Row{
		{wkk.NewRowKey("other"): 1},
		{wkk.NewRowKey("other"): 2},
		{wkk.NewRowKey("host"): "a"},
	}
	r, err := NewNumberingReader(pipeline.NewSliceSource(rows, 10), []ColumnSpec{{Name: "host"}}, "")
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 1}, collectNumbers(t, r, wkk.RowKeyRowNumber))
}

func TestNumberingReader_ConsistencyErrorIsTerminal(t *testing.T) {
	src := pipeline.NewSliceSource(rowsOf(
		[2]any{"a", 1}, [2]any{"b", 1},
		[2]any{"a", 1}, [2]any{"c", 1},
	), 2)
	r, err := NewNumberingReader(src, []ColumnSpec{{Name: "host"}}, "")
	require.NoError(t, err)

	ctx := context.Background()
	batch, err := r.Next(ctx)
	require.NoError(t, err)
	pipeline.ReturnBatch(batch)

	_, err = r.Next(ctx)
	var pce *PartitionConsistencyError
	require.ErrorAs(t, err, &pce)
	assert.Equal(t, "host", pce.Name)
	assert.Equal(t, int64(3), pce.Row)

	_, again := r.Next(ctx)
	assert.Equal(t, err, again)
}

func TestNumberingReader_KeyValueError(t *testing.T) {
	src := pipeline.NewSliceSource(rowsOf([2]any{"a", 1}, [2]any{"a", "x"}), 10)
	r, err := NewNumberingReader(src, []ColumnSpec{{Name: "host"}, {Name: "seq", Kind: KindInt64}}, "")
	require.NoError(t, err)

	_, err = r.Next(context.Background())
	var kve *KeyValueError
	require.ErrorAs(t, err, &kve)
	assert.Equal(t, "seq", kve.Name)
	assert.Contains(t, err.Error(), "row 2")
}

func TestNumberingReader_Validation(t *testing.T) {
	_, err := NewNumberingReader(nil, []ColumnSpec{{Name: "a"}}, "")
	assert.Error(t, err)

	src := pipeline.NewSliceSource(nil, 10)
	_, err = NewNumberingReader(src, nil, "")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = NewNumberingReader(src, []ColumnSpec{{Name: "a"}}, "a")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNumberingReader_EOFAndClose(t *testing.T) {
	r, err := NewNumberingReader(pipeline.NewSliceSource(nil, 10), []ColumnSpec{{Name: "a"}}, "")
	require.NoError(t, err)

	_, err = r.Next(context.Background())
	assert.True(t, errors.Is(err, io.EOF))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	_, err = r.Next(context.Background())
	assert.Error(t, err)
}
