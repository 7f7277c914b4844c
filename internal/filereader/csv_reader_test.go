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

package filereader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// readAll drains a reader into plain string-keyed maps.
func readAll(t *testing.T, r Reader) []map[string]any {
	t.Helper()
	var rows []map[string]any
	err := pipeline.Drain(context.Background(), r, func(row pipeline.Row) error {
		rows = append(rows, pipeline.ToStringMap(row))
		return nil
	})
	require.NoError(t, err)
	return rows
}

func TestNewCSVReader(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expectErr bool
		errMsg    string
	}{
		{
			name:  "Valid CSV with headers",
			input: "name,age,city\nAlice,30,NYC\nBob,25,LA",
		},
		{
			name:      "Empty CSV",
			input:     "",
			expectErr: true,
			errMsg:    "failed to read CSV headers",
		},
		{
			name:  "Only headers",
			input: "name,age,city",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := io.NopCloser(strings.NewReader(tt.input))
			csvReader, err := NewCSVReader(reader, 10)

			if tt.expectErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, csvReader)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, csvReader)
			assert.Equal(t, []string{"name", "age", "city"}, csvReader.Columns())
			_ = csvReader.Close()
		})
	}
}

func TestCSVReader_Next(t *testing.T) {
	input := "host,seq,ratio,note\na,1,0.5,x\na,2,,y\nb,1,1.5,\nbroken,row\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(input)), 2)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	rows := readAll(t, r)
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"host": "a", "seq": int64(1), "ratio": 0.5, "note": "x"}, rows[0])
	assert.Equal(t, map[string]any{"host": "a", "seq": int64(2), "ratio": nil, "note": "y"}, rows[1])
	assert.Equal(t, map[string]any{"host": "b", "seq": int64(1), "ratio": 1.5, "note": nil}, rows[2])
	assert.Equal(t, int64(3), r.TotalRowsReturned())
}

func TestCSVReader_BatchesRespectSize(t *testing.T) {
	input := "k\n1\n2\n3\n4\n5\n"
	r, err := NewCSVReader(io.NopCloser(strings.NewReader(input)), 2)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	var sizes []int
	ctx := context.Background()
	for {
		batch, err := r.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, batch.Len())
		pipeline.ReturnBatch(batch)
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
}

func TestCSVReader_SchemaFromSeekableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.csv")
	require.NoError(t, os.WriteFile(path, []byte("host,seq,ratio,empty\na,1,2,\nb,2,2.5,\n"), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	r, err := NewCSVReader(f, 10)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	schema := r.GetSchema()
	assert.Equal(t, []string{"host", "seq", "ratio", "empty"}, schema.ColumnNames())
	assert.Equal(t, DataTypeString, schema.GetColumnType("host"))
	assert.Equal(t, DataTypeInt64, schema.GetColumnType("seq"))
	assert.Equal(t, DataTypeFloat64, schema.GetColumnType("ratio"))
	assert.Equal(t, DataTypeUnknown, schema.GetColumnType("empty"))

	// Reading still starts at the first record after the scan.
	rows := readAll(t, r)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["host"])
}

func TestCSVReader_CancelledContext(t *testing.T) {
	r, err := NewCSVReader(io.NopCloser(strings.NewReader("k\n1\n")), 10)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCSVValue(t *testing.T) {
	assert.Nil(t, parseCSVValue("  "))
	assert.Equal(t, int64(-4), parseCSVValue(" -4 "))
	assert.Equal(t, 1e3, parseCSVValue("1e3"))
	assert.Equal(t, "007x", parseCSVValue("007x"))
}

type trackingCloser struct {
	io.Reader
	closed bool
}

func (c *trackingCloser) Close() error {
	c.closed = true
	return nil
}

func TestCSVReader_CloseAfterEOFClosesSource(t *testing.T) {
	src := &trackingCloser{Reader: strings.NewReader("k\n1\n")}
	r, err := NewCSVReader(src, 10)
	require.NoError(t, err)

	_ = readAll(t, r)
	require.NoError(t, r.Close())
	assert.True(t, src.closed)
	assert.NoError(t, r.Close())
}

func TestCSVReader_RowKeysAreInterned(t *testing.T) {
	r, err := NewCSVReader(io.NopCloser(strings.NewReader("row_number\n1\n")), 10)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	batch, err := r.Next(context.Background())
	require.NoError(t, err)
	defer pipeline.ReturnBatch(batch)
	_, ok := batch.Get(0)[wkk.RowKeyRowNumber]
	assert.True(t, ok)
}

func TestCSVReader_NoSchemaWhenNotSeekable(t *testing.T) {
	r, err := NewCSVReader(io.NopCloser(strings.NewReader("a\n1\n")), 10)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	assert.Nil(t, r.GetSchema())
}
