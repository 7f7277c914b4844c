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
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/partseq/internal/duckdbx"
	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// DuckDBQueryReader streams the result set of a SQL query run in an
// in-process DuckDB. The query's ORDER BY is what makes the stream
// suitable for partition numbering; DuckDB spills to disk as needed.
type DuckDBQueryReader struct {
	conn      *sql.Conn
	rows      *sql.Rows
	batchSize int

	columns  []string
	rowKeys  []wkk.RowKey
	values   []any
	scanArgs []any

	rowCount  int64
	exhausted bool
	closed    bool
}

var _ Reader = (*DuckDBQueryReader)(nil)

// NewDuckDBQueryReader runs query on db. The reader owns the connection it
// opens but not db.
func NewDuckDBQueryReader(ctx context.Context, db *duckdbx.DB, query string, batchSize int, args ...any) (*DuckDBQueryReader, error) {
	if db == nil {
		return nil, errors.New("duckdb database cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = pipeline.DefaultBatchSize
	}

	rows, conn, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("duckdb query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("duckdb columns: %w", err)
	}

	rowKeys := make([]wkk.RowKey, len(cols))
	for i, c := range cols {
		rowKeys[i] = wkk.NewRowKeyFromBytes([]byte(c))
	}

	values := make([]any, len(cols))
	scanArgs := make([]any, len(cols))
	for i := range scanArgs {
		scanArgs[i] = &values[i]
	}

	return &DuckDBQueryReader{
		conn:      conn,
		rows:      rows,
		batchSize: batchSize,
		columns:   cols,
		rowKeys:   rowKeys,
		values:    values,
		scanArgs:  scanArgs,
	}, nil
}

// Next returns the next batch of result rows.
func (r *DuckDBQueryReader) Next(ctx context.Context) (*Batch, error) {
	if r.closed || r.rows == nil {
		return nil, ErrClosed
	}
	if r.exhausted {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := pipeline.GetBatch()
	for batch.Len() < r.batchSize {
		if !r.rows.Next() {
			if err := r.rows.Err(); err != nil {
				pipeline.ReturnBatch(batch)
				return nil, fmt.Errorf("duckdb rows error: %w", err)
			}
			r.exhausted = true
			break
		}

		if err := r.rows.Scan(r.scanArgs...); err != nil {
			pipeline.ReturnBatch(batch)
			return nil, fmt.Errorf("scan row: %w", err)
		}

		batchRow := batch.AddRow()
		for i, key := range r.rowKeys {
			batchRow[key] = normalizeDuckDBValue(r.values[i])
		}
	}

	if batch.Len() == 0 {
		pipeline.ReturnBatch(batch)
		return nil, io.EOF
	}

	n := int64(batch.Len())
	r.rowCount += n
	rowsInCounter.Add(ctx, n, otelmetric.WithAttributes(
		attribute.String("reader", "DuckDBQueryReader"),
	))
	rowsOutCounter.Add(ctx, n, otelmetric.WithAttributes(
		attribute.String("reader", "DuckDBQueryReader"),
	))
	return batch, nil
}

// normalizeDuckDBValue widens driver values to the types the rest of the
// pipeline handles.
func normalizeDuckDBValue(v any) any {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		// DuckDB reuses the backing array for BLOB values, so copy before storing
		return append([]byte(nil), x...)
	case time.Time:
		return x.UTC()
	default:
		return v
	}
}

// Columns returns the result column names in query order.
func (r *DuckDBQueryReader) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Close closes the result set and its connection.
func (r *DuckDBQueryReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.rows != nil {
		err = r.rows.Close()
		r.rows = nil
	}
	if r.conn != nil {
		if cerr := r.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.conn = nil
	}
	return err
}

// TotalRowsReturned returns the total number of rows successfully returned.
func (r *DuckDBQueryReader) TotalRowsReturned() int64 {
	return r.rowCount
}
