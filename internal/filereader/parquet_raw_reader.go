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
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// ParquetRawReader reads rows from a generic Parquet stream.
// Column names are taken verbatim from the file's top-level fields.
type ParquetRawReader struct {
	pf        *parquet.File
	pfr       *parquet.GenericReader[map[string]any]
	closer    io.Closer
	schema    *ReaderSchema
	closed    bool
	exhausted bool
	rowCount  int64
	batchSize int
	readBuf   []map[string]any // reusable buffer for reading parquet rows
}

var (
	_ Reader       = (*ParquetRawReader)(nil)
	_ SchemaReader = (*ParquetRawReader)(nil)
)

// NewParquetRawReader creates a new ParquetRawReader for the given io.ReaderAt.
func NewParquetRawReader(reader io.ReaderAt, size int64, batchSize int) (*ParquetRawReader, error) {
	pf, err := parquet.OpenFile(reader, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	if batchSize <= 0 {
		batchSize = pipeline.DefaultBatchSize
	}

	readBuf := make([]map[string]any, batchSize)
	for i := range readBuf {
		readBuf[i] = make(map[string]any)
	}

	return &ParquetRawReader{
		pf:        pf,
		pfr:       parquet.NewGenericReader[map[string]any](pf, pf.Schema()),
		schema:    parquetReaderSchema(pf.Schema()),
		batchSize: batchSize,
		readBuf:   readBuf,
	}, nil
}

func parquetReaderSchema(s *parquet.Schema) *ReaderSchema {
	schema := NewReaderSchema()
	for _, field := range s.Fields() {
		schema.AddColumn(wkk.NewRowKey(field.Name()), parquetDataType(field), true)
	}
	return schema
}

func parquetDataType(field parquet.Field) DataType {
	if !field.Leaf() || field.Repeated() {
		return DataTypeAny
	}
	t := field.Type()
	switch t.Kind() {
	case parquet.Boolean:
		return DataTypeBool
	case parquet.Int32, parquet.Int64:
		return DataTypeInt64
	case parquet.Float, parquet.Double:
		return DataTypeFloat64
	case parquet.ByteArray, parquet.FixedLenByteArray:
		if lt := t.LogicalType(); lt != nil && lt.UTF8 != nil {
			return DataTypeString
		}
		return DataTypeBytes
	default:
		return DataTypeAny
	}
}

// Next returns the next batch of rows from the parquet file.
func (r *ParquetRawReader) Next(ctx context.Context) (*Batch, error) {
	if r.closed || r.pfr == nil {
		return nil, ErrClosed
	}
	if r.exhausted {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range r.readBuf {
		clear(r.readBuf[i])
	}

	n, err := r.pfr.Read(r.readBuf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("parquet reader error: %w", err)
	}
	if err == io.EOF {
		r.exhausted = true
	}
	if n == 0 {
		r.exhausted = true
		return nil, io.EOF
	}

	rowsInCounter.Add(ctx, int64(n), otelmetric.WithAttributes(
		attribute.String("reader", "ParquetRawReader"),
	))

	batch := pipeline.GetBatch()
	for i := range n {
		batchRow := batch.AddRow()
		for k, v := range r.readBuf[i] {
			batchRow[wkk.NewRowKeyFromBytes([]byte(k))] = v
		}
	}

	r.rowCount += int64(n)
	rowsOutCounter.Add(ctx, int64(n), otelmetric.WithAttributes(
		attribute.String("reader", "ParquetRawReader"),
	))

	return batch, nil
}

// GetSchema returns the schema from the file metadata.
func (r *ParquetRawReader) GetSchema() *ReaderSchema {
	return r.schema
}

// Close closes the reader and releases resources.
func (r *ParquetRawReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.pfr != nil {
		if cerr := r.pfr.Close(); cerr != nil {
			err = fmt.Errorf("failed to close parquet reader: %w", cerr)
		}
		r.pfr = nil
	}
	r.pf = nil
	if r.closer != nil {
		if cerr := r.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.closer = nil
	}
	return err
}

// TotalRowsReturned returns the total number of rows that have been successfully returned via Next().
func (r *ParquetRawReader) TotalRowsReturned() int64 {
	return r.rowCount
}
