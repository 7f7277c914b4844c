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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// CSVReader reads rows from a CSV stream using pipeline semantics.
// Empty fields become null; numeric fields become int64 or float64.
type CSVReader struct {
	reader    *csv.Reader
	headers   []string
	rowKeys   []wkk.RowKey
	closed    bool
	totalRows int64
	closer    io.Closer
	batchSize int
	rowIndex  int
	schema    *ReaderSchema
}

var (
	_ Reader       = (*CSVReader)(nil)
	_ SchemaReader = (*CSVReader)(nil)
)

func newCSV(r io.Reader) *csv.Reader {
	c := csv.NewReader(r)
	c.LazyQuotes = true
	c.TrimLeadingSpace = true
	c.FieldsPerRecord = -1 // Allow variable number of fields
	c.ReuseRecord = true
	return c
}

// NewCSVReader creates a new CSVReader for the given io.ReadCloser.
// The reader takes ownership of the closer and will close it when Close is called.
// If the reader is seekable (implements io.Seeker), the file will be scanned once
// to infer column types before being reset for actual reading.
func NewCSVReader(reader io.ReadCloser, batchSize int) (*CSVReader, error) {
	csvReader := newCSV(reader)

	headers, err := csvReader.Read()
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	headers = append([]string(nil), headers...)

	if len(headers) == 0 {
		_ = reader.Close()
		return nil, fmt.Errorf("CSV file has no headers")
	}

	if batchSize <= 0 {
		batchSize = pipeline.DefaultBatchSize
	}

	rowKeys := make([]wkk.RowKey, len(headers))
	for i, header := range headers {
		rowKeys[i] = wkk.NewRowKey(strings.TrimSpace(header))
	}

	var schema *ReaderSchema
	if seeker, ok := reader.(io.Seeker); ok {
		schema = inferCSVSchema(csvReader, rowKeys)

		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			_ = reader.Close()
			return nil, fmt.Errorf("failed to reset reader after schema inference: %w", err)
		}

		csvReader = newCSV(reader)
		if _, err := csvReader.Read(); err != nil {
			_ = reader.Close()
			return nil, fmt.Errorf("failed to re-read headers after reset: %w", err)
		}
	}

	return &CSVReader{
		reader:    csvReader,
		headers:   headers,
		rowKeys:   rowKeys,
		closer:    reader,
		batchSize: batchSize,
		schema:    schema,
	}, nil
}

func (r *CSVReader) Next(ctx context.Context) (*Batch, error) {
	if r.closed {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := pipeline.GetBatch()

	for batch.Len() < r.batchSize {
		record, err := r.reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			pipeline.ReturnBatch(batch)
			return nil, fmt.Errorf("CSV read error at line %d: %w", r.rowIndex+2, err)
		}

		r.rowIndex++

		if len(record) != len(r.headers) {
			rowsDroppedCounter.Add(ctx, 1, otelmetric.WithAttributes(
				attribute.String("reader", "CSVReader"),
				attribute.String("reason", "column_count_mismatch"),
			))
			continue
		}

		rowsInCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("reader", "CSVReader"),
		))

		batchRow := batch.AddRow()
		for i, value := range record {
			batchRow[r.rowKeys[i]] = parseCSVValue(value)
		}
	}

	if batch.Len() == 0 {
		r.closed = true
		pipeline.ReturnBatch(batch)
		return nil, io.EOF
	}

	r.totalRows += int64(batch.Len())
	rowsOutCounter.Add(ctx, int64(batch.Len()), otelmetric.WithAttributes(
		attribute.String("reader", "CSVReader"),
	))
	return batch, nil
}

// parseCSVValue parses a field as a number if possible.
func parseCSVValue(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return strings.Clone(value)
}

// Columns returns the header names in file order.
func (r *CSVReader) Columns() []string {
	return append([]string(nil), r.headers...)
}

// Close closes the reader and the underlying io.ReadCloser.
func (r *CSVReader) Close() error {
	if r.closed && r.closer == nil {
		return nil
	}
	r.closed = true

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	r.reader = nil
	return err
}

// TotalRowsReturned returns the total number of rows that have been successfully returned via Next().
func (r *CSVReader) TotalRowsReturned() int64 {
	return r.totalRows
}

// GetSchema returns the schema inferred from scanning the file, or nil
// when the input could not be scanned ahead (compressed input).
func (r *CSVReader) GetSchema() *ReaderSchema {
	return r.schema
}

// inferCSVSchema scans the remaining records to discover column types.
// Records with the wrong number of fields are skipped, as they are when reading.
func inferCSVSchema(csvReader *csv.Reader, keys []wkk.RowKey) *ReaderSchema {
	builder := NewSchemaBuilder()
	for _, key := range keys {
		builder.schema.AddColumn(key, DataTypeUnknown, false)
	}

	for {
		record, err := csvReader.Read()
		if err != nil {
			if _, ok := err.(*csv.ParseError); ok {
				continue
			}
			break
		}
		if len(record) != len(keys) {
			continue
		}
		for i, value := range record {
			builder.AddStringValue(keys[i], strings.TrimSpace(value))
		}
	}

	return builder.Build()
}
