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

package rowwriter

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/cardinalhq/partseq/internal/cbor"
	"github.com/cardinalhq/partseq/internal/filereader"
	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// parquetWriter buffers rows as CBOR in a temp file while it learns the
// column types, then streams the buffer into a Parquet file on Close.
// Columns that are null in every row are left out.
type parquetWriter struct {
	out    io.Writer
	tmpDir string

	codec      *cbor.Config
	bufferFile *os.File
	buffered   *bufio.Writer
	encoder    *cbor.RowEncoder
	schema     *filereader.SchemaBuilder

	rows   int64
	closed bool
}

func newParquetWriter(w io.Writer, tmpDir string) *parquetWriter {
	return &parquetWriter{
		out:    w,
		tmpDir: tmpDir,
		schema: filereader.NewSchemaBuilder(),
	}
}

func (p *parquetWriter) startBuffer() error {
	codec, err := cbor.NewConfig()
	if err != nil {
		return err
	}
	f, err := os.CreateTemp(p.tmpDir, "partseq-buffer-*.cbor")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	p.codec = codec
	p.bufferFile = f
	p.buffered = bufio.NewWriterSize(f, 256*1024)
	p.encoder = codec.NewRowEncoder(p.buffered)
	return nil
}

func (p *parquetWriter) WriteBatch(_ context.Context, batch *pipeline.Batch) error {
	if p.closed {
		return errWriterClosed
	}
	if p.bufferFile == nil {
		if err := p.startBuffer(); err != nil {
			return err
		}
	}
	for i := 0; i < batch.Len(); i++ {
		row := batch.Get(i)
		p.schema.AddRow(row)
		if err := p.encoder.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row: %w", err)
		}
		p.rows++
	}
	return nil
}

func (p *parquetWriter) RowsWritten() int64 { return p.rows }

// Close writes the Parquet file. A writer that never saw a row writes nothing.
func (p *parquetWriter) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.bufferFile == nil {
		return nil
	}
	defer p.cleanupBuffer()

	if err := p.buffered.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer file: %w", err)
	}
	if _, err := p.bufferFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind buffer file: %w", err)
	}

	columns, schema, err := buildParquetSchema(p.schema.Build())
	if err != nil {
		return err
	}

	writerConfig, err := parquet.NewWriterConfig(writerOptions(p.tmpDir, schema)...)
	if err != nil {
		return fmt.Errorf("failed to create writer config: %w", err)
	}
	writer := parquet.NewGenericWriter[map[string]any](p.out, writerConfig)

	decoder := p.codec.NewRowDecoder(bufio.NewReaderSize(p.bufferFile, 256*1024))
	out := make([]map[string]any, 1)
	out[0] = make(map[string]any, len(columns))
	for {
		if err := ctx.Err(); err != nil {
			_ = writer.Close()
			return err
		}
		row, err := decoder.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to decode row: %w", err)
		}

		clear(out[0])
		for _, col := range columns {
			v, err := conformValue(row[col.key], col.dataType)
			if err != nil {
				_ = writer.Close()
				return fmt.Errorf("column %q: %w", col.name, err)
			}
			if v != nil {
				out[0][col.name] = v
			}
		}
		if _, err := writer.Write(out); err != nil {
			_ = writer.Close()
			return fmt.Errorf("failed to write row to parquet: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func (p *parquetWriter) cleanupBuffer() {
	if p.bufferFile != nil {
		_ = p.bufferFile.Close()
		_ = os.Remove(p.bufferFile.Name())
		p.bufferFile = nil
	}
}

type parquetColumn struct {
	name     string
	key      wkk.RowKey
	dataType filereader.DataType
}

// buildParquetSchema maps the observed column types to optional Parquet
// leaves. Columns with no non-null value are dropped.
func buildParquetSchema(rs *filereader.ReaderSchema) ([]parquetColumn, *parquet.Schema, error) {
	var columns []parquetColumn
	nodes := make(parquet.Group)
	for _, col := range rs.Columns() {
		if !col.HasNonNull {
			continue
		}
		name := wkk.RowKeyValue(col.Name)
		node, err := parquetNode(col.DataType)
		if err != nil {
			return nil, nil, fmt.Errorf("column %q: %w", name, err)
		}
		nodes[name] = node
		columns = append(columns, parquetColumn{name: name, key: col.Name, dataType: col.DataType})
	}
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("no column has a non-null value")
	}
	slices.SortFunc(columns, func(a, b parquetColumn) int {
		return cmp.Compare(a.name, b.name)
	})
	return columns, parquet.NewSchema("partseq", nodes), nil
}

func parquetNode(dt filereader.DataType) (parquet.Node, error) {
	switch dt {
	case filereader.DataTypeString, filereader.DataTypeAny:
		return parquet.Optional(parquet.Encoded(parquet.String(), &parquet.RLEDictionary)), nil
	case filereader.DataTypeInt64:
		return parquet.Optional(parquet.Int(64)), nil
	case filereader.DataTypeFloat64:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType)), nil
	case filereader.DataTypeBool:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType)), nil
	case filereader.DataTypeBytes:
		return parquet.Optional(parquet.Leaf(parquet.ByteArrayType)), nil
	case filereader.DataTypeTimestamp:
		return parquet.Optional(parquet.Timestamp(parquet.Nanosecond)), nil
	}
	return nil, fmt.Errorf("unsupported column type %s", dt)
}

// conformValue converts v to the Go type the column's Parquet leaf expects.
// Mixed columns were promoted to float64 or string by the schema builder.
func conformValue(v any, dt filereader.DataType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch dt {
	case filereader.DataTypeString, filereader.DataTypeAny:
		return formatValue(v)
	case filereader.DataTypeFloat64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		}
	case filereader.DataTypeInt64:
		if x, ok := v.(int64); ok {
			return x, nil
		}
	case filereader.DataTypeBool:
		if x, ok := v.(bool); ok {
			return x, nil
		}
	case filereader.DataTypeBytes:
		if x, ok := v.([]byte); ok {
			return x, nil
		}
	case filereader.DataTypeTimestamp:
		if x, ok := v.(time.Time); ok {
			return x.UnixNano(), nil
		}
	}
	return nil, fmt.Errorf("cannot write %T value as %s", v, dt)
}

// writerOptions are the Parquet writer settings: zstd compression and
// column page buffers spilled to tmpDir.
func writerOptions(tmpDir string, schema *parquet.Schema) []parquet.WriterOption {
	return []parquet.WriterOption{
		schema,
		parquet.Compression(&parquet.Zstd),
		parquet.PageBufferSize(32 * 1024),
		parquet.MaxRowsPerRowGroup(80_000),
		parquet.ColumnPageBuffers(
			parquet.NewFileBufferPool(tmpDir, "buffers.*"),
		),
	}
}
