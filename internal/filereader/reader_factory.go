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
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/cardinalhq/partseq/internal/helpers"
)

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReaderOptions provides options for creating readers.
type ReaderOptions struct {
	// BatchSize is the number of rows per batch (default: pipeline.DefaultBatchSize).
	BatchSize int
	// Format overrides detection from the file extension: csv, json, jsonl or parquet.
	Format string
}

// ReaderForFile creates a Reader for the given file based on its extension.
// Supported file formats:
//   - .csv, .csv.gz: CSVReader
//   - .json, .jsonl, .ndjson and their .gz forms: JSONLinesReader
//   - .parquet: ParquetRawReader
func ReaderForFile(filename string, opts ReaderOptions) (Reader, error) {
	format := opts.Format
	if format == "" {
		format = helpers.FileExtension(filename)
	}
	_, compressed := helpers.SplitCompression(filename)

	switch format {
	case "csv":
		rc, err := openMaybeGzip(filename, compressed)
		if err != nil {
			return nil, err
		}
		return NewCSVReader(rc, opts.BatchSize)
	case "json", "jsonl", "ndjson":
		rc, err := openMaybeGzip(filename, compressed)
		if err != nil {
			return nil, err
		}
		reader, err := NewJSONLinesReader(rc, opts.BatchSize)
		if err != nil {
			_ = rc.Close()
			return nil, err
		}
		return reader, nil
	case "parquet":
		if compressed {
			return nil, fmt.Errorf("%w: gzip-compressed parquet %s", ErrUnsupportedFormat, filename)
		}
		return createParquetReader(filename, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

// openMaybeGzip opens filename, unwrapping gzip when compressed is set.
// An uncompressed file is returned as *os.File so readers can seek it.
func openMaybeGzip(filename string, compressed bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	if !compressed {
		return file, nil
	}

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return &multiReadCloser{
		Reader:  gzipReader,
		closers: []io.Closer{gzipReader, file},
	}, nil
}

// createParquetReader creates a ParquetRawReader that owns the opened file.
func createParquetReader(filename string, opts ReaderOptions) (Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat parquet file: %w", err)
	}

	reader, err := NewParquetRawReader(file, stat.Size(), opts.BatchSize)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	reader.closer = file

	return reader, nil
}
