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

// Package rowwriter writes numbered rows out as CSV, JSON lines or Parquet.
package rowwriter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cardinalhq/partseq/internal/helpers"
	"github.com/cardinalhq/partseq/pipeline"
)

// Format is an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// ErrUnknownFormat is returned for format names and extensions that have no writer.
var ErrUnknownFormat = errors.New("unknown output format")

// ParseFormat accepts csv, jsonl (or json, ndjson) and parquet.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "jsonl", "json", "ndjson":
		return FormatJSONL, nil
	case "parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath derives the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	return ParseFormat(helpers.FileExtension(path))
}

// Extension is the file extension, with dot, for files of this format.
func (f Format) Extension() string {
	return "." + string(f)
}

// Writer consumes batches. Close flushes everything written so far; the
// writer must not be used afterwards.
type Writer interface {
	WriteBatch(ctx context.Context, batch *pipeline.Batch) error
	Close(ctx context.Context) error
	// RowsWritten is the number of rows accepted so far.
	RowsWritten() int64
}

// Config controls the output.
type Config struct {
	Format Format
	// Columns fixes the CSV column order. When empty the header is the
	// first row's columns, sorted. Ignored by the other formats.
	Columns []string
	// TmpDir holds Parquet buffer files. Empty means os.TempDir().
	TmpDir string
}

// New returns a Writer that writes to w. Closing the Writer does not close w.
func New(w io.Writer, cfg Config) (Writer, error) {
	switch cfg.Format {
	case FormatCSV:
		return newCSVWriter(w, cfg.Columns), nil
	case FormatJSONL:
		return newJSONLWriter(w), nil
	case FormatParquet:
		return newParquetWriter(w, cfg.TmpDir), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, cfg.Format)
}

// Create creates path and returns a Writer that owns the file.
func Create(path string, cfg Config) (Writer, error) {
	if cfg.Format == "" {
		format, err := FormatForPath(path)
		if err != nil {
			return nil, err
		}
		cfg.Format = format
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w, err := New(f, cfg)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, err
	}
	return &fileWriter{Writer: w, file: f}, nil
}

type fileWriter struct {
	Writer
	file *os.File
}

func (fw *fileWriter) Close(ctx context.Context) error {
	err := fw.Writer.Close(ctx)
	if cerr := fw.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
