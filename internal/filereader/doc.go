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

// Package filereader provides streaming readers that turn files and query
// results into pipeline batches.
//
// Every reader implements pipeline.Reader: Next returns batches of rows
// until io.EOF, and Close releases the underlying file or connection.
// Readers never reorder rows. Input that must be sorted before numbering
// is sorted by DuckDB (DuckDBQueryReader) or by whatever produced the file.
//
// # Format Readers
//
//   - CSVReader: header row plus records, numeric values parsed to int64/float64
//   - JSONLinesReader: one JSON object per line
//   - ParquetRawReader: any Parquet file, via parquet-go
//   - DuckDBQueryReader: the result set of a SQL query run in-process
//
// ReaderForFile picks a reader from a file name:
//
//	reader, err := filereader.ReaderForFile("events.csv.gz", filereader.ReaderOptions{})
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//
//	for {
//	    batch, err := reader.Next(ctx)
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    // process batch
//	    pipeline.ReturnBatch(batch)
//	}
package filereader
