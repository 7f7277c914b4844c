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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

type csvWriter struct {
	w       *csv.Writer
	columns []string
	keys    []wkk.RowKey
	known   map[wkk.RowKey]struct{}
	record  []string
	rows    int64
	closed  bool
}

func newCSVWriter(w io.Writer, columns []string) *csvWriter {
	return &csvWriter{
		w:       csv.NewWriter(w),
		columns: slices.Clone(columns),
	}
}

// start fixes the header, from the configured columns or the first row.
func (c *csvWriter) start(first pipeline.Row) error {
	if len(c.columns) == 0 {
		for k := range first {
			c.columns = append(c.columns, wkk.RowKeyValue(k))
		}
		slices.Sort(c.columns)
	}
	c.keys = make([]wkk.RowKey, len(c.columns))
	c.known = make(map[wkk.RowKey]struct{}, len(c.columns))
	for i, name := range c.columns {
		c.keys[i] = wkk.NewRowKey(name)
		c.known[c.keys[i]] = struct{}{}
	}
	c.record = make([]string, len(c.columns))
	return c.w.Write(c.columns)
}

func (c *csvWriter) WriteBatch(_ context.Context, batch *pipeline.Batch) error {
	if c.closed {
		return errWriterClosed
	}
	for i := 0; i < batch.Len(); i++ {
		row := batch.Get(i)
		if c.keys == nil {
			if err := c.start(row); err != nil {
				return fmt.Errorf("failed to write CSV header: %w", err)
			}
		}
		for k := range row {
			if _, ok := c.known[k]; !ok {
				return fmt.Errorf("row %d has column %q which is not in the CSV header", c.rows+1, wkk.RowKeyValue(k))
			}
		}
		for j, key := range c.keys {
			s, err := formatValue(row[key])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", c.rows+1, c.columns[j], err)
			}
			c.record[j] = s
		}
		if err := c.w.Write(c.record); err != nil {
			return err
		}
		c.rows++
	}
	return nil
}

// Close flushes buffered records. A stream with no rows still gets a
// header when the columns were configured.
func (c *csvWriter) Close(context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.keys == nil && len(c.columns) > 0 {
		if err := c.w.Write(c.columns); err != nil {
			return err
		}
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvWriter) RowsWritten() int64 { return c.rows }
