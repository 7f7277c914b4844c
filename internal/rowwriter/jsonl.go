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
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cardinalhq/partseq/pipeline"
)

var errWriterClosed = errors.New("writer is closed")

// jsonlWriter writes one JSON object per row, keys sorted.
type jsonlWriter struct {
	w      *bufio.Writer
	rows   int64
	closed bool
}

func newJSONLWriter(w io.Writer) *jsonlWriter {
	return &jsonlWriter{w: bufio.NewWriterSize(w, 64*1024)}
}

func (j *jsonlWriter) WriteBatch(_ context.Context, batch *pipeline.Batch) error {
	if j.closed {
		return errWriterClosed
	}
	for i := 0; i < batch.Len(); i++ {
		b, err := batch.Get(i).MarshalJSON()
		if err != nil {
			return fmt.Errorf("row %d: %w", j.rows+1, err)
		}
		if _, err := j.w.Write(b); err != nil {
			return err
		}
		if err := j.w.WriteByte('\n'); err != nil {
			return err
		}
		j.rows++
	}
	return nil
}

func (j *jsonlWriter) Close(context.Context) error {
	if j.closed {
		return nil
	}
	j.closed = true
	return j.w.Flush()
}

func (j *jsonlWriter) RowsWritten() int64 { return j.rows }
