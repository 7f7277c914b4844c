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

package partseq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/cardinalhq/partseq/internal/logctx"
	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// NumberingReader wraps a reader whose rows arrive grouped by the key
// columns and adds each row's partition row number as an int64 column.
// Any error is terminal.
type NumberingReader struct {
	reader pipeline.Reader
	seq    *Sequencer
	keys   []wkk.RowKey
	output wkk.RowKey
	key    KeyTuple
	known  []Direction
	err    error
	closed bool
}

var _ pipeline.Reader = (*NumberingReader)(nil)

// NumberingStats summarizes a NumberingReader's progress.
type NumberingStats struct {
	Rows       int64
	Partitions int64
	Directions []Direction
}

// NewNumberingReader returns a reader that numbers rows with its own
// Sequencer over columns. outputColumn defaults to "row_number".
func NewNumberingReader(reader pipeline.Reader, columns []ColumnSpec, outputColumn string) (*NumberingReader, error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}
	seq, err := New(columns...)
	if err != nil {
		return nil, err
	}
	output := wkk.RowKeyRowNumber
	if outputColumn != "" {
		output = wkk.NewRowKey(outputColumn)
	}
	keys := make([]wkk.RowKey, len(columns))
	for i, c := range seq.Columns() {
		keys[i] = wkk.NewRowKey(c.Name)
		if keys[i] == output {
			return nil, &ConfigurationError{Column: i, Name: c.Name, Reason: "output column cannot also be a partition key"}
		}
	}
	return &NumberingReader{
		reader: reader,
		seq:    seq,
		keys:   keys,
		output: output,
		key:    make(KeyTuple, len(keys)),
		known:  make([]Direction, len(keys)),
	}, nil
}

// Next returns the next batch with the output column set on every row.
func (r *NumberingReader) Next(ctx context.Context) (*pipeline.Batch, error) {
	if r.closed {
		return nil, errors.New("reader is closed")
	}
	if r.err != nil {
		return nil, r.err
	}

	batch, err := r.reader.Next(ctx)
	if err != nil {
		return nil, err
	}

	partitionsBefore := r.seq.PartitionsStarted()
	for i := 0; i < batch.Len(); i++ {
		row := batch.Get(i)
		for k, key := range r.keys {
			r.key[k] = row[key]
		}
		n, err := r.seq.Process(r.key)
		clear(r.key)
		if err != nil {
			pipeline.ReturnBatch(batch)
			r.fail(ctx, err)
			return nil, r.err
		}
		row[r.output] = n
	}

	rowsNumberedCounter.Add(ctx, int64(batch.Len()))
	partitionsStartedCounter.Add(ctx, r.seq.PartitionsStarted()-partitionsBefore)
	r.logInferred(ctx)
	return batch, nil
}

func (r *NumberingReader) fail(ctx context.Context, err error) {
	var pce *PartitionConsistencyError
	if errors.As(err, &pce) {
		orderViolationsCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("column", pce.Name),
		))
		r.err = err
		return
	}
	r.err = fmt.Errorf("row %d: %w", r.seq.RowsProcessed()+1, err)
}

func (r *NumberingReader) logInferred(ctx context.Context) {
	dirs := r.seq.directions
	if slices.Equal(dirs, r.known) {
		return
	}
	logger := logctx.FromContext(ctx)
	for i, d := range dirs {
		if d != r.known[i] {
			logger.Debug("Inferred key column sort direction",
				slog.String("column", r.seq.columns[i].Name),
				slog.Int("index", i),
				slog.String("direction", d.String()),
				slog.Int64("row", r.seq.RowsProcessed()))
			r.known[i] = d
		}
	}
}

// Stats reports rows numbered, partitions started and inferred directions.
func (r *NumberingReader) Stats() NumberingStats {
	return NumberingStats{
		Rows:       r.seq.RowsProcessed(),
		Partitions: r.seq.PartitionsStarted(),
		Directions: r.seq.Directions(),
	}
}

// Sequencer exposes the underlying sequencer for inspection.
func (r *NumberingReader) Sequencer() *Sequencer {
	return r.seq
}

// Close closes the wrapped reader.
func (r *NumberingReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.reader.Close()
}
