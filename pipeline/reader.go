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

package pipeline

import (
	"context"
	"io"
	"maps"
)

// Reader is a pull-based iterator over Batches.
// Next returns (nil, io.EOF) when the stream ends.
type Reader interface {
	Next(ctx context.Context) (*Batch, error)
	Close() error
}

// SliceSource is a Reader over an in-memory slice of rows, mostly for tests.
type SliceSource struct {
	data      []Row
	pos       int
	batchSize int
	closed    bool
}

var _ Reader = (*SliceSource)(nil)

// NewSliceSource returns a reader that yields data in batches of batchSize.
func NewSliceSource(data []Row, batchSize int) *SliceSource {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SliceSource{data: data, batchSize: batchSize}
}

func (s *SliceSource) Next(ctx context.Context) (*Batch, error) {
	if s.closed || s.pos >= len(s.data) {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := GetBatch()
	for b.Len() < s.batchSize && s.pos < len(s.data) {
		maps.Copy(b.AddRow(), s.data[s.pos])
		s.pos++
	}
	return b, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// Drain reads r to the end, calling fn for every row. The row passed to fn
// is only valid for the duration of the call.
func Drain(ctx context.Context, r Reader, fn func(Row) error) error {
	for {
		batch, err := r.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		for i := 0; i < batch.Len(); i++ {
			if err := fn(batch.Get(i)); err != nil {
				ReturnBatch(batch)
				return err
			}
		}
		ReturnBatch(batch)
	}
}
