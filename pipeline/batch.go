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
	"maps"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// DefaultBatchSize is the number of rows a pooled batch is pre-sized for.
const DefaultBatchSize = 1000

var (
	meter = otel.Meter("github.com/cardinalhq/partseq/pipeline")

	bufferpoolGetsCounter metric.Int64Counter
	bufferpoolPutsCounter metric.Int64Counter
)

func init() {
	var err error

	bufferpoolGetsCounter, err = meter.Int64Counter(
		"partseq.pipeline.bufferpool.gets",
		metric.WithDescription("Total number of gets from the buffer pool"),
	)
	if err != nil {
		panic(err)
	}

	bufferpoolPutsCounter, err = meter.Int64Counter(
		"partseq.pipeline.bufferpool.puts",
		metric.WithDescription("Total number of puts back to the buffer pool"),
	)
	if err != nil {
		panic(err)
	}
}

// Batch is owned by the Reader that returns it.
// Consumers must not hold references after the next Next() call.
//
// Row maps inside a batch are reused. Never retain a Row returned by Get;
// use CopyRow if the data has to outlive the batch.
type Batch struct {
	rows     []Row
	validLen int
}

type batchPool struct {
	pool  sync.Pool
	sz    int
	alloc atomic.Uint64
	gets  atomic.Uint64
	puts  atomic.Uint64
}

func newBatchPool(batchSize int) *batchPool {
	p := &batchPool{sz: batchSize}
	p.pool = sync.Pool{
		New: func() any {
			p.alloc.Add(1)
			rows := make([]Row, batchSize)
			for i := range rows {
				rows[i] = make(Row)
			}
			return &Batch{rows: rows}
		},
	}
	return p
}

// Get returns a clean batch from the pool.
func (p *batchPool) Get() *Batch {
	p.gets.Add(1)
	bufferpoolGetsCounter.Add(context.Background(), 1)
	b := p.pool.Get().(*Batch)
	for i := range b.rows {
		clear(b.rows[i])
	}
	b.validLen = 0
	return b
}

// Put returns a batch to the pool for reuse.
func (p *batchPool) Put(b *Batch) {
	p.puts.Add(1)
	bufferpoolPutsCounter.Add(context.Background(), 1)
	// Drop oversized batches to avoid unbounded growth
	if cap(b.rows) > p.sz*4 {
		return
	}
	b.validLen = 0
	p.pool.Put(b)
}

// BatchPoolStats contains counters for batch pool usage.
type BatchPoolStats struct {
	Allocations uint64
	Gets        uint64
	Puts        uint64
}

// LeakedBatches returns the number of batches that were gotten but never returned.
func (s BatchPoolStats) LeakedBatches() uint64 {
	return s.Gets - s.Puts
}

func (p *batchPool) stats() BatchPoolStats {
	return BatchPoolStats{
		Allocations: p.alloc.Load(),
		Gets:        p.gets.Load(),
		Puts:        p.puts.Load(),
	}
}

var globalBatchPool = newBatchPool(DefaultBatchSize)

// GetBatch returns a reusable batch from the global pool.
func GetBatch() *Batch {
	return globalBatchPool.Get()
}

// ReturnBatch returns a batch to the global pool.
// The batch must not be used after calling this function.
func ReturnBatch(batch *Batch) {
	if batch != nil {
		globalBatchPool.Put(batch)
	}
}

// GlobalBatchPoolStats returns usage counters for the global batch pool.
func GlobalBatchPoolStats() BatchPoolStats {
	return globalBatchPool.stats()
}

// CopyBatch creates a copy of a batch in a fresh pooled batch.
func CopyBatch(in *Batch) *Batch {
	out := globalBatchPool.Get()
	for i := 0; i < in.Len(); i++ {
		maps.Copy(out.AddRow(), in.Get(i))
	}
	return out
}

// Len returns the number of valid rows in the batch.
func (b *Batch) Len() int {
	return b.validLen
}

// Get returns the row at index, or nil when index is out of range.
func (b *Batch) Get(index int) Row {
	if index < 0 || index >= b.validLen {
		return nil
	}
	return b.rows[index]
}

// AddRow appends an empty row to the batch and returns it for filling.
func (b *Batch) AddRow() Row {
	if b.validLen < len(b.rows) {
		row := b.rows[b.validLen]
		clear(row)
		b.validLen++
		return row
	}

	row := make(Row)
	b.rows = append(b.rows, row)
	b.validLen++
	return row
}

// DeleteRow removes the row at index by swapping the last valid row into
// its place. Row order is not preserved.
func (b *Batch) DeleteRow(index int) {
	if index < 0 || index >= b.validLen {
		return
	}

	clear(b.rows[index])
	if index < b.validLen-1 {
		b.rows[index], b.rows[b.validLen-1] = b.rows[b.validLen-1], b.rows[index]
	}
	b.validLen--
}
