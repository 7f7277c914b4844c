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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/partseq/pipeline/wkk"
)

func TestGlobalBatchPool(t *testing.T) {
	batch1 := GetBatch()
	require.NotNil(t, batch1)
	assert.Equal(t, 0, batch1.Len())

	row := batch1.AddRow()
	row[wkk.NewRowKey("test")] = "data"
	assert.Equal(t, 1, batch1.Len())

	ReturnBatch(batch1)

	batch2 := GetBatch()
	require.NotNil(t, batch2)
	assert.Equal(t, 0, batch2.Len(), "Returned batch should be clean")
	ReturnBatch(batch2)
}

func TestReturnBatchWithNil(t *testing.T) {
	ReturnBatch(nil)
}

func TestGlobalBatchPoolStats(t *testing.T) {
	before := GlobalBatchPoolStats()
	b := GetBatch()
	ReturnBatch(b)
	after := GlobalBatchPoolStats()

	assert.Equal(t, before.Gets+1, after.Gets)
	assert.Equal(t, before.Puts+1, after.Puts)
}

func TestBatchMethods(t *testing.T) {
	batch := GetBatch()
	defer ReturnBatch(batch)

	for i := 1; i <= 3; i++ {
		row := batch.AddRow()
		row[wkk.NewRowKey("id")] = i
	}
	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, 2, batch.Get(1)[wkk.NewRowKey("id")])
	assert.Nil(t, batch.Get(3))
	assert.Nil(t, batch.Get(-1))

	batch.DeleteRow(1)
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 1, batch.Get(0)[wkk.NewRowKey("id")])
	assert.Equal(t, 3, batch.Get(1)[wkk.NewRowKey("id")])

	row4 := batch.AddRow()
	assert.Empty(t, row4, "reused row slot must be cleared")
	row4[wkk.NewRowKey("id")] = 4
	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, 4, batch.Get(2)[wkk.NewRowKey("id")])
}

func TestBatch_GrowsPastPoolSize(t *testing.T) {
	batch := GetBatch()
	defer ReturnBatch(batch)

	for i := 0; i < DefaultBatchSize+5; i++ {
		batch.AddRow()[wkk.NewRowKey("i")] = i
	}
	assert.Equal(t, DefaultBatchSize+5, batch.Len())
	assert.Equal(t, DefaultBatchSize+4, batch.Get(DefaultBatchSize+4)[wkk.NewRowKey("i")])
}

func TestCopyBatch(t *testing.T) {
	src := GetBatch()
	src.AddRow()[wkk.NewRowKey("a")] = int64(1)
	src.AddRow()[wkk.NewRowKey("a")] = int64(2)

	dst := CopyBatch(src)
	src.Get(0)[wkk.NewRowKey("a")] = int64(99)

	require.Equal(t, 2, dst.Len())
	assert.Equal(t, int64(1), dst.Get(0)[wkk.NewRowKey("a")])
	assert.Equal(t, int64(2), dst.Get(1)[wkk.NewRowKey("a")])

	ReturnBatch(src)
	ReturnBatch(dst)
}
