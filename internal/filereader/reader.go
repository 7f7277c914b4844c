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
	"github.com/cardinalhq/partseq/pipeline"
)

// Reader, Batch and Row are the pipeline types, re-exported so callers of
// this package rarely need to import pipeline directly.
type (
	Reader = pipeline.Reader
	Batch  = pipeline.Batch
	Row    = pipeline.Row
)

// SchemaReader is implemented by readers that know their columns up front.
type SchemaReader interface {
	GetSchema() *ReaderSchema
}

// RowCounter is implemented by readers that track how many rows they returned.
type RowCounter interface {
	TotalRowsReturned() int64
}
