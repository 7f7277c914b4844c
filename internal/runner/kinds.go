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


package runner

import (
	"github.com/cardinalhq/partseq/internal/filereader"
	"github.com/cardinalhq/partseq/internal/partseq"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// kindForDataType maps an input column type onto a comparator kind.
// Types without a fixed ordering stay KindAuto.
func kindForDataType(dt filereader.DataType) partseq.Kind {
	switch dt {
	case filereader.DataTypeString:
		return partseq.KindString
	case filereader.DataTypeInt64:
		return partseq.KindInt64
	case filereader.DataTypeFloat64:
		return partseq.KindFloat64
	case filereader.DataTypeBool:
		return partseq.KindBool
	case filereader.DataTypeBytes:
		return partseq.KindBytes
	case filereader.DataTypeTimestamp:
		return partseq.KindTimestamp
	}
	return partseq.KindAuto
}

// resolveKinds fills in KindAuto columns from the reader's schema when it
// has one. Explicit kinds are never overridden. The result is a fresh slice.
func resolveKinds(columns []partseq.ColumnSpec, reader filereader.Reader) []partseq.ColumnSpec {
	out := make([]partseq.ColumnSpec, len(columns))
	copy(out, columns)

	sr, ok := reader.(filereader.SchemaReader)
	if !ok {
		return out
	}
	schema := sr.GetSchema()
	if schema == nil {
		return out
	}
	for i, c := range out {
		if c.Kind != partseq.KindAuto {
			continue
		}
		for _, col := range schema.Columns() {
			if col.Name == wkk.NewRowKey(c.Name) && col.HasNonNull {
				out[i].Kind = kindForDataType(col.DataType)
				break
			}
		}
	}
	return out
}
