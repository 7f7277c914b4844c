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

// Package pipeline provides batch-oriented row streaming with explicit
// ownership: a Batch belongs to the Reader that returned it, and consumers
// copy whatever they want to keep past the next call to Next.
package pipeline

import (
	"maps"

	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// Row represents a single data row keyed by interned column names.
type Row map[wkk.RowKey]any

// CopyRow creates a copy of a row. Values are shared, keys are not.
func CopyRow(in Row) Row {
	return copyRow(in)
}

func copyRow(in Row) Row {
	out := make(Row, len(in))
	maps.Copy(out, in)
	return out
}

// ToStringMap converts a Row to map[string]any for encoders that do not
// understand interned keys.
func ToStringMap(row Row) map[string]any {
	result := make(map[string]any, len(row))
	for key, value := range row {
		result[string(key.Value())] = value
	}
	return result
}

// FromStringMap is the inverse of ToStringMap.
func FromStringMap(m map[string]any) Row {
	row := make(Row, len(m))
	for k, v := range m {
		row[wkk.NewRowKey(k)] = v
	}
	return row
}

// GetString returns the value for key if it is a string, or "".
func (r Row) GetString(key wkk.RowKey) string {
	if val, ok := r[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetInt64 returns the value for key as an int64 if it holds an integer.
func (r Row) GetInt64(key wkk.RowKey) (int64, bool) {
	if val, ok := r[key]; ok {
		switch v := val.(type) {
		case int64:
			return v, true
		case int:
			return int64(v), true
		case int32:
			return int64(v), true
		}
	}
	return 0, false
}
