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

// Package wkk interns row keys so that column lookups compare handles
// instead of strings.
package wkk

import (
	"unique"
	"unsafe"
)

type rowkey string

// RowKey is an interned column name.
type RowKey = unique.Handle[rowkey]

// NewRowKey interns s.
func NewRowKey(s string) RowKey {
	return unique.Make(rowkey(s))
}

// RowKeyValue returns the column name behind rk.
func RowKeyValue(rk RowKey) string {
	return string(rk.Value())
}

// NewRowKeyFromBytes interns keyBytes, avoiding the string allocation for
// keys that were already interned at startup.
func NewRowKeyFromBytes(keyBytes []byte) RowKey {
	keyStr := unsafe.String(unsafe.SliceData(keyBytes), len(keyBytes))
	if key, exists := commonKeys[keyStr]; exists {
		return key
	}
	return unique.Make(rowkey(string(keyBytes)))
}

var (
	// RowKeyRowNumber: "row_number", the default output column.
	RowKeyRowNumber = NewRowKey("row_number")

	// RowKeyPartition: "partition"
	RowKeyPartition = NewRowKey("partition")

	// RowKeyTimestamp: "timestamp"
	RowKeyTimestamp = NewRowKey("timestamp")
)

var commonKeys = map[string]RowKey{
	"row_number": RowKeyRowNumber,
	"partition":  RowKeyPartition,
	"timestamp":  RowKeyTimestamp,
}
