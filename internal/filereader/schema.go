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
	"strconv"
	"time"

	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// DataType represents the type of data in a column.
type DataType int

const (
	DataTypeUnknown DataType = iota // Unknown/uninitialized type - should not be used
	DataTypeString
	DataTypeInt64
	DataTypeFloat64
	DataTypeBool
	DataTypeBytes
	DataTypeTimestamp
	DataTypeAny // For complex types (list, struct, map) that are passed through as-is
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeString:
		return "string"
	case DataTypeInt64:
		return "int64"
	case DataTypeFloat64:
		return "float64"
	case DataTypeBool:
		return "bool"
	case DataTypeBytes:
		return "bytes"
	case DataTypeTimestamp:
		return "timestamp"
	case DataTypeAny:
		return "any"
	default:
		return "unknown"
	}
}

// ColumnSchema describes a single column in the schema.
type ColumnSchema struct {
	Name       wkk.RowKey
	DataType   DataType
	HasNonNull bool
}

// ReaderSchema is the set of columns a reader produces, in the order they
// were first added.
type ReaderSchema struct {
	columns map[wkk.RowKey]*ColumnSchema
	order   []wkk.RowKey
}

// NewReaderSchema creates a new empty schema.
func NewReaderSchema() *ReaderSchema {
	return &ReaderSchema{
		columns: make(map[wkk.RowKey]*ColumnSchema),
	}
}

// AddColumn adds a column, or merges the type into an existing one.
func (s *ReaderSchema) AddColumn(name wkk.RowKey, dataType DataType, hasNonNull bool) {
	if existing, ok := s.columns[name]; ok {
		if hasNonNull {
			if existing.HasNonNull {
				existing.DataType = promoteType(existing.DataType, dataType)
			} else {
				existing.DataType = dataType
			}
		}
		existing.HasNonNull = existing.HasNonNull || hasNonNull
		return
	}
	s.columns[name] = &ColumnSchema{
		Name:       name,
		DataType:   dataType,
		HasNonNull: hasNonNull,
	}
	s.order = append(s.order, name)
}

// GetColumnType returns the data type for a column name.
func (s *ReaderSchema) GetColumnType(name string) DataType {
	if col, ok := s.columns[wkk.NewRowKey(name)]; ok {
		return col.DataType
	}
	return DataTypeUnknown
}

// HasColumn returns true if the schema has the specified column.
func (s *ReaderSchema) HasColumn(name string) bool {
	_, ok := s.columns[wkk.NewRowKey(name)]
	return ok
}

// Columns returns all column schemas in insertion order.
func (s *ReaderSchema) Columns() []*ColumnSchema {
	result := make([]*ColumnSchema, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, s.columns[key])
	}
	return result
}

// ColumnNames returns the column names in insertion order.
func (s *ReaderSchema) ColumnNames() []string {
	result := make([]string, 0, len(s.order))
	for _, key := range s.order {
		result = append(result, wkk.RowKeyValue(key))
	}
	return result
}

// promoteType returns the promoted type when two types need to be merged.
//   - int64 + float64 → float64
//   - bytes, bool or timestamp mixed with anything else → string
//   - any mixed with anything → any
func promoteType(a, b DataType) DataType {
	if a == b {
		return a
	}
	if a == DataTypeUnknown {
		return b
	}
	if b == DataTypeUnknown {
		return a
	}
	if a == DataTypeAny || b == DataTypeAny {
		return DataTypeAny
	}
	if (a == DataTypeFloat64 && b == DataTypeInt64) ||
		(a == DataTypeInt64 && b == DataTypeFloat64) {
		return DataTypeFloat64
	}
	return DataTypeString
}

// InferTypeFromValue determines the DataType from a Go value.
func InferTypeFromValue(value any) DataType {
	switch value.(type) {
	case nil:
		return DataTypeUnknown
	case bool:
		return DataTypeBool
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return DataTypeInt64
	case float32, float64:
		return DataTypeFloat64
	case string:
		return DataTypeString
	case []byte:
		return DataTypeBytes
	case time.Time:
		return DataTypeTimestamp
	default:
		return DataTypeAny
	}
}

// InferTypeFromString attempts to parse a string and determine its type.
// Returns the inferred DataType and the parsed value. Empty strings are null.
func InferTypeFromString(s string) (DataType, any) {
	if s == "" {
		return DataTypeUnknown, nil
	}

	// Integers before bools: ParseBool accepts "1" and "0".
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return DataTypeInt64, i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return DataTypeFloat64, f
	}
	return DataTypeString, s
}

// SchemaBuilder builds a schema by scanning values and promoting types.
type SchemaBuilder struct {
	schema *ReaderSchema
}

// NewSchemaBuilder creates a new schema builder.
func NewSchemaBuilder() *SchemaBuilder {
	return &SchemaBuilder{
		schema: NewReaderSchema(),
	}
}

// AddValue adds a value to the schema, inferring its type and promoting if needed.
func (sb *SchemaBuilder) AddValue(key wkk.RowKey, value any) {
	sb.schema.AddColumn(key, InferTypeFromValue(value), value != nil)
}

// AddStringValue parses a string value, infers its type, and adds to schema.
func (sb *SchemaBuilder) AddStringValue(key wkk.RowKey, stringValue string) {
	dataType, v := InferTypeFromString(stringValue)
	sb.schema.AddColumn(key, dataType, v != nil)
}

// AddRow adds every value of row.
func (sb *SchemaBuilder) AddRow(row Row) {
	for k, v := range row {
		sb.AddValue(k, v)
	}
}

// Build returns the built schema.
func (sb *SchemaBuilder) Build() *ReaderSchema {
	return sb.schema
}
