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

// Package cbor encodes pipeline rows for spilling to disk and reading them
// back with their value types intact.
//
// CBOR Type Behavior:
//   - All integers (int32, uint32, int) convert to int64
//   - float32 converts to float64
//   - []T slices convert to []any
//   - Maps decode directly as map[string]any (configured via DefaultMapType)
//   - time.Time round-trips through a tagged RFC 3339 string, in UTC
//   - uint64 values > MaxInt64 cause decode errors and should be avoided
//   - string, bool, []byte, nil are preserved exactly
package cbor

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// Config holds CBOR encoder and decoder configurations optimized for Row data.
type Config struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// NewConfig creates a new CBOR configuration optimized for Row data processing.
func NewConfig() (*Config, error) {
	encMode, err := cbor.EncOptions{
		Sort:          cbor.SortNone,          // Don't sort map keys - preserve order
		ShortestFloat: cbor.ShortestFloatNone, // Don't convert float types
		BigIntConvert: cbor.BigIntConvertNone, // Don't convert large integers
		Time:          cbor.TimeRFC3339Nano,   // Keep full precision
		TimeTag:       cbor.EncTagRequired,    // Tag times so they decode as time.Time
	}.EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}

	decMode, err := cbor.DecOptions{
		BigIntDec:      cbor.BigIntDecodeValue,           // Preserve large integers
		IntDec:         cbor.IntDecConvertSigned,         // Convert all integers to int64 (signed)
		DefaultMapType: reflect.TypeOf(map[string]any{}), // Decode maps as map[string]any instead of map[interface{}]interface{}
		UTF8:           cbor.UTF8DecodeInvalid,           // Allow decoding CBOR Text containing invalid UTF-8 strings
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR decoder: %w", err)
	}

	return &Config{
		encMode: encMode,
		decMode: decMode,
	}, nil
}

// EncodeRow encodes a Row to CBOR bytes with string keys.
func (c *Config) EncodeRow(row pipeline.Row) ([]byte, error) {
	return c.encMode.Marshal(pipeline.ToStringMap(row))
}

// DecodeRow decodes CBOR bytes to a Row with type conversion applied.
func (c *Config) DecodeRow(data []byte) (pipeline.Row, error) {
	var raw map[string]any
	if err := c.decMode.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return toRow(raw), nil
}

func toRow(raw map[string]any) pipeline.Row {
	row := make(pipeline.Row, len(raw))
	for k, v := range raw {
		row[wkk.NewRowKey(k)] = convertCBORTypes(v)
	}
	return row
}

// RowEncoder writes a stream of rows.
type RowEncoder struct {
	enc *cbor.Encoder
}

// NewRowEncoder returns an encoder that appends rows to w.
func (c *Config) NewRowEncoder(w io.Writer) *RowEncoder {
	return &RowEncoder{enc: c.encMode.NewEncoder(w)}
}

func (e *RowEncoder) Encode(row pipeline.Row) error {
	return e.enc.Encode(pipeline.ToStringMap(row))
}

// RowDecoder reads rows written by a RowEncoder.
type RowDecoder struct {
	dec *cbor.Decoder
}

// NewRowDecoder returns a decoder reading rows from r.
func (c *Config) NewRowDecoder(r io.Reader) *RowDecoder {
	return &RowDecoder{dec: c.decMode.NewDecoder(r)}
}

// Decode returns the next row, or io.EOF when the stream is exhausted.
func (d *RowDecoder) Decode() (pipeline.Row, error) {
	var raw map[string]any
	if err := d.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return toRow(raw), nil
}

// convertCBORTypes normalizes nested containers after decoding.
func convertCBORTypes(value any) any {
	switch v := value.(type) {
	case []any:
		result := make([]any, len(v))
		for i, elem := range v {
			result[i] = convertCBORTypes(elem)
		}
		return result

	case map[string]any:
		result := make(map[string]any, len(v))
		for k, elem := range v {
			result[k] = convertCBORTypes(elem)
		}
		return result

	default:
		return v
	}
}
