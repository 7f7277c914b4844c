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

package cbor

import (
	"bytes"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/partseq/pipeline"
	"github.com/cardinalhq/partseq/pipeline/wkk"
)

func TestNewConfig(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	require.NotNil(t, config.encMode)
	require.NotNil(t, config.decMode)
}

func TestCBOR_ValueTypes(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	ts := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
	testCases := []struct {
		name     string
		value    any
		expected any
	}{
		{"string", "test_string", "test_string"},
		{"empty_string", "", ""},
		{"bool", true, true},
		{"nil", nil, nil},
		{"int64_max", int64(math.MaxInt64), int64(math.MaxInt64)},
		{"int64_min", int64(math.MinInt64), int64(math.MinInt64)},
		{"int32", int32(-7), int64(-7)},
		{"uint32", uint32(4294967295), int64(4294967295)},
		{"int", 123456, int64(123456)},
		{"float64", 3.14159265359, 3.14159265359},
		{"float32", float32(3.14), float64(float32(3.14))},
		{"float64_inf", math.Inf(-1), math.Inf(-1)},
		{"bytes", []byte{0x01, 0xFF}, []byte{0x01, 0xFF}},
		{"timestamp", ts, ts},
		{"list", []string{"a", "b"}, []any{"a", "b"}},
		{"map", map[string]any{"k": int32(1)}, map[string]any{"k": int64(1)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row := pipeline.Row{wkk.NewRowKey("v"): tc.value}
			data, err := config.EncodeRow(row)
			require.NoError(t, err)

			decoded, err := config.DecodeRow(data)
			require.NoError(t, err)
			got, ok := decoded[wkk.NewRowKey("v")]
			require.True(t, ok)
			if want, isTime := tc.expected.(time.Time); isTime {
				gotTime, ok := got.(time.Time)
				require.True(t, ok, "expected time.Time, got %T", got)
				assert.True(t, want.Equal(gotTime))
				return
			}
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCBOR_NaN(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	data, err := config.EncodeRow(pipeline.Row{wkk.NewRowKey("f"): math.NaN()})
	require.NoError(t, err)
	row, err := config.DecodeRow(data)
	require.NoError(t, err)
	f, ok := row[wkk.NewRowKey("f")].(float64)
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestRowEncoderDecoder_Stream(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	var buf bytes.Buffer
	enc := config.NewRowEncoder(&buf)
	for i := range 3 {
		require.NoError(t, enc.Encode(pipeline.Row{
			wkk.NewRowKey("i"):    int64(i),
			wkk.NewRowKey("host"): "h",
		}))
	}

	dec := config.NewRowDecoder(&buf)
	for i := range 3 {
		row, err := dec.Decode()
		require.NoError(t, err)
		assert.Equal(t, int64(i), row[wkk.NewRowKey("i")])
		assert.Equal(t, "h", row[wkk.NewRowKey("host")])
	}
	_, err = dec.Decode()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeRow_Invalid(t *testing.T) {
	config, err := NewConfig()
	require.NoError(t, err)

	_, err = config.DecodeRow([]byte{0xFF, 0x00})
	assert.Error(t, err)
}
