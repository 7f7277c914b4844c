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
	"bytes"
	"encoding/json"
	"slices"

	"github.com/cardinalhq/partseq/pipeline/wkk"
)

// MarshalJSON renders the row as a JSON object with keys in lexical order,
// so the same row always encodes to the same bytes.
func (r Row) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, wkk.RowKeyValue(k))
	}
	slices.Sort(keys)

	var buf bytes.Buffer
	buf.Grow(64 * len(keys))
	buf.WriteByte('{')
	for i, name := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameBytes, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(nameBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(r[wkk.NewRowKey(name)])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the row, interning every key.
// Numbers are kept as json.Number so integer columns survive as integers.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}

	if *r == nil {
		*r = make(Row, len(m))
	}
	for k, v := range m {
		(*r)[wkk.NewRowKey(k)] = v
	}
	return nil
}
