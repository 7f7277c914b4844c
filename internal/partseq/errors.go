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

package partseq

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("invalid partition key configuration")
	// ErrInconsistentOrder matches every *PartitionConsistencyError.
	ErrInconsistentOrder = errors.New("partition key is not consistently sorted")
	// ErrKeyWidth is returned when a key tuple does not have one value per key column.
	ErrKeyWidth = errors.New("key tuple width does not match column count")
	// ErrKeyValue matches every *KeyValueError.
	ErrKeyValue = errors.New("key value cannot be used as its column kind")
)

// ConfigurationError reports an unusable set of partition key columns.
// Column is -1 when the problem is not tied to a single column.
type ConfigurationError struct {
	Column int
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%s: column %d (%s): %s", ErrConfiguration, e.Column, e.Name, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// PartitionConsistencyError reports a key column that moved against the
// direction it was previously observed to be sorted in. Row is the 1-based
// ordinal of the offending row within the stream.
type PartitionConsistencyError struct {
	Column   int
	Name     string
	Expected Direction
	Observed Direction
	Row      int64
	Previous any
	Current  any
}

func (e *PartitionConsistencyError) Error() string {
	return fmt.Sprintf("data in column %d (%s) does not appear to be consistently sorted: column was %s, row %d is %s (%v after %v)",
		e.Column, e.Name, e.Expected, e.Row, e.Observed, e.Current, e.Previous)
}

func (e *PartitionConsistencyError) Is(target error) bool {
	return target == ErrInconsistentOrder
}

// KeyValueError reports a key value that could not be normalized to the
// declared kind of its column. The sequencer state is untouched.
type KeyValueError struct {
	Column int
	Name   string
	Kind   Kind
	Value  any
	Err    error
}

func (e *KeyValueError) Error() string {
	return fmt.Sprintf("key column %d (%s): cannot use %T value %v as %s: %v", e.Column, e.Name, e.Value, e.Value, e.Kind, e.Err)
}

func (e *KeyValueError) Unwrap() error {
	return e.Err
}

func (e *KeyValueError) Is(target error) bool {
	return target == ErrKeyValue
}
