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
	"fmt"
	"slices"
)

// KeyTuple holds the partition key values of one row, in key column order.
// A nil entry is the null value.
type KeyTuple []any

// Sequencer assigns 1-based row numbers within consecutive partitions.
type Sequencer struct {
	columns     []ColumnSpec
	comparators []Comparator
	directions  []Direction
	previous    KeyTuple
	current     KeyTuple
	counter     int64
	started     bool
	rows        int64
	partitions  int64
	err         error
}

// New returns a Sequencer for the given key columns.
func New(columns ...ColumnSpec) (*Sequencer, error) {
	if len(columns) == 0 {
		return nil, &ConfigurationError{Column: -1, Reason: "at least one partition key column is required"}
	}
	s := &Sequencer{
		columns:     make([]ColumnSpec, len(columns)),
		comparators: make([]Comparator, len(columns)),
		directions:  make([]Direction, len(columns)),
		previous:    make(KeyTuple, len(columns)),
		current:     make(KeyTuple, len(columns)),
	}
	for i, c := range columns {
		if c.Name == "" {
			c.Name = fmt.Sprintf("_%d", i)
		}
		if c.Constant {
			return nil, &ConfigurationError{Column: i, Name: c.Name, Reason: "partition key must not be a constant"}
		}
		cmp, err := NewComparator(c.Kind)
		if err != nil {
			return nil, &ConfigurationError{Column: i, Name: c.Name, Reason: err.Error()}
		}
		s.columns[i] = c
		s.comparators[i] = cmp
	}
	return s, nil
}

// NewWithWidth returns a Sequencer for n auto-kind columns named _0 .. _n-1.
func NewWithWidth(n int) (*Sequencer, error) {
	if n <= 0 {
		return nil, &ConfigurationError{Column: -1, Reason: "at least one partition key column is required"}
	}
	return New(make([]ColumnSpec, n)...)
}

// Process consumes the next row's key values and returns its row number
// within its partition. The row is not retained; the values that are
// kept are deep copies.
//
// A *PartitionConsistencyError is terminal: every later call returns it
// again. ErrKeyWidth and *KeyValueError reject only the offending row.
func (s *Sequencer) Process(row KeyTuple) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(row) != len(s.columns) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrKeyWidth, len(row), len(s.columns))
	}
	for i, v := range row {
		nv, err := s.comparators[i].Normalize(v)
		if err != nil {
			clear(s.current)
			return 0, &KeyValueError{Column: i, Name: s.columns[i].Name, Kind: s.columns[i].Kind, Value: v, Err: err}
		}
		s.current[i] = nv
	}
	s.rows++

	if !s.started {
		s.started = true
		return s.startPartition(0), nil
	}

	for i, cur := range s.current {
		prev := s.previous[i]
		c := s.comparators[i]
		if c.Equal(cur, prev) {
			continue
		}
		// Nulls split partitions but say nothing about ordering.
		if cur == nil || prev == nil {
			return s.startPartition(i), nil
		}
		observed := directionOf(c.Compare(cur, prev))
		if observed == DirectionUnknown {
			continue
		}
		switch s.directions[i] {
		case DirectionUnknown:
			s.directions[i] = observed
		case observed:
		default:
			s.err = &PartitionConsistencyError{
				Column:   i,
				Name:     s.columns[i].Name,
				Expected: s.directions[i],
				Observed: observed,
				Row:      s.rows,
				Previous: prev,
				Current:  cur,
			}
			clear(s.current)
			return 0, s.err
		}
		return s.startPartition(i), nil
	}

	clear(s.current)
	s.counter++
	return s.counter, nil
}

// startPartition copies current[from:] into previous and resets the
// counter. Columns before from are equal and already stored.
func (s *Sequencer) startPartition(from int) int64 {
	for i := from; i < len(s.current); i++ {
		s.previous[i] = s.comparators[i].Copy(s.current[i])
	}
	clear(s.current)
	s.partitions++
	s.counter = 1
	return 1
}

// Width is the number of key columns.
func (s *Sequencer) Width() int { return len(s.columns) }

// Counter is the row number most recently returned, 0 before the first row.
func (s *Sequencer) Counter() int64 { return s.counter }

// Directions returns a copy of the inferred direction of each key column.
func (s *Sequencer) Directions() []Direction { return slices.Clone(s.directions) }

// Columns returns a copy of the key column specs.
func (s *Sequencer) Columns() []ColumnSpec { return slices.Clone(s.columns) }

// Comparator returns the comparator for column i.
func (s *Sequencer) Comparator(i int) Comparator { return s.comparators[i] }

// Err returns the terminal error, if any.
func (s *Sequencer) Err() error { return s.err }

// RowsProcessed counts rows that passed normalization, including a row that
// failed with a consistency error.
func (s *Sequencer) RowsProcessed() int64 { return s.rows }

// PartitionsStarted counts partition boundaries, the first row included.
func (s *Sequencer) PartitionsStarted() int64 { return s.partitions }

// DisplayString renders this sequencer's key columns as a function call.
func (s *Sequencer) DisplayString() string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return DisplayString(names)
}
