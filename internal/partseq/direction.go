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

// Direction is the inferred sort direction of one key column.
type Direction int8

const (
	DirectionUnknown    Direction = 0
	DirectionAscending  Direction = 1
	DirectionDescending Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionAscending:
		return "ascending"
	case DirectionDescending:
		return "descending"
	default:
		return "unknown"
	}
}

// Opposite returns the reverse direction. Unknown has no opposite.
func (d Direction) Opposite() Direction {
	return -d
}

// directionOf collapses a three-way comparison result to a Direction.
func directionOf(c int) Direction {
	switch {
	case c > 0:
		return DirectionAscending
	case c < 0:
		return DirectionDescending
	default:
		return DirectionUnknown
	}
}
