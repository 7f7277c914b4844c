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

// Package partseq numbers rows within partitions of a stream that arrives
// already grouped by its partition key, the streaming equivalent of
//
//	ROW_NUMBER() OVER (PARTITION BY k1, k2, ... ORDER BY k1, k2, ...)
//
// A Sequencer keeps only the previous row's key values, one inferred sort
// direction per key column, and a running counter. The sort direction of
// each column is learned from the first inequality seen in that column and
// is enforced from then on: a row that moves a column the other way fails
// with a *PartitionConsistencyError and the sequencer refuses further input.
//
// A Sequencer is not safe for concurrent use. Independent streams each get
// their own instance; nothing is shared between instances.
package partseq
