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

	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
)

var (
	rowsNumberedCounter      otelmetric.Int64Counter
	partitionsStartedCounter otelmetric.Int64Counter
	orderViolationsCounter   otelmetric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/partseq/internal/partseq")

	var err error
	rowsNumberedCounter, err = meter.Int64Counter(
		"partseq.rows.numbered",
		otelmetric.WithDescription("Number of rows assigned a partition row number"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create rows.numbered counter: %w", err))
	}

	partitionsStartedCounter, err = meter.Int64Counter(
		"partseq.partitions.started",
		otelmetric.WithDescription("Number of partitions started across all streams"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create partitions.started counter: %w", err))
	}

	orderViolationsCounter, err = meter.Int64Counter(
		"partseq.order.violations",
		otelmetric.WithDescription("Number of streams rejected because a key column was not consistently sorted"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create order.violations counter: %w", err))
	}
}
