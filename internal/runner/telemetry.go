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


package runner

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	streamDuration metric.Float64Histogram
	streamsCounter metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/partseq/internal/runner")

	var err error
	streamDuration, err = meter.Float64Histogram(
		"partseq.stream.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Time taken to number one input stream"),
	)
	if err != nil {
		panic(err)
	}

	streamsCounter, err = meter.Int64Counter(
		"partseq.streams",
		metric.WithDescription("Number of input streams processed"),
	)
	if err != nil {
		panic(err)
	}
}
