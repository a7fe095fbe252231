// Copyright 2023 the DealerSync authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package delivery

import (
	"github.com/chariotdata/dealersync/internal/metrics"
	"github.com/chariotdata/dealersync/pkg/observability"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

const metricPrefix = metrics.MetricRoot + "delivery"

var (
	mEventsPublished = stats.Int64(metricPrefix+"/events_published",
		"events accepted by the destination", stats.UnitDimensionless)
	mEventsFailed = stats.Int64(metricPrefix+"/events_failed",
		"events that failed validation or delivery", stats.UnitDimensionless)
	mEventsCandidate = stats.Int64(metricPrefix+"/events_candidate",
		"candidate rows returned by the sales query", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews([]*view.View{
		{
			Name:        metricPrefix + "/events_published_count",
			Description: "Total count of published events",
			Measure:     mEventsPublished,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/events_failed_count",
			Description: "Total count of failed events",
			Measure:     mEventsFailed,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/events_candidate_count",
			Description: "Total count of candidate rows",
			Measure:     mEventsCandidate,
			Aggregation: view.Sum(),
		},
	}...)
}
