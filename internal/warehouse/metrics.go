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

package warehouse

import (
	"github.com/chariotdata/dealersync/internal/metrics"
	"github.com/chariotdata/dealersync/pkg/observability"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

const metricPrefix = metrics.MetricRoot + "warehouse"

var (
	mObjectsRead = stats.Int64(metricPrefix+"/objects_read",
		"staged objects read for merge", stats.UnitDimensionless)
	mRowsKept = stats.Int64(metricPrefix+"/rows_kept",
		"rows passing validation", stats.UnitDimensionless)
	mRowsDropped = stats.Int64(metricPrefix+"/rows_dropped",
		"rows dropped during validation", stats.UnitDimensionless)
	mRowsMerged = stats.Int64(metricPrefix+"/rows_merged",
		"rows inserted by the merge", stats.UnitDimensionless)
)

func init() {
	observability.CollectViews([]*view.View{
		{
			Name:        metricPrefix + "/objects_read_count",
			Description: "Total count of staged objects read",
			Measure:     mObjectsRead,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/rows_kept_count",
			Description: "Total count of rows passing validation",
			Measure:     mRowsKept,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/rows_dropped_count",
			Description: "Total count of rows dropped during validation",
			Measure:     mRowsDropped,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/rows_merged_count",
			Description: "Total count of rows inserted by the merge",
			Measure:     mRowsMerged,
			Aggregation: view.Sum(),
		},
	}...)
}
