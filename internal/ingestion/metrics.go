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

package ingestion

import (
	"github.com/chariotdata/dealersync/internal/metrics"
	"github.com/chariotdata/dealersync/pkg/observability"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
)

const metricPrefix = metrics.MetricRoot + "ingestion"

var (
	mDatasetsStaged = stats.Int64(metricPrefix+"/datasets_staged",
		"datasets staged to the raw bucket", stats.UnitDimensionless)
	mDatasetsSkipped = stats.Int64(metricPrefix+"/datasets_skipped",
		"datasets with no candidate export", stats.UnitDimensionless)
	mDatasetsFailed = stats.Int64(metricPrefix+"/datasets_failed",
		"datasets that failed to stage", stats.UnitDimensionless)
	mBytesStaged = stats.Int64(metricPrefix+"/bytes_staged",
		"decrypted bytes written to the raw bucket", stats.UnitBytes)
)

func init() {
	observability.CollectViews([]*view.View{
		{
			Name:        metricPrefix + "/datasets_staged_count",
			Description: "Total count of staged datasets",
			Measure:     mDatasetsStaged,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/datasets_skipped_count",
			Description: "Total count of skipped datasets",
			Measure:     mDatasetsSkipped,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/datasets_failed_count",
			Description: "Total count of failed datasets",
			Measure:     mDatasetsFailed,
			Aggregation: view.Sum(),
		},
		{
			Name:        metricPrefix + "/bytes_staged_sum",
			Description: "Total decrypted bytes staged",
			Measure:     mBytesStaged,
			Aggregation: view.Sum(),
		},
	}...)
}
