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
	"bytes"
	"context"
	"fmt"

	warehousedb "github.com/chariotdata/dealersync/internal/warehouse/database"
	"github.com/chariotdata/dealersync/internal/warehouse/model"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/hashicorp/go-multierror"
	"go.opencensus.io/stats"
)

// MergeRequest is the trigger body. Both fields are optional; the input
// path falls back to the configured prefix and the processing date is
// informational.
type MergeRequest struct {
	InputPath      string `json:"inputPath"`
	ProcessingDate string `json:"processingDate"`
}

// MergeResult summarizes a merge run.
type MergeResult struct {
	InputPath string                  `json:"inputPath"`
	Objects   int                     `json:"objects"`
	Report    model.ParseReport       `json:"report"`
	Stats     *warehousedb.MergeStats `json:"stats"`
}

// runMerge reads every staged export under the input prefix, coerces rows
// through the vehicle sales table definition, and merges them into the
// warehouse in one transaction. An unreadable or unparseable object is
// skipped and reported; the run fails only when nothing merges.
func (s *Server) runMerge(ctx context.Context, req *MergeRequest) (*MergeResult, error) {
	logger := logging.FromContext(ctx).Named("runMerge")

	prefix := req.InputPath
	if prefix == "" {
		prefix = s.config.InputPrefix
	}

	keys, err := s.env.Blobstore().ListObjects(ctx, s.config.Bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged objects: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no staged objects under %s", prefix)
	}

	result := &MergeResult{InputPath: prefix}

	var records []model.Record
	var merr *multierror.Error
	for _, key := range keys {
		objRecords, report, err := s.readObject(ctx, key)
		if err != nil {
			logger.Errorw("failed to read staged object", "key", key, "error", err)
			merr = multierror.Append(merr, fmt.Errorf("object %s: %w", key, err))
			continue
		}
		stats.Record(ctx, mObjectsRead.M(1))
		result.Objects++
		result.Report.Rows += report.Rows
		result.Report.Kept += report.Kept
		result.Report.DroppedIncomplete += report.DroppedIncomplete
		result.Report.DroppedMalformed += report.DroppedMalformed
		records = append(records, objRecords...)
	}

	stats.Record(ctx, mRowsKept.M(int64(result.Report.Kept)))
	stats.Record(ctx, mRowsDropped.M(int64(result.Report.DroppedIncomplete+result.Report.DroppedMalformed)))

	if len(records) == 0 {
		if err := merr.ErrorOrNil(); err != nil {
			return result, err
		}
		return result, fmt.Errorf("no mergeable rows under %s", prefix)
	}

	if err := s.mergeDB.EnsureTargetTable(ctx, model.VehicleSales); err != nil {
		return result, err
	}

	mergeCtx, cancel := context.WithTimeout(ctx, s.config.MergeTimeout)
	defer cancel()

	mergeStats, err := s.mergeDB.Merge(mergeCtx, model.VehicleSales, records)
	if err != nil {
		return result, fmt.Errorf("merge failed: %w", err)
	}
	result.Stats = mergeStats
	stats.Record(ctx, mRowsMerged.M(mergeStats.Inserted))

	logger.Infow("merge complete",
		"objects", result.Objects,
		"kept", result.Report.Kept,
		"deleted", mergeStats.Deleted,
		"inserted", mergeStats.Inserted)

	if err := merr.ErrorOrNil(); err != nil {
		logger.Warnw("merge completed with skipped objects", "error", err)
	}
	return result, nil
}

func (s *Server) readObject(ctx context.Context, key string) ([]model.Record, *model.ParseReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.ReadTimeout)
	defer cancel()

	contents, err := s.env.Blobstore().GetObject(ctx, s.config.Bucket, key)
	if err != nil {
		return nil, nil, err
	}
	return model.ParseCSV(bytes.NewReader(contents), model.VehicleSales)
}
