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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chariotdata/dealersync/internal/vendorfeed"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/hashicorp/go-multierror"
	"go.opencensus.io/stats"
)

// Dataset terminal states reported per run.
const (
	StatusStaged  = "STAGED"
	StatusSkipped = "SKIPPED"
	StatusFailed  = "FAILED"
)

// DatasetResult is the outcome of one dataset within a run.
type DatasetResult struct {
	Dataset string `json:"dataset"`
	Status  string `json:"status"`
	Key     string `json:"key,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RunResult summarizes an ingestion run.
type RunResult struct {
	ProcessedDate string          `json:"processedDate"`
	Staged        int             `json:"staged"`
	Skipped       int             `json:"skipped"`
	Failed        int             `json:"failed"`
	Datasets      []DatasetResult `json:"datasets"`
}

// runIngestion pulls the newest export for each configured dataset,
// decrypts it, and stages it into the raw bucket. A dataset failure never
// stops the other datasets. The run itself fails only when nothing staged
// at all, so the scheduler can alert on a fully dark vendor feed.
func (s *Server) runIngestion(ctx context.Context) (*RunResult, error) {
	logger := logging.FromContext(ctx).Named("runIngestion")

	ctx, cancel := context.WithTimeout(ctx, s.config.MaxRuntime)
	defer cancel()

	feed, err := s.feedFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vendor feed: %w", err)
	}
	defer func() {
		if err := feed.Close(); err != nil {
			logger.Warnw("failed to close vendor feed", "error", err)
		}
	}()

	processedDate := time.Now().UTC()
	stager := NewStager(s.env.Blobstore(), s.config.Bucket, s.config.StageTimeout)

	result := &RunResult{
		ProcessedDate: processedDate.Format("2006-01-02"),
	}

	var merr *multierror.Error
	for _, dataset := range s.config.Datasets {
		key, err := s.processDataset(ctx, feed, stager, dataset, processedDate)
		switch {
		case errors.Is(err, ErrNoCandidates):
			logger.Infow("no export available, skipping", "dataset", dataset)
			stats.Record(ctx, mDatasetsSkipped.M(1))
			result.Skipped++
			result.Datasets = append(result.Datasets, DatasetResult{
				Dataset: dataset,
				Status:  StatusSkipped,
			})
		case err != nil:
			logger.Errorw("failed to stage dataset", "dataset", dataset, "error", err)
			stats.Record(ctx, mDatasetsFailed.M(1))
			merr = multierror.Append(merr, fmt.Errorf("dataset %s: %w", dataset, err))
			result.Failed++
			result.Datasets = append(result.Datasets, DatasetResult{
				Dataset: dataset,
				Status:  StatusFailed,
				Error:   err.Error(),
			})
		default:
			logger.Infow("staged dataset", "dataset", dataset, "key", key)
			stats.Record(ctx, mDatasetsStaged.M(1))
			result.Staged++
			result.Datasets = append(result.Datasets, DatasetResult{
				Dataset: dataset,
				Status:  StatusStaged,
				Key:     key,
			})
		}
	}

	if result.Staged == 0 {
		if err := merr.ErrorOrNil(); err != nil {
			return result, err
		}
		return result, fmt.Errorf("no datasets staged: %d skipped", result.Skipped)
	}

	s.fireMergeTrigger(ctx, result)

	// Partial failures are reported in the result but do not fail the run.
	if err := merr.ErrorOrNil(); err != nil {
		logger.Warnw("run completed with partial failures", "error", err)
	}
	return result, nil
}

// processDataset runs the pipeline for one dataset: list, select the
// newest snapshot, download, decrypt, stage.
func (s *Server) processDataset(ctx context.Context, feed vendorfeed.Feed, stager *Stager, dataset string, processedDate time.Time) (string, error) {
	candidates, err := feed.List(ctx, dataset)
	if err != nil {
		return "", fmt.Errorf("failed to list exports: %w", err)
	}

	snapshot, err := SelectSnapshot(candidates)
	if err != nil {
		return "", err
	}

	downloadCtx, cancel := context.WithTimeout(ctx, s.config.DownloadTimeout)
	ciphertext, err := feed.Fetch(downloadCtx, snapshot.Path)
	cancel()
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", snapshot.Name, err)
	}

	plaintext, err := s.decryptor.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt %s: %w", snapshot.Name, err)
	}

	stagedName := strings.TrimSuffix(snapshot.Name, ".gpg")
	key, err := stager.Stage(ctx, dataset, stagedName, plaintext, processedDate)
	if err != nil {
		return "", err
	}

	stats.Record(ctx, mBytesStaged.M(int64(len(plaintext))))
	return key, nil
}

// fireMergeTrigger notifies the warehouse merge job. Trigger failures are
// logged and never fail the run; the merge job also runs on its own
// schedule.
func (s *Server) fireMergeTrigger(ctx context.Context, result *RunResult) {
	logger := logging.FromContext(ctx)

	req := &TriggerRequest{
		InputPath:      s.config.MergeInputPath,
		ProcessingDate: result.ProcessedDate,
	}
	if err := s.trigger.Trigger(ctx, req); err != nil {
		logger.Warnw("failed to trigger warehouse merge", "error", err)
		return
	}
	logger.Infow("triggered warehouse merge", "processedDate", result.ProcessedDate)
}
