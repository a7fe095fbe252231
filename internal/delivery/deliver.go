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
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chariotdata/dealersync/pkg/logging"
	"go.opencensus.io/stats"
)

// defaultScope is the ledger scope when a trigger names none.
const defaultScope = "AUTO"

// DeliverRequest is the trigger body. Every field is optional: the run
// defaults to yesterday's sales for the AUTO scope.
type DeliverRequest struct {
	// StartDate bounds the backfill window (YYYY-MM-DD).
	StartDate string `json:"start_date"`

	// BatchSize overrides the configured batch size.
	BatchSize int `json:"batch_size"`

	// MaxEvents caps the run, for testing and manual backfills.
	MaxEvents int `json:"max_events"`

	// DealershipCode selects the ledger scope.
	DealershipCode string `json:"dealership_code"`
}

// DeliverResult summarizes a delivery run.
type DeliverResult struct {
	Message         string  `json:"message"`
	TotalEvents     int     `json:"total_events"`
	SuccessfulCount int     `json:"successful_count"`
	FailedCount     int     `json:"failed_count"`
	SuccessRate     float64 `json:"success_rate"`
	CommittedIDs    int     `json:"processed_event_ids"`
}

// runDelivery queries unsent sales, publishes each as a track event, and
// commits the delivered deal numbers to the scope's ledger. A failed
// event is counted and left out of the ledger so the next run retries it.
func (s *Server) runDelivery(ctx context.Context, req *DeliverRequest) (*DeliverResult, error) {
	logger := logging.FromContext(ctx).Named("runDelivery")
	now := time.Now().UTC()

	scope := req.DealershipCode
	if scope == "" {
		scope = defaultScope
	}
	startDate := req.StartDate
	if startDate == "" {
		startDate = now.AddDate(0, 0, -1).Format("2006-01-02")
	}
	endDate := now.Format("2006-01-02")
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.config.BatchSize
	}

	delivered, err := s.ledger.Load(ctx, scope)
	if err != nil {
		return nil, err
	}
	exclude := make([]string, 0, len(delivered))
	for id := range delivered {
		exclude = append(exclude, id)
	}

	logger.Infow("querying unsent sales",
		"scope", scope,
		"startDate", startDate,
		"endDate", endDate,
		"excluded", len(exclude))

	sales, err := s.salesDB.UnsentSales(ctx, startDate, endDate, exclude, s.config.QueryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	stats.Record(ctx, mEventsCandidate.M(int64(len(sales))))

	if len(sales) == 0 {
		logger.Infow("no new vehicle purchase events found")
		return &DeliverResult{Message: "No new events to process"}, nil
	}
	if req.MaxEvents > 0 && len(sales) > req.MaxEvents {
		logger.Infow("limiting run", "maxEvents", req.MaxEvents)
		sales = sales[:req.MaxEvents]
	}

	result := &DeliverResult{TotalEvents: len(sales)}
	var committed []string

	for start := 0; start < len(sales); start += batchSize {
		end := start + batchSize
		if end > len(sales) {
			end = len(sales)
		}

		for _, sale := range sales[start:end] {
			if err := sale.Validate(); err != nil {
				logger.Warnw("dropping invalid sale", "deal", sale.DealNumber, "error", err)
				result.FailedCount++
				continue
			}

			event := sale.TrackEvent(now)
			if err := s.publisher.Publish(ctx, event); err != nil {
				logger.Errorw("failed to publish event",
					"deal", sale.DealNumber, "messageId", event.MessageID, "error", err)
				result.FailedCount++
				continue
			}

			result.SuccessfulCount++
			committed = append(committed, sale.DealNumber)
		}

		// Pause between batches to respect destination rate limits.
		if end < len(sales) && s.config.BatchPause > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.config.BatchPause):
			}
		}
	}

	stats.Record(ctx,
		mEventsPublished.M(int64(result.SuccessfulCount)),
		mEventsFailed.M(int64(result.FailedCount)))

	if len(committed) > 0 {
		if err := s.ledger.Commit(ctx, scope, committed, delivered); err != nil {
			// Failing to commit re-delivers next run; the deterministic
			// message IDs make that a dedup at the destination.
			logger.Errorw("failed to commit delivery ledger", "scope", scope, "error", err)
		} else {
			result.CommittedIDs = len(committed)
		}
	}

	result.Message = "Event processing complete"
	result.SuccessRate = math.Round(float64(result.SuccessfulCount)/float64(result.TotalEvents)*1000) / 10

	logger.Infow("delivery complete",
		"total", result.TotalEvents,
		"successful", result.SuccessfulCount,
		"failed", result.FailedCount,
		"successRate", result.SuccessRate)
	return result, nil
}
