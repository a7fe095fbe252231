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
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/chariotdata/dealersync/internal/storage"
	"github.com/chariotdata/dealersync/pkg/logging"
)

// Ledger tracks which deals have already been delivered for a scope.
// Delivery is at-least-once: a crash between publish and Commit means the
// next run re-sends, and the deterministic message IDs make that safe.
type Ledger interface {
	// Load returns the delivered deal numbers for the scope. A scope with
	// no history returns an empty set.
	Load(ctx context.Context, scope string) (map[string]struct{}, error)

	// Commit merges the newly delivered IDs into the existing set and
	// persists the result.
	Commit(ctx context.Context, scope string, newIDs []string, existing map[string]struct{}) error
}

// Compile-time check to verify implements interface.
var _ Ledger = (*BlobLedger)(nil)

// BlobLedger stores one JSON array of deal numbers per scope in the
// blobstore.
type BlobLedger struct {
	blobstore storage.Blobstore
	bucket    string
}

// NewBlobLedger creates a ledger backed by the given bucket.
func NewBlobLedger(blobstore storage.Blobstore, bucket string) *BlobLedger {
	return &BlobLedger{
		blobstore: blobstore,
		bucket:    bucket,
	}
}

func ledgerKey(scope string) string {
	return fmt.Sprintf("processed_events/%s_processed_events.json", scope)
}

func (l *BlobLedger) Load(ctx context.Context, scope string) (map[string]struct{}, error) {
	logger := logging.FromContext(ctx)

	contents, err := l.blobstore.GetObject(ctx, l.bucket, ledgerKey(scope))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Infow("no delivery ledger yet, starting fresh", "scope", scope)
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("failed to load ledger for %s: %w", scope, err)
	}

	var ids []string
	if err := json.Unmarshal(contents, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse ledger for %s: %w", scope, err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func (l *BlobLedger) Commit(ctx context.Context, scope string, newIDs []string, existing map[string]struct{}) error {
	merged := make(map[string]struct{}, len(existing)+len(newIDs))
	for id := range existing {
		merged[id] = struct{}{}
	}
	for _, id := range newIDs {
		merged[id] = struct{}{}
	}

	ids := make([]string, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	contents, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger for %s: %w", scope, err)
	}

	metadata := map[string]string{"content-type": "application/json"}
	if err := l.blobstore.CreateObject(ctx, l.bucket, ledgerKey(scope), contents, metadata); err != nil {
		return fmt.Errorf("failed to write ledger for %s: %w", scope, err)
	}
	return nil
}
