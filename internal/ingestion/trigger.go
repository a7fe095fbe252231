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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TriggerRequest carries the parameters for a downstream warehouse merge.
type TriggerRequest struct {
	InputPath      string `json:"inputPath"`
	ProcessingDate string `json:"processingDate"`
}

// MergeTrigger kicks off the warehouse merge job after staging completes.
type MergeTrigger interface {
	Trigger(ctx context.Context, req *TriggerRequest) error
}

// Compile-time checks to verify implementations.
var (
	_ MergeTrigger = (*HTTPTrigger)(nil)
	_ MergeTrigger = (*NoopTrigger)(nil)
)

// HTTPTrigger posts the trigger request to the warehouse merge endpoint.
type HTTPTrigger struct {
	url    string
	client *http.Client
}

// NewHTTPTrigger creates a trigger that POSTs to the given URL.
func NewHTTPTrigger(url string, timeout time.Duration) *HTTPTrigger {
	return &HTTPTrigger{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Trigger sends the merge request. A non-2xx response is an error; the
// caller decides whether that fails the run.
func (t *HTTPTrigger) Trigger(ctx context.Context, req *TriggerRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create trigger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to trigger merge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("merge trigger returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopTrigger does nothing. Used when the merge job runs on its own
// schedule.
type NoopTrigger struct{}

// Trigger is a no-op.
func (t *NoopTrigger) Trigger(_ context.Context, _ *TriggerRequest) error {
	return nil
}
