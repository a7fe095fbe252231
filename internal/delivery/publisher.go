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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chariotdata/dealersync/internal/delivery/model"
	"github.com/sethvargo/go-retry"
)

const publisherUserAgent = "dealersync-delivery/2.0.0"

// Publisher sends track events to the destination HTTP API.
type Publisher struct {
	url      string
	writeKey string
	client   *http.Client
}

// NewPublisher creates a publisher for the given endpoint.
func NewPublisher(url, writeKey string, timeout time.Duration) *Publisher {
	return &Publisher{
		url:      url,
		writeKey: writeKey,
		client:   &http.Client{Timeout: timeout},
	}
}

// Publish sends one event. Transport errors are retried with bounded
// exponential backoff; a non-200 response is a terminal failure for this
// run. The caller's event is not mutated; the write key is attached to a
// copy.
func (p *Publisher) Publish(ctx context.Context, event *model.TrackEvent) error {
	authed := *event
	authed.WriteKey = p.writeKey

	body, err := json.Marshal(&authed)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.MessageID, err)
	}

	b := retry.WithMaxRetries(3, retry.NewExponential(250*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", publisherUserAgent)

		resp, err := p.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to send event %s: %w", event.MessageID, err))
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("destination returned status %d for event %s", resp.StatusCode, event.MessageID)
		}
		return nil
	})
}
