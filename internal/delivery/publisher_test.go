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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chariotdata/dealersync/internal/delivery/model"
	"github.com/chariotdata/dealersync/internal/project"
)

func testEvent() *model.TrackEvent {
	sale := &model.Sale{DealNumber: "D1", UserID: "C1", VIN: "V1"}
	return sale.TrackEvent(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	var got model.TrackEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	p := NewPublisher(srv.URL, "wk_test", time.Second)
	event := testEvent()
	if err := p.Publish(ctx, event); err != nil {
		t.Fatal(err)
	}

	if got.WriteKey != "wk_test" {
		t.Errorf("expected write key attached, got %q", got.WriteKey)
	}
	if got.MessageID != event.MessageID {
		t.Errorf("expected message id %q, got %q", event.MessageID, got.MessageID)
	}
	if event.WriteKey != "" {
		t.Errorf("publish mutated the caller's event: %q", event.WriteKey)
	}
}

func TestPublisher_Non200IsFailure(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	p := NewPublisher(srv.URL, "wk_test", time.Second)
	if err := p.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected no retry on HTTP rejection, got %d calls", n)
	}
}

func TestPublisher_RetriesTransportErrors(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)

	// A server that closes the connection on the first attempt and
	// accepts the second.
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatal(err)
			}
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	p := NewPublisher(srv.URL, "wk_test", time.Second)
	if err := p.Publish(ctx, testEvent()); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}
