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
	"sync"
	"testing"

	"github.com/chariotdata/dealersync/internal/delivery/model"
	"github.com/chariotdata/dealersync/internal/project"
	"github.com/chariotdata/dealersync/internal/serverenv"
	"github.com/chariotdata/dealersync/internal/storage"
	"github.com/chariotdata/dealersync/pkg/render"
)

// fakeSales serves canned rows, honoring the exclusion set and limit the
// way the SQL query does.
type fakeSales struct {
	sales []*model.Sale
}

func (f *fakeSales) UnsentSales(_ context.Context, _, _ string, exclude []string, limit int) ([]*model.Sale, error) {
	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	var out []*model.Sale
	for _, s := range f.sales {
		if _, ok := excluded[s.DealNumber]; ok {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

// fakePublisher accepts everything except deals listed in fail.
type fakePublisher struct {
	mu        sync.Mutex
	fail      map[string]struct{}
	published []*model.TrackEvent
}

func (f *fakePublisher) Publish(_ context.Context, event *model.TrackEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.fail[event.Properties.DealNumber]; ok {
		return fmt.Errorf("destination returned status 500 for event %s", event.MessageID)
	}
	f.published = append(f.published, event)
	return nil
}

func sale(deal string) *model.Sale {
	return &model.Sale{DealNumber: deal, UserID: "C_" + deal, VIN: "VIN_" + deal}
}

func testDeliveryServer(tb testing.TB, sales *fakeSales, pub *fakePublisher) *Server {
	tb.Helper()

	ctx := project.TestContext(tb)
	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		tb.Fatal(err)
	}

	return &Server{
		config: &Config{
			Bucket:     "events",
			QueryLimit: 1000,
			BatchSize:  100,
			BatchPause: 0,
		},
		env:       serverenv.New(ctx, serverenv.WithBlobstore(blobstore)),
		salesDB:   sales,
		publisher: pub,
		ledger:    NewBlobLedger(blobstore, "events"),
		h:         render.NewRenderer(),
	}
}

func TestRunDelivery(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	pub := &fakePublisher{}
	s := testDeliveryServer(t, &fakeSales{sales: []*model.Sale{sale("D1"), sale("D2")}}, pub)

	result, err := s.runDelivery(ctx, &DeliverRequest{})
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalEvents != 2 || result.SuccessfulCount != 2 || result.FailedCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.SuccessRate != 100.0 {
		t.Errorf("expected 100%% success rate, got %v", result.SuccessRate)
	}
	if result.CommittedIDs != 2 {
		t.Errorf("expected 2 committed ids, got %d", result.CommittedIDs)
	}
	if len(pub.published) != 2 {
		t.Errorf("expected 2 published events, got %d", len(pub.published))
	}
}

func TestRunDelivery_DedupAcrossRuns(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	pub := &fakePublisher{}
	s := testDeliveryServer(t, &fakeSales{sales: []*model.Sale{sale("D1"), sale("D2")}}, pub)

	if _, err := s.runDelivery(ctx, &DeliverRequest{}); err != nil {
		t.Fatal(err)
	}

	// The second run sees the committed ledger and delivers nothing.
	result, err := s.runDelivery(ctx, &DeliverRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Message != "No new events to process" {
		t.Errorf("expected empty second run, got %+v", result)
	}
	if len(pub.published) != 2 {
		t.Errorf("expected no re-delivery, got %d events", len(pub.published))
	}
}

func TestRunDelivery_FailedEventRetriesNextRun(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	pub := &fakePublisher{fail: map[string]struct{}{"D2": {}}}
	sales := &fakeSales{sales: []*model.Sale{sale("D1"), sale("D2")}}
	s := testDeliveryServer(t, sales, pub)

	result, err := s.runDelivery(ctx, &DeliverRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessfulCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.SuccessRate != 50.0 {
		t.Errorf("expected 50%% success rate, got %v", result.SuccessRate)
	}

	// The destination recovers; only the failed deal is re-sent.
	pub.mu.Lock()
	pub.fail = nil
	pub.mu.Unlock()

	result, err = s.runDelivery(ctx, &DeliverRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalEvents != 1 || result.SuccessfulCount != 1 {
		t.Fatalf("expected only the failed deal retried, got %+v", result)
	}
	if pub.published[len(pub.published)-1].Properties.DealNumber != "D2" {
		t.Errorf("expected D2 retried, got %+v", pub.published[len(pub.published)-1])
	}
}

func TestRunDelivery_DropsInvalidSale(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	pub := &fakePublisher{}
	invalid := &model.Sale{DealNumber: "D2", UserID: "", VIN: "V2"}
	s := testDeliveryServer(t, &fakeSales{sales: []*model.Sale{sale("D1"), invalid}}, pub)

	result, err := s.runDelivery(ctx, &DeliverRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessfulCount != 1 || result.FailedCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(pub.published) != 1 || pub.published[0].Properties.DealNumber != "D1" {
		t.Errorf("expected only the valid sale published, got %+v", pub.published)
	}
}

func TestRunDelivery_MaxEvents(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	pub := &fakePublisher{}
	sales := &fakeSales{sales: []*model.Sale{sale("D1"), sale("D2"), sale("D3")}}
	s := testDeliveryServer(t, sales, pub)

	result, err := s.runDelivery(ctx, &DeliverRequest{MaxEvents: 2})
	if err != nil {
		t.Fatal(err)
	}
	if result.TotalEvents != 2 || result.SuccessfulCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestRunDelivery_ScopedLedgers(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	pub := &fakePublisher{}
	sales := &fakeSales{sales: []*model.Sale{sale("D1")}}
	s := testDeliveryServer(t, sales, pub)

	if _, err := s.runDelivery(ctx, &DeliverRequest{DealershipCode: "NORTH"}); err != nil {
		t.Fatal(err)
	}

	// A different scope has its own ledger and re-delivers.
	result, err := s.runDelivery(ctx, &DeliverRequest{DealershipCode: "SOUTH"})
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessfulCount != 1 {
		t.Fatalf("expected SOUTH scope to deliver, got %+v", result)
	}
}
