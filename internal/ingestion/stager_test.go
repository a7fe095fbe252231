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
	"testing"
	"time"

	"github.com/chariotdata/dealersync/internal/project"
	"github.com/chariotdata/dealersync/internal/storage"
	"github.com/google/go-cmp/cmp"
)

func TestParseExportFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want *stagedObject
		err  bool
	}{
		{
			name: "encrypted",
			in:   "DMS_VehicleSales_Export_2024-05-02.csv.gpg",
			want: &stagedObject{Vendor: "DMS", Table: "VehicleSales", ExportDate: "2024-05-02"},
		},
		{
			name: "decrypted",
			in:   "DMS_Customer_Export_2024-01-31.csv",
			want: &stagedObject{Vendor: "DMS", Table: "Customer", ExportDate: "2024-01-31"},
		},
		{
			name: "wrong_extension",
			in:   "DMS_Customer_Export_2024-01-31.txt",
			err:  true,
		},
		{
			name: "no_date",
			in:   "DMS_Customer_Export.csv.gpg",
			err:  true,
		},
		{
			name: "empty",
			in:   "",
			err:  true,
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseExportFilename(tc.in)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestPartitionKey(t *testing.T) {
	t.Parallel()

	got := partitionKey("VehicleSales", "2024-05-02", "DMS_VehicleSales_Export_2024-05-02.csv")
	want := "rawdata/VehicleSales/year=2024/month=05/day=02/DMS_VehicleSales_Export_2024-05-02.csv"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStager_Stage(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	stager := NewStager(blobstore, "staging", time.Minute)

	processedDate := time.Date(2024, 5, 3, 7, 15, 0, 0, time.UTC)
	key, err := stager.Stage(ctx, "VehicleSales",
		"DMS_VehicleSales_Export_2024-05-02.csv", []byte("dealno,custno\n"), processedDate)
	if err != nil {
		t.Fatal(err)
	}

	wantKey := "rawdata/VehicleSales/year=2024/month=05/day=02/DMS_VehicleSales_Export_2024-05-02.csv"
	if key != wantKey {
		t.Errorf("expected %q, got %q", wantKey, key)
	}

	contents, err := blobstore.GetObject(ctx, "staging", wantKey)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(contents), "dealno,custno\n"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	wantMeta := map[string]string{
		"source_table":   "VehicleSales",
		"export_date":    "2024-05-02",
		"processed_date": "2024-05-03",
		"vendor":         "DMS",
	}
	if diff := cmp.Diff(wantMeta, blobstore.(*storage.Memory).Metadata("staging", wantKey)); diff != "" {
		t.Errorf("metadata mismatch (-want, +got):\n%s", diff)
	}
}

func TestStager_Stage_BadFilename(t *testing.T) {
	t.Parallel()

	ctx := project.TestContext(t)
	blobstore, err := storage.NewMemory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	stager := NewStager(blobstore, "staging", time.Minute)

	if _, err := stager.Stage(ctx, "VehicleSales", "notes.txt", []byte("x"), time.Now()); err == nil {
		t.Fatal("expected error for unparseable filename")
	}
}
