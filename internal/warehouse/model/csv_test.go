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

package model

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// testTable is a narrow table so tests stay readable.
var testTable = NewTable("sales_test",
	[]string{"dealno", "vin"},
	[]string{"vin", "custno", "salesdate"},
	[]Field{
		{"dealno", KindString},
		{"custno", KindString},
		{"vin", KindString},
		{"frontgross", KindDecimal},
		{"salesdate", KindTimestamp},
	})

func TestParseCSV(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"DealNo,CustNo,VIN,FrontGross,SalesDate,Extra",
		`D1,C1,V1,1250.50,2024-05-02,ignored`,
		`D2,C2,V2,,2024-05-01 08:30:00,ignored`,
	}, "\n")

	records, report, err := ParseCSV(strings.NewReader(in), testTable)
	if err != nil {
		t.Fatal(err)
	}

	want := []Record{
		{"D1", "C1", "V1", 1250.50, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		{"D2", "C2", "V2", nil, time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want, +got):\n%s", diff)
	}
	if report.Rows != 2 || report.Kept != 2 || report.DroppedIncomplete != 0 || report.DroppedMalformed != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
}

// A BOM before the first header cell must not lose that column. dealno is
// a merge-key column; loading it as NULL would defeat the delete predicate
// and duplicate rows on re-merge.
func TestParseCSV_HeaderBOM(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"\ufeffdealno,custno,vin,frontgross,salesdate",
		`D1,C1,V1,100,2024-05-02`,
	}, "\n")

	records, report, err := ParseCSV(strings.NewReader(in), testTable)
	if err != nil {
		t.Fatal(err)
	}
	if report.Kept != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if got := records[0][testTable.Index("dealno")]; got != "D1" {
		t.Errorf("dealno = %v, want %q", got, "D1")
	}
}

func TestParseCSV_DropsIncompleteRows(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"dealno,custno,vin,frontgross,salesdate",
		`D1,C1,V1,100,2024-05-02`,
		`D2,,V2,100,2024-05-02`,
		`D3,C3,,100,2024-05-02`,
		`D4,C4,V4,100,`,
	}, "\n")

	records, report, err := ParseCSV(strings.NewReader(in), testTable)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 kept record, got %d", len(records))
	}
	if report.DroppedIncomplete != 3 {
		t.Errorf("expected 3 incomplete rows dropped, got %+v", report)
	}
}

func TestParseCSV_DropsMalformedRows(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"dealno,custno,vin,frontgross,salesdate",
		`D1,C1,V1,not-a-number,2024-05-02`,
		`D2,C2,V2,100,2024-05-02`,
	}, "\n")

	records, report, err := ParseCSV(strings.NewReader(in), testTable)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 kept record, got %d", len(records))
	}
	if report.DroppedMalformed != 1 {
		t.Errorf("expected 1 malformed row dropped, got %+v", report)
	}
}

func TestParseCSV_MissingColumnLoadsNull(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"dealno,custno,vin,salesdate",
		`D1,C1,V1,2024-05-02`,
	}, "\n")

	records, _, err := ParseCSV(strings.NewReader(in), testTable)
	if err != nil {
		t.Fatal(err)
	}
	if got := records[0][testTable.Index("frontgross")]; got != nil {
		t.Errorf("expected NULL for absent column, got %v", got)
	}
}

func TestParseCSV_QuotedFields(t *testing.T) {
	t.Parallel()

	in := strings.Join([]string{
		"dealno,custno,vin,frontgross,salesdate",
		`D1,C1,V1,"1,250.50",2024-05-02`,
	}, "\n")

	records, _, err := ParseCSV(strings.NewReader(in), testTable)
	if err != nil {
		t.Fatal(err)
	}
	if got := records[0][testTable.Index("frontgross")]; got != 1250.50 {
		t.Errorf("expected 1250.50, got %v", got)
	}
}

func TestParseCSV_Empty(t *testing.T) {
	t.Parallel()

	if _, _, err := ParseCSV(strings.NewReader(""), testTable); err == nil {
		t.Fatal("expected error for empty export")
	}
}
