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
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/chariotdata/dealersync/internal/project"
)

// ParseReport counts the fate of each data row in one export.
type ParseReport struct {
	Rows              int `json:"rows"`
	Kept              int `json:"kept"`
	DroppedIncomplete int `json:"droppedIncomplete"`
	DroppedMalformed  int `json:"droppedMalformed"`
}

// ParseCSV reads a header-first DMS export and coerces each row into a
// Record aligned with the table's columns. Columns absent from the export
// load as NULL. Rows missing a required column or carrying a malformed
// typed value are dropped and counted; they never abort the file.
func ParseCSV(r io.Reader, table *Table) ([]Record, *ParseReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("export is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map each table column to its position in this export. Header cells
	// are trimmed of BOMs and control characters, not just whitespace; a
	// BOM on the first cell would otherwise lose that column and load its
	// values as NULL.
	positions := make([]int, len(table.Fields))
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(project.TrimSpaceAndNonPrintable(h))] = i
	}
	for i, f := range table.Fields {
		pos, ok := byName[f.Name]
		if !ok {
			pos = -1
		}
		positions[i] = pos
	}

	report := &ParseReport{}
	var records []Record

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", report.Rows+1, err)
		}
		report.Rows++

		record := make(Record, len(table.Fields))
		malformed := false
		for i, f := range table.Fields {
			pos := positions[i]
			if pos < 0 || pos >= len(row) {
				continue
			}
			v, err := Coerce(f, row[pos])
			if err != nil {
				malformed = true
				break
			}
			record[i] = v
		}
		if malformed {
			report.DroppedMalformed++
			continue
		}

		complete := true
		for _, name := range table.Required {
			if i := table.Index(name); i < 0 || record[i] == nil {
				complete = false
				break
			}
		}
		if !complete {
			report.DroppedIncomplete++
			continue
		}

		records = append(records, record)
		report.Kept++
	}

	return records, report, nil
}
