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

// Package model holds the warehouse table definitions and the coercion
// rules that turn raw DMS export strings into typed values.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chariotdata/dealersync/internal/project"
)

// Kind is the warehouse type of a column. DMS exports carry every field
// as a string; the kind drives coercion.
type Kind int

const (
	KindString Kind = iota
	KindDecimal
	KindTimestamp
)

// Field is one column of a warehouse table.
type Field struct {
	Name string
	Kind Kind
}

// Table describes a warehouse table: its columns in DDL order and the
// natural key used for the delete-then-insert merge.
type Table struct {
	Name string
	Key  []string

	// Required columns must be non-empty; rows missing one are dropped
	// during parse.
	Required []string

	Fields []Field

	index map[string]int
}

// NewTable builds a Table and its column index.
func NewTable(name string, key, required []string, fields []Field) *Table {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &Table{Name: name, Key: key, Required: required, Fields: fields, index: index}
}

// Index returns the column position for the named field, or -1.
func (t *Table) Index(name string) int {
	i, ok := t.index[name]
	if !ok {
		return -1
	}
	return i
}

// ColumnNames returns the column names in DDL order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Record is one coerced row. Values align with the table's fields and are
// nil, string, float64, or time.Time.
type Record []interface{}

// timestampLayouts are tried in order. DMS exports mix full timestamps
// and date-only values depending on the column and the export tool
// version.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Coerce converts a raw CSV string into the typed value for the field.
// Values are trimmed of whitespace, BOMs, and stray control characters;
// empty strings become NULL for every kind.
func Coerce(f Field, raw string) (interface{}, error) {
	raw = project.TrimSpaceAndNonPrintable(raw)
	if raw == "" {
		return nil, nil
	}

	switch f.Kind {
	case KindString:
		return raw, nil
	case KindDecimal:
		v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("field %s: invalid decimal %q", f.Name, raw)
		}
		return v, nil
	case KindTimestamp:
		for _, layout := range timestampLayouts {
			if v, err := time.Parse(layout, raw); err == nil {
				return v.UTC(), nil
			}
		}
		return nil, fmt.Errorf("field %s: invalid timestamp %q", f.Name, raw)
	default:
		return nil, fmt.Errorf("field %s: unknown kind %d", f.Name, f.Kind)
	}
}

// VehicleSales is the merged vehicle sales table. Identifiers stay
// strings to preserve leading zeros; money and mileage columns are
// decimals; the key retains rowlastupdatedutc so amended deals keep
// their history as separate rows.
var VehicleSales = NewTable("vehicle_sales",
	[]string{"dealno", "custno", "vin", "rowlastupdatedutc"},
	[]string{"vin", "custno", "salesdate"},
	[]Field{
		{"dealno", KindString},
		{"mbicarrier", KindString},
		{"accountingaccount", KindString},
		{"dealtype", KindString},
		{"email1", KindString},
		{"homephone", KindString},
		{"custno", KindString},
		{"city", KindString},
		{"state", KindString},
		{"frontgross", KindDecimal},
		{"backgross", KindDecimal},
		{"contractdate", KindTimestamp},
		{"salesdate", KindTimestamp},
		{"weowesaletotal", KindDecimal},
		{"ziporpostalcode", KindString},
		{"crmsalesmgrname", KindString},
		{"crmsp1name", KindString},
		{"customercashdown", KindDecimal},
		{"vin", KindString},
		{"address", KindString},
		{"apr", KindDecimal},
		{"branch", KindString},
		{"warrantyfee", KindDecimal},
		{"year", KindString},
		{"makename", KindString},
		{"modelname", KindString},
		{"cashprice", KindDecimal},
		{"totalgross", KindDecimal},
		{"color", KindString},
		{"paymentamt", KindDecimal},
		{"outthedoorprice", KindDecimal},
		{"costprice", KindDecimal},
		{"grossprofit", KindDecimal},
		{"saletype", KindString},
		{"trade1vin", KindString},
		{"trade1acv", KindDecimal},
		{"trade1payoff", KindDecimal},
		{"trade1year", KindString},
		{"nettrade1", KindDecimal},
		{"rowlastupdatedutc", KindTimestamp},
		{"stockno", KindString},
		{"bodystyle", KindString},
		{"vehiclemileage", KindDecimal},
		{"modeltype", KindString},
		{"fidealtype", KindString},
		{"term", KindDecimal},
		{"financesource", KindString},
		{"financeamt", KindDecimal},
		{"totaldown", KindDecimal},
		{"payments", KindDecimal},
		{"trade1makename", KindString},
		{"trade1modelname", KindString},
		{"trade1mileage", KindDecimal},
		{"totaltradeallowance", KindDecimal},
		{"leasetype", KindString},
		{"cora_acct_code", KindString},
		{"leasepayment", KindDecimal},
		{"leasemileageallowance", KindDecimal},
		{"leaseendvalue", KindDecimal},
	})
