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

// Package database implements the delete-then-insert merge into the
// warehouse sales table.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chariotdata/dealersync/internal/database"
	"github.com/chariotdata/dealersync/internal/warehouse/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/sethvargo/go-retry"
)

// transactor is the slice of database.DB the merge needs. Narrowed for
// tests.
type transactor interface {
	InTx(ctx context.Context, isoLevel pgx.TxIsoLevel, f func(tx pgx.Tx) error) error
}

type MergeDB struct {
	db transactor
}

func New(db *database.DB) *MergeDB {
	return &MergeDB{
		db: db,
	}
}

// MergeStats reports what one merge did.
type MergeStats struct {
	Loaded   int64 `json:"loaded"`
	Deleted  int64 `json:"deleted"`
	Inserted int64 `json:"inserted"`
}

// EnsureTargetTable creates the warehouse table if it does not exist.
func (db *MergeDB) EnsureTargetTable(ctx context.Context, table *model.Table) error {
	return db.db.InTx(ctx, pgx.ReadCommitted, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createTableSQL(table)); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table.Name, err)
		}
		return nil
	})
}

// Merge loads the records into a one-shot staging table, deletes target
// rows whose natural key matches an incoming row, and inserts the whole
// staging set. The entire protocol runs in a single transaction, so a
// failure on any step leaves the target untouched and the staging table
// gone. Re-running the same batch deletes and reinserts the same rows,
// which makes the merge idempotent. Serialization failures are retried
// with bounded exponential backoff.
func (db *MergeDB) Merge(ctx context.Context, table *model.Table, records []model.Record) (*MergeStats, error) {
	if len(records) == 0 {
		return &MergeStats{}, nil
	}

	rows := make([][]interface{}, len(records))
	for i, r := range records {
		rows[i] = r
	}

	var stats *MergeStats
	b := retry.NewExponential(500 * time.Millisecond)
	b = retry.WithMaxRetries(3, b)

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		s, err := db.mergeOnce(ctx, table, rows)
		if err != nil {
			if database.IsRetryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		stats = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (db *MergeDB) mergeOnce(ctx context.Context, table *model.Table, rows [][]interface{}) (*MergeStats, error) {
	staging := stagingTableName(table.Name)
	stats := &MergeStats{}

	err := db.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createStagingSQL(staging, table.Name)); err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		loaded, err := tx.CopyFrom(ctx, pgx.Identifier{staging}, table.ColumnNames(), pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("failed to load staging table: %w", err)
		}
		stats.Loaded = loaded

		tag, err := tx.Exec(ctx, deleteSQL(table, staging))
		if err != nil {
			return fmt.Errorf("failed to delete matching rows: %w", err)
		}
		stats.Deleted = tag.RowsAffected()

		tag, err = tx.Exec(ctx, insertSQL(table.Name, staging))
		if err != nil {
			return fmt.Errorf("failed to insert staged rows: %w", err)
		}
		stats.Inserted = tag.RowsAffected()

		if _, err := tx.Exec(ctx, dropSQL(staging)); err != nil {
			return fmt.Errorf("failed to drop staging table: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// stagingTableName builds a per-run staging table name so concurrent
// merges of different tables never collide.
func stagingTableName(target string) string {
	return fmt.Sprintf("%s_stage_%s", target, strings.ReplaceAll(uuid.New().String(), "-", ""))
}

func sqlType(k model.Kind) string {
	switch k {
	case model.KindDecimal:
		return "NUMERIC"
	case model.KindTimestamp:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func createTableSQL(table *model.Table) string {
	cols := make([]string, len(table.Fields))
	for i, f := range table.Fields {
		cols[i] = fmt.Sprintf("%s %s", f.Name, sqlType(f.Kind))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table.Name, strings.Join(cols, ", "))
}

func createStagingSQL(staging, target string) string {
	return fmt.Sprintf("CREATE TABLE %s (LIKE %s)", staging, target)
}

func deleteSQL(table *model.Table, staging string) string {
	preds := make([]string, len(table.Key))
	for i, k := range table.Key {
		preds[i] = fmt.Sprintf("%s.%s = %s.%s", table.Name, k, staging, k)
	}
	return fmt.Sprintf("DELETE FROM %s USING %s WHERE %s",
		table.Name, staging, strings.Join(preds, " AND "))
}

func insertSQL(target, staging string) string {
	return fmt.Sprintf("INSERT INTO %s SELECT * FROM %s", target, staging)
}

func dropSQL(staging string) string {
	return fmt.Sprintf("DROP TABLE %s", staging)
}
