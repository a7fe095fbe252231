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
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/chariotdata/dealersync/internal/storage"
)

// exportFilePattern matches vendor export filenames of the form
// VENDOR_TableName_Export_YYYY-MM-DD.csv with an optional .gpg suffix.
var exportFilePattern = regexp.MustCompile(`^([A-Za-z0-9]+)_([A-Za-z]+)_[A-Za-z]+_(\d{4})-(\d{2})-(\d{2})\.csv(\.gpg)?$`)

// stagedObject describes a staged partition write.
type stagedObject struct {
	Vendor     string
	Table      string
	ExportDate string
}

// parseExportFilename extracts provenance from a vendor export filename.
func parseExportFilename(name string) (*stagedObject, error) {
	m := exportFilePattern.FindStringSubmatch(name)
	if m == nil {
		return nil, fmt.Errorf("filename %q does not match expected vendor export pattern", name)
	}
	return &stagedObject{
		Vendor:     m[1],
		Table:      m[2],
		ExportDate: fmt.Sprintf("%s-%s-%s", m[3], m[4], m[5]),
	}, nil
}

// partitionKey builds the calendar-partitioned object key for a dataset
// export. Writing the same export date twice lands on the same key, so
// re-running a day is an idempotent overwrite rather than a duplicate
// partition.
func partitionKey(dataset, exportDate, filename string) string {
	return fmt.Sprintf("rawdata/%s/year=%s/month=%s/day=%s/%s",
		dataset, exportDate[0:4], exportDate[5:7], exportDate[8:10], filename)
}

// Stager writes decrypted exports to partitioned blob storage with
// provenance metadata.
type Stager struct {
	blobstore storage.Blobstore
	bucket    string
	timeout   time.Duration
}

// NewStager creates a stager writing to the given bucket.
func NewStager(blobstore storage.Blobstore, bucket string, timeout time.Duration) *Stager {
	return &Stager{
		blobstore: blobstore,
		bucket:    bucket,
		timeout:   timeout,
	}
}

// Stage writes the plaintext export under its calendar partition. The
// filename must be the decrypted name (no .gpg suffix); day partition fields
// derive from the export date embedded in it.
func (s *Stager) Stage(ctx context.Context, dataset, filename string, contents []byte, processedDate time.Time) (string, error) {
	obj, err := parseExportFilename(filename)
	if err != nil {
		return "", err
	}

	key := partitionKey(dataset, obj.ExportDate, filename)
	metadata := map[string]string{
		"source_table":   obj.Table,
		"export_date":    obj.ExportDate,
		"processed_date": processedDate.Format("2006-01-02"),
		"vendor":         obj.Vendor,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.blobstore.CreateObject(ctx, s.bucket, key, contents, metadata); err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", key, err)
	}
	return key, nil
}
