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
	"time"

	"github.com/chariotdata/dealersync/internal/database"
	"github.com/chariotdata/dealersync/internal/setup"
	"github.com/chariotdata/dealersync/internal/storage"
)

// Compile-time check to verify implements interface.
var (
	_ setup.DatabaseConfigProvider  = (*Config)(nil)
	_ setup.BlobstoreConfigProvider = (*Config)(nil)
)

// Config represents the configuration and associated environment variables
// for the delivery server.
type Config struct {
	Database database.Config
	Storage  storage.Config

	Port string `env:"PORT, default=8080"`

	// Bucket holds the per-scope delivery ledgers.
	Bucket string `env:"PROCESSED_EVENTS_BUCKET, required"`

	// DestinationURL is the track-event endpoint.
	DestinationURL string `env:"SEGMENT_API_URL, default=https://api.segment.io/v1/track"`
	WriteKey       string `env:"SEGMENT_WRITE_KEY, required"`

	// SalesView is the marketing-ready view delivery reads from.
	SalesView string `env:"SALES_VIEW, default=marketing.validated_vehicle_sales"`

	// QueryLimit caps one run's candidate rows. Backlogs drain across
	// scheduled runs.
	QueryLimit int `env:"QUERY_LIMIT, default=1000"`

	// BatchSize and BatchPause rate-limit delivery.
	BatchSize  int           `env:"BATCH_SIZE, default=100"`
	BatchPause time.Duration `env:"BATCH_PAUSE, default=100ms"`

	// PublishTimeout bounds one event POST.
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT, default=30s"`
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) BlobstoreConfig() *storage.Config {
	return &c.Storage
}
