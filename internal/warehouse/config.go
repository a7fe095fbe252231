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

package warehouse

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
// for the warehouse merge server.
type Config struct {
	Database database.Config
	Storage  storage.Config

	Port string `env:"PORT, default=8080"`

	// Bucket is the staging bucket holding decrypted exports.
	Bucket string `env:"STAGING_BUCKET, required"`

	// InputPrefix is the default object prefix merged when a trigger does
	// not name one. All calendar partitions under it are read.
	InputPrefix string `env:"INPUT_PREFIX, default=rawdata/VehicleSales/"`

	// MergeTimeout bounds the whole load-delete-insert transaction,
	// including retries.
	MergeTimeout time.Duration `env:"MERGE_TIMEOUT, default=10m"`

	// ReadTimeout bounds a single blobstore read.
	ReadTimeout time.Duration `env:"READ_TIMEOUT, default=2m"`
}

func (c *Config) DatabaseConfig() *database.Config {
	return &c.Database
}

func (c *Config) BlobstoreConfig() *storage.Config {
	return &c.Storage
}
