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
	"time"

	"github.com/chariotdata/dealersync/internal/pgpcrypt"
	"github.com/chariotdata/dealersync/internal/setup"
	"github.com/chariotdata/dealersync/internal/storage"
	"github.com/chariotdata/dealersync/internal/vendorfeed"
)

// Compile-time check to verify implements interface.
var _ setup.BlobstoreConfigProvider = (*Config)(nil)

// Config represents the configuration and associated environment variables
// for the ingestion server.
type Config struct {
	Storage    storage.Config
	VendorFeed vendorfeed.Config
	PGP        pgpcrypt.Config

	Port string `env:"PORT, default=8080"`

	// Bucket is the staging bucket encrypted exports are decrypted into.
	Bucket string `env:"STAGING_BUCKET, required"`

	// Datasets are the vendor export tables pulled on each run. Each
	// dataset has its own directory under the feed's base directory.
	Datasets []string `env:"DATASETS, default=Customer,Vehicle,VehicleSales,ServiceAppointments,ServiceHistory,PartsInventory,PartsSales,Employee,InventoryVehicle,SpecialOrders"`

	// DownloadTimeout bounds the fetch of a single export file.
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT, default=5m"`

	// StageTimeout bounds a single blobstore write.
	StageTimeout time.Duration `env:"STAGE_TIMEOUT, default=2m"`

	// MaxRuntime bounds a whole ingestion run across all datasets.
	MaxRuntime time.Duration `env:"MAX_RUNTIME, default=30m"`

	// MergeTriggerURL, when set, is POSTed to after at least one dataset
	// stages successfully. Empty disables the trigger.
	MergeTriggerURL     string        `env:"MERGE_TRIGGER_URL"`
	MergeTriggerTimeout time.Duration `env:"MERGE_TRIGGER_TIMEOUT, default=30s"`

	// MergeInputPath is the staged prefix sent with the merge trigger. It
	// must scope the merge to the one dataset the warehouse understands;
	// a wider prefix would feed other datasets' exports into the sales
	// schema.
	MergeInputPath string `env:"MERGE_INPUT_PATH, default=rawdata/VehicleSales/"`
}

func (c *Config) BlobstoreConfig() *storage.Config {
	return &c.Storage
}
