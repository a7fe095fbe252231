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

package storage

// BlobstoreType defines a specific blobstore.
type BlobstoreType string

const (
	BlobstoreTypeAWSS3      BlobstoreType = "AWS_S3"
	BlobstoreTypeFilesystem BlobstoreType = "FILESYSTEM"
	BlobstoreTypeMemory     BlobstoreType = "MEMORY"
)

// Config defines the configuration for a blobstore.
type Config struct {
	Type BlobstoreType `env:"BLOBSTORE, default=AWS_S3"`
}

// BlobstoreConfig satisfies the setup.BlobstoreConfigProvider interface when
// embedded in a server config.
func (c *Config) BlobstoreConfig() *Config {
	return c
}
