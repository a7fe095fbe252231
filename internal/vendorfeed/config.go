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

package vendorfeed

import "time"

// Config holds the connection parameters for the vendor SFTP endpoint. DMS
// vendors use password authentication, not keys, due to legacy
// infrastructure on their side.
type Config struct {
	Host          string        `env:"SFTP_HOST, required"`
	Port          int           `env:"SFTP_PORT, default=22"`
	User          string        `env:"SFTP_USER, required"`
	Password      string        `env:"SFTP_PASSWORD, required"`
	BaseDirectory string        `env:"SFTP_BASE_DIRECTORY, default=daily_exports"`
	DialTimeout   time.Duration `env:"SFTP_DIAL_TIMEOUT, default=30s"`

	// MaxFileBytes bounds a single export download. 256mb default.
	MaxFileBytes int64 `env:"SFTP_MAX_FILE_BYTES, default=268435456"`
}

// VendorFeedConfig satisfies the setup provider pattern for job configs that
// embed this config.
func (c *Config) VendorFeedConfig() *Config {
	return c
}
