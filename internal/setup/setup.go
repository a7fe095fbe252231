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

// Package setup provides common logic for configuring the various services.
package setup

import (
	"context"
	"fmt"

	"github.com/chariotdata/dealersync/internal/database"
	"github.com/chariotdata/dealersync/internal/serverenv"
	"github.com/chariotdata/dealersync/internal/storage"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/sethvargo/go-envconfig"
)

// DatabaseConfigProvider ensures that the environment config can provide a DB
// config. All binaries that connect to the warehouse do so via this method.
type DatabaseConfigProvider interface {
	DatabaseConfig() *database.Config
}

// BlobstoreConfigProvider provides the information about the blobstore.
type BlobstoreConfigProvider interface {
	BlobstoreConfig() *storage.Config
}

// Setup processes the given configuration using envconfig and assembles the
// server environment. Missing required configuration is fatal here, before
// any work begins.
func Setup(ctx context.Context, config interface{}) (*serverenv.ServerEnv, error) {
	return SetupWith(ctx, config, envconfig.OsLookuper())
}

// SetupWith processes the given configuration using the given lookuper. This
// allows tests to inject their own configuration values.
func SetupWith(ctx context.Context, config interface{}, l envconfig.Lookuper) (*serverenv.ServerEnv, error) {
	logger := logging.FromContext(ctx)

	if err := envconfig.ProcessWith(ctx, config, l); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}
	logger.Infow("provided", "config", config)

	var opts []serverenv.Option

	// Configure blob storage.
	if provider, ok := config.(BlobstoreConfigProvider); ok {
		cfg := provider.BlobstoreConfig()
		logger.Infow("configuring blobstore", "type", cfg.Type)

		blobstore, err := storage.BlobstoreFor(ctx, cfg.Type)
		if err != nil {
			return nil, fmt.Errorf("unable to connect to storage system: %w", err)
		}
		opts = append(opts, serverenv.WithBlobstore(blobstore))
	}

	// Configure the database connection last so an earlier failure does not
	// leak an open pool.
	if provider, ok := config.(DatabaseConfigProvider); ok {
		logger.Infow("configuring database")

		db, err := database.NewFromEnv(ctx, provider.DatabaseConfig())
		if err != nil {
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		opts = append(opts, serverenv.WithDatabase(db))
	}

	return serverenv.New(ctx, opts...), nil
}
