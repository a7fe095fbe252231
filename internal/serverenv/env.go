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

// Package serverenv defines common parameters for the server environment.
package serverenv

import (
	"context"

	"github.com/chariotdata/dealersync/internal/database"
	"github.com/chariotdata/dealersync/internal/storage"
)

// ServerEnv represents latent environment configuration for servers in this
// application. Components are assembled once at startup and passed into each
// job explicitly; nothing here is a process-wide mutable global.
type ServerEnv struct {
	database  *database.DB
	blobstore storage.Blobstore
}

// Option defines function types to modify the ServerEnv on creation.
type Option func(*ServerEnv) *ServerEnv

// New creates a new ServerEnv with the requested options.
func New(ctx context.Context, opts ...Option) *ServerEnv {
	env := &ServerEnv{}

	for _, f := range opts {
		env = f(env)
	}

	return env
}

// WithDatabase attaches a database to the environment.
func WithDatabase(db *database.DB) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.database = db
		return s
	}
}

// WithBlobstore attaches a blobstore to the environment.
func WithBlobstore(bs storage.Blobstore) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.blobstore = bs
		return s
	}
}

// Database returns the database in the environment, if one exists.
func (s *ServerEnv) Database() *database.DB {
	return s.database
}

// Blobstore returns the blobstore in the environment, if one exists.
func (s *ServerEnv) Blobstore() storage.Blobstore {
	return s.blobstore
}

// Close shuts down the server env, closing database connections. It should
// be deferred on every exit path after a successful Setup.
func (s *ServerEnv) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}

	if s.database != nil {
		s.database.Close(ctx)
	}

	return nil
}
