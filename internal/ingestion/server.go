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

// Package ingestion pulls encrypted vendor exports over SFTP, decrypts
// them, and stages the plaintext into a partitioned raw bucket.
package ingestion

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chariotdata/dealersync/internal/pgpcrypt"
	"github.com/chariotdata/dealersync/internal/serverenv"
	"github.com/chariotdata/dealersync/internal/vendorfeed"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/chariotdata/dealersync/pkg/render"
	"github.com/chariotdata/dealersync/pkg/server"
	"github.com/gorilla/mux"
)

// Decryptor decrypts a single vendor export.
type Decryptor interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// FeedFactory opens a connection to the vendor feed. Each run gets a
// fresh connection.
type FeedFactory func(ctx context.Context) (vendorfeed.Feed, error)

// Server is the ingestion server.
type Server struct {
	config      *Config
	env         *serverenv.ServerEnv
	feedFactory FeedFactory
	decryptor   Decryptor
	trigger     MergeTrigger
	h           *render.Renderer
}

// NewServer makes a new ingestion server.
func NewServer(cfg *Config, env *serverenv.ServerEnv) (*Server, error) {
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("missing blobstore in server environment")
	}

	decryptor, err := pgpcrypt.NewDecryptor(&cfg.PGP)
	if err != nil {
		return nil, fmt.Errorf("failed to create decryptor: %w", err)
	}

	var trigger MergeTrigger = &NoopTrigger{}
	if cfg.MergeTriggerURL != "" {
		trigger = NewHTTPTrigger(cfg.MergeTriggerURL, cfg.MergeTriggerTimeout)
	}

	return &Server{
		config: cfg,
		env:    env,
		feedFactory: func(ctx context.Context) (vendorfeed.Feed, error) {
			return vendorfeed.Connect(ctx, &cfg.VendorFeed)
		},
		decryptor: decryptor,
		trigger:   trigger,
		h:         render.NewRenderer(),
	}, nil
}

// Routes defines and returns the routes for this server.
func (s *Server) Routes(ctx context.Context) *mux.Router {
	logger := logging.FromContext(ctx).Named("ingestion")

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Handle("/health", server.HandleHealthz(nil))
	r.Handle("/", s.handleIngest())
	return r
}

// handleIngest runs a full ingestion pass across all configured datasets.
func (s *Server) handleIngest() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		result, err := s.runIngestion(ctx)
		if err != nil {
			logger.Errorw("ingestion run failed", "error", err)
			s.h.RenderJSON(w, http.StatusInternalServerError, err)
			return
		}
		s.h.RenderJSON(w, http.StatusOK, result)
	})
}
