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

// Package warehouse merges staged vehicle sales exports into the
// analytics warehouse.
package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/chariotdata/dealersync/internal/serverenv"
	warehousedb "github.com/chariotdata/dealersync/internal/warehouse/database"
	"github.com/chariotdata/dealersync/internal/warehouse/model"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/chariotdata/dealersync/pkg/render"
	"github.com/chariotdata/dealersync/pkg/server"
	"github.com/gorilla/mux"
)

// merger is the database surface the server uses, narrowed for tests.
type merger interface {
	EnsureTargetTable(ctx context.Context, table *model.Table) error
	Merge(ctx context.Context, table *model.Table, records []model.Record) (*warehousedb.MergeStats, error)
}

// Server is the warehouse merge server.
type Server struct {
	config  *Config
	env     *serverenv.ServerEnv
	mergeDB merger
	h       *render.Renderer
}

// NewServer makes a new warehouse merge server.
func NewServer(cfg *Config, env *serverenv.ServerEnv) (*Server, error) {
	if env.Database() == nil {
		return nil, fmt.Errorf("missing database in server environment")
	}
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("missing blobstore in server environment")
	}

	return &Server{
		config:  cfg,
		env:     env,
		mergeDB: warehousedb.New(env.Database()),
		h:       render.NewRenderer(),
	}, nil
}

// Routes defines and returns the routes for this server.
func (s *Server) Routes(ctx context.Context) *mux.Router {
	logger := logging.FromContext(ctx).Named("warehouse")

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Handle("/health", server.HandleHealthz(s.env.Database()))
	r.Handle("/", s.handleMerge())
	return r
}

// handleMerge runs one merge pass. The request body is an optional
// MergeRequest; an empty body merges the configured default prefix.
func (s *Server) handleMerge() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		var req MergeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.h.RenderJSON(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}

		result, err := s.runMerge(ctx, &req)
		if err != nil {
			logger.Errorw("merge run failed", "error", err)
			s.h.RenderJSON(w, http.StatusInternalServerError, err)
			return
		}
		s.h.RenderJSON(w, http.StatusOK, result)
	})
}
