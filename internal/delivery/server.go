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

// Package delivery streams merged vehicle sales to the marketing
// destination as deduplicated track events.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	deliverydb "github.com/chariotdata/dealersync/internal/delivery/database"
	"github.com/chariotdata/dealersync/internal/delivery/model"
	"github.com/chariotdata/dealersync/internal/serverenv"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/chariotdata/dealersync/pkg/render"
	"github.com/chariotdata/dealersync/pkg/server"
	"github.com/gorilla/mux"
)

// salesSource and eventPublisher narrow the run's dependencies for tests.
type salesSource interface {
	UnsentSales(ctx context.Context, startDate, endDate string, exclude []string, limit int) ([]*model.Sale, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event *model.TrackEvent) error
}

// Server is the delivery server.
type Server struct {
	config    *Config
	env       *serverenv.ServerEnv
	salesDB   salesSource
	publisher eventPublisher
	ledger    Ledger
	h         *render.Renderer
}

// NewServer makes a new delivery server.
func NewServer(cfg *Config, env *serverenv.ServerEnv) (*Server, error) {
	if env.Database() == nil {
		return nil, fmt.Errorf("missing database in server environment")
	}
	if env.Blobstore() == nil {
		return nil, fmt.Errorf("missing blobstore in server environment")
	}

	return &Server{
		config:    cfg,
		env:       env,
		salesDB:   deliverydb.New(env.Database(), cfg.SalesView),
		publisher: NewPublisher(cfg.DestinationURL, cfg.WriteKey, cfg.PublishTimeout),
		ledger:    NewBlobLedger(env.Blobstore(), cfg.Bucket),
		h:         render.NewRenderer(),
	}, nil
}

// Routes defines and returns the routes for this server.
func (s *Server) Routes(ctx context.Context) *mux.Router {
	logger := logging.FromContext(ctx).Named("delivery")

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Handle("/health", server.HandleHealthz(s.env.Database()))
	r.Handle("/", s.handleDeliver())
	return r
}

// handleDeliver runs one delivery pass. The request body is an optional
// DeliverRequest; an empty body delivers yesterday's sales for the
// default scope.
func (s *Server) handleDeliver() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		var req DeliverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			s.h.RenderJSON(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}

		result, err := s.runDelivery(ctx, &req)
		if err != nil {
			logger.Errorw("delivery run failed", "error", err)
			s.h.RenderJSON(w, http.StatusInternalServerError, err)
			return
		}
		s.h.RenderJSON(w, http.StatusOK, result)
	})
}
