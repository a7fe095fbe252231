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

// This package is the warehouse merge service. It reads staged vehicle
// sales exports and merges them into the analytics warehouse.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/chariotdata/dealersync/internal/setup"
	"github.com/chariotdata/dealersync/internal/warehouse"
	"github.com/chariotdata/dealersync/pkg/logging"
	"github.com/chariotdata/dealersync/pkg/observability"
	"github.com/chariotdata/dealersync/pkg/server"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	logger := logging.NewLoggerFromEnv().Named("warehouse")
	ctx = logging.WithLogger(ctx, logger)

	err := realMain(ctx)
	done()

	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("successful shutdown")
}

func realMain(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var config warehouse.Config
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	if err := observability.RegisterViews(); err != nil {
		return fmt.Errorf("failed to register views: %w", err)
	}

	mergeServer, err := warehouse.NewServer(&config, env)
	if err != nil {
		return fmt.Errorf("warehouse.NewServer: %w", err)
	}

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}
	logger.Infow("server listening", "port", config.Port)

	return srv.ServeHTTPHandler(ctx, mergeServer.Routes(ctx))
}
