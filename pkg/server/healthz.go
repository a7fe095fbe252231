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

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chariotdata/dealersync/internal/database"
	"github.com/chariotdata/dealersync/pkg/logging"

	"golang.org/x/time/rate"
)

// dbPingLimiter limits when we actually ping the database to at most 1/sec to
// prevent a DOS since this is an unauthenticated endpoint.
var dbPingLimiter = rate.NewLimiter(rate.Every(1*time.Second), 1)

// HandleHealthz returns a health handler. If db is non-nil, the handler also
// verifies database connectivity, subject to the ping limiter.
func HandleHealthz(db *database.DB) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		logger := logging.FromContext(ctx).Named("server.HandleHealthz")

		if db != nil && dbPingLimiter.Allow() {
			if err := db.Ping(ctx); err != nil {
				logger.Errorw("failed to ping database", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError),
					http.StatusInternalServerError)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status": "ok"}`)
	})
}
