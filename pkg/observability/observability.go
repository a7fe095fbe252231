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

// Package observability provides tools for working with OpenCensus metrics.
package observability

import (
	"sync"

	"go.opencensus.io/stats/view"
)

var (
	collectedViews []*view.View
	collectionLock sync.Mutex
)

// CollectViews collects the definitions of views so that they may be
// registered in one batch at server startup.
func CollectViews(views ...*view.View) {
	collectionLock.Lock()
	defer collectionLock.Unlock()
	collectedViews = append(collectedViews, views...)
}

// AllViews returns the collected OpenCensus views.
func AllViews() []*view.View {
	collectionLock.Lock()
	defer collectionLock.Unlock()
	return collectedViews
}

// RegisterViews registers all collected views with the OpenCensus view
// subsystem. It should be called once per binary.
func RegisterViews() error {
	return view.Register(AllViews()...)
}
