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

package ingestion

import (
	"errors"
	"sort"

	"github.com/chariotdata/dealersync/internal/vendorfeed"
)

// ErrNoCandidates indicates a dataset listing returned no export files. This
// is expected when the vendor has not produced an export yet; callers skip
// the dataset and continue.
var ErrNoCandidates = errors.New("no candidate export files")

// SelectSnapshot picks the single file representing the current state of a
// dataset: the candidate with the newest modification time, ties broken by
// lexicographically greatest filename so repeated runs over the same listing
// always pick the same file. Older exports are never downloaded, which
// bounds per-dataset work to one file no matter how many timestamped exports
// accumulate upstream.
func SelectSnapshot(candidates []vendorfeed.FileInfo) (vendorfeed.FileInfo, error) {
	if len(candidates) == 0 {
		return vendorfeed.FileInfo{}, ErrNoCandidates
	}

	sorted := make([]vendorfeed.FileInfo, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return sorted[i].ModTime.After(sorted[j].ModTime)
		}
		return sorted[i].Name > sorted[j].Name
	})

	return sorted[0], nil
}
