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

package storage

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*Memory)(nil)

// Memory implements Blobstore and writes objects to memory. Used in tests.
type Memory struct {
	lock     sync.Mutex
	data     map[string][]byte
	metadata map[string]map[string]string
}

// NewMemory creates a Blobstore that writes data in memory.
func NewMemory(_ context.Context) (Blobstore, error) {
	return &Memory{
		data:     make(map[string][]byte),
		metadata: make(map[string]map[string]string),
	}, nil
}

// CreateObject creates a new object.
func (s *Memory) CreateObject(_ context.Context, folder, filename string, contents []byte, metadata map[string]string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	pth := path.Join(folder, filename)
	s.data[pth] = contents
	s.metadata[pth] = metadata
	return nil
}

// GetObject returns the contents for the given object. If the object does not
// exist, it returns ErrNotFound.
func (s *Memory) GetObject(_ context.Context, folder, filename string) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	pth := path.Join(folder, filename)
	v, ok := s.data[pth]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// ListObjects returns the keys under the prefix in sorted order.
func (s *Memory) ListObjects(_ context.Context, folder, prefix string) ([]string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	full := path.Join(folder, prefix)
	// path.Join strips a trailing separator, which is significant in a
	// prefix match.
	if strings.HasSuffix(prefix, "/") {
		full += "/"
	}

	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, folder+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteObject deletes an object. It returns nil if the object was deleted or
// if the object no longer exists.
func (s *Memory) DeleteObject(_ context.Context, folder, filename string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	pth := path.Join(folder, filename)
	delete(s.data, pth)
	delete(s.metadata, pth)
	return nil
}

// Metadata returns the metadata stored alongside the given object, or nil.
func (s *Memory) Metadata(folder, filename string) map[string]string {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.metadata[path.Join(folder, filename)]
}

// Keys returns the object keys currently in the store.
func (s *Memory) Keys() []string {
	s.lock.Lock()
	defer s.lock.Unlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}
