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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Compile-time check to verify implements interface.
var _ Blobstore = (*FilesystemStorage)(nil)

// FilesystemStorage implements Blobstore and provides the ability to write
// files to the filesystem. Metadata is discarded; this backend exists for
// local development and testing.
type FilesystemStorage struct{}

// NewFilesystemStorage creates a Blobstore compatible storage for the
// filesystem.
func NewFilesystemStorage(_ context.Context) (Blobstore, error) {
	return &FilesystemStorage{}, nil
}

// CreateObject creates a new object on the filesystem or overwrites an
// existing one.
func (s *FilesystemStorage) CreateObject(_ context.Context, folder, filename string, contents []byte, _ map[string]string) error {
	pth := filepath.Join(folder, filename)
	if err := os.MkdirAll(filepath.Dir(pth), 0o750); err != nil {
		return fmt.Errorf("failed to create directories for %s: %w", pth, err)
	}
	if err := os.WriteFile(pth, contents, 0o600); err != nil {
		return fmt.Errorf("storage.CreateObject: %w", err)
	}
	return nil
}

// GetObject returns the contents for the given object. If the object does not
// exist, it returns ErrNotFound.
func (s *FilesystemStorage) GetObject(_ context.Context, folder, filename string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(folder, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage.GetObject: %w", err)
	}
	return b, nil
}

// ListObjects walks the folder and returns all file keys under the prefix
// in sorted order.
func (s *FilesystemStorage) ListObjects(_ context.Context, folder, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(folder, func(pth string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(folder, pth)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage.ListObjects: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// DeleteObject deletes an object or does nothing if the object doesn't exist.
func (s *FilesystemStorage) DeleteObject(_ context.Context, folder, filename string) error {
	if err := os.Remove(filepath.Join(folder, filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage.DeleteObject: %w", err)
	}
	return nil
}
