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

// Package storage is an interface over blob storage.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indicates that the requested object was not found in the
// blobstore. Callers treat this as an expected condition, not a failure.
var ErrNotFound = errors.New("storage object not found")

// Blobstore defines the minimum interface for a blob storage system.
type Blobstore interface {
	// CreateObject creates or overwrites an object in the storage system.
	// Writing the same key twice is an idempotent overwrite. The metadata map
	// is attached to the object where the backend supports it.
	CreateObject(ctx context.Context, bucket, objectName string, contents []byte, metadata map[string]string) error

	// GetObject returns the contents of the object, or ErrNotFound if no
	// object exists under the key.
	GetObject(ctx context.Context, bucket, objectName string) ([]byte, error)

	// ListObjects returns the keys of all objects under the given prefix,
	// sorted lexicographically. A prefix with no objects returns an empty
	// list, not an error.
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)

	// DeleteObject deletes an object or does nothing if the object doesn't
	// exist.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// BlobstoreFor returns the blobstore for the given type, or an error if one
// does not exist.
func BlobstoreFor(ctx context.Context, typ BlobstoreType) (Blobstore, error) {
	switch typ {
	case BlobstoreTypeAWSS3:
		return NewAWSS3(ctx)
	case BlobstoreTypeFilesystem:
		return NewFilesystemStorage(ctx)
	case BlobstoreTypeMemory:
		return NewMemory(ctx)
	default:
		return nil, fmt.Errorf("unknown blobstore type: %v", typ)
	}
}
