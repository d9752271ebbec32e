// Copyright 2023 Northern.tech AS
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package storage

import (
	"context"
	"time"

	"github.com/mendersoftware/taskqueue-artifacts/model"
)

// PutOptions bounds a signed upload credential.
type PutOptions struct {
	// ContentType the upload must carry; part of the signature.
	ContentType string
	// Expire is the credential lifetime.
	Expire time.Duration
}

// Bucket is the capability surface over an S3-compatible bucket. The
// service only brokers credentials; it never moves bytes itself.
//
//go:generate ../utils/mockgen.sh
type Bucket interface {
	HealthCheck(ctx context.Context) error

	// Name is the bucket identifier as stored in artifact details.
	Name() string
	// Region the bucket lives in.
	Region() string

	// PutRequest signs an upload URL bound to the given content type.
	PutRequest(ctx context.Context, key string,
		opts PutOptions) (*model.Link, error)
	// GetURL builds the un-signed public URL for the object. With
	// sameRegion the direct bucket host is used, bypassing the CDN.
	GetURL(key string, sameRegion bool) string
	// SignedGetRequest signs a download URL.
	SignedGetRequest(ctx context.Context, key string,
		expire time.Duration) (*model.Link, error)
}

// BlobContainer is the capability surface over an Azure blob container.
//
//go:generate ../utils/mockgen.sh
type BlobContainer interface {
	HealthCheck(ctx context.Context) error

	// Name is the container identifier as stored in artifact details.
	Name() string

	// SignedPutRequest generates a write SAS for the blob path.
	SignedPutRequest(ctx context.Context, path string,
		expire time.Duration) (*model.Link, error)
	// SignedGetRequest generates a read SAS for the blob path.
	SignedGetRequest(ctx context.Context, path string,
		expire time.Duration) (*model.Link, error)
}
