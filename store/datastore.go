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

package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mendersoftware/taskqueue-artifacts/model"
)

var (
	// ErrArtifactExists is returned by InsertArtifact when the
	// (taskID, runID, name) key is already taken.
	ErrArtifactExists = errors.New("artifact already exists")

	// ErrInvalidContinuation is returned for continuation tokens this
	// store never issued.
	ErrInvalidContinuation = errors.New("invalid continuation token")
)

// ListQuery selects one page of a run's artifacts.
type ListQuery struct {
	// ContinuationToken is the opaque cursor from the previous page,
	// empty for the first page.
	ContinuationToken string
	// Limit is the maximum page size; must be positive.
	Limit int
}

//go:generate ../utils/mockgen.sh
type DataStore interface {
	Ping(ctx context.Context) error

	// InsertArtifact performs a conditional insert keyed by
	// (taskID, runID, name); ErrArtifactExists on a taken key.
	InsertArtifact(ctx context.Context, artifact *model.Artifact) error

	// GetArtifact returns nil, nil when the artifact does not exist.
	GetArtifact(ctx context.Context,
		taskID string, runID int, name string) (*model.Artifact, error)

	// RefreshArtifact atomically extends the artifact's expiration
	// (monotonic, never shortens) and assigns the details record. It
	// linearizes against concurrent InsertArtifact/RefreshArtifact on
	// the same key.
	RefreshArtifact(ctx context.Context, taskID string, runID int,
		name string, expires time.Time, details model.ArtifactDetails) error

	// ListArtifacts pages through a run's artifacts in name order. The
	// returned token is non-empty iff more pages may follow.
	ListArtifacts(ctx context.Context, taskID string, runID int,
		query ListQuery) ([]model.Artifact, string, error)

	// GetTask loads the read-only task projection; nil, nil when the
	// task does not exist.
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
}
