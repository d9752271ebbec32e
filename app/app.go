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

package app

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/pkg/errors"

	"github.com/mendersoftware/taskqueue-artifacts/authz"
	"github.com/mendersoftware/taskqueue-artifacts/client/events"
	"github.com/mendersoftware/taskqueue-artifacts/model"
	"github.com/mendersoftware/taskqueue-artifacts/region"
	"github.com/mendersoftware/taskqueue-artifacts/storage"
	"github.com/mendersoftware/taskqueue-artifacts/store"
)

const (
	// ExpiresGracePeriod absorbs clock drift between the caller and
	// this service when validating artifact expiration.
	ExpiresGracePeriod = 15 * time.Minute

	// ExceptionGraceWindow is how long after resolution an exception
	// run still accepts artifact uploads (error reports, logs).
	ExceptionGraceWindow = 25 * time.Minute

	// PutURLExpire bounds upload credentials. The 10s slack covers the
	// signing clock running ahead of the object store.
	PutURLExpire = 30*time.Minute + 10*time.Second

	// SignedURLExpire bounds download credentials.
	SignedURLExpire = 30 * time.Minute

	DefaultPageLimit = 1000
	MaxPageLimit     = 1000
)

// Errors expected from App interface
var (
	ErrExpiresInPast    = &InputError{errors.New("Expires must be in the future")}
	ErrTaskNotFound     = &InputError{errors.New("Task not found")}
	ErrRunNotFound      = &InputError{errors.New("Run not found")}
	ErrNoTask           = &NotFoundError{errors.New("Task not found")}
	ErrNoRuns           = &NotFoundError{errors.New("Task has no runs")}
	ErrArtifactNotFound = &NotFoundError{errors.New("Artifact not found")}
	ErrInvalidToken     = &InputError{errors.New("Invalid continuationToken")}
)

// InputError is client input invalid against the current state.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// ConflictError is valid input conflicting with an existing,
// immutable fact.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string { return e.Err.Error() }
func (e *ConflictError) Unwrap() error { return e.Err }

// NotFoundError addresses a resource that does not exist.
type NotFoundError struct {
	Err error
}

func (e *NotFoundError) Error() string { return e.Err.Error() }
func (e *NotFoundError) Unwrap() error { return e.Err }

func conflictErrorf(format string, args ...interface{}) error {
	return &ConflictError{errors.Errorf(format, args...)}
}

func inputErrorf(format string, args ...interface{}) error {
	return &InputError{errors.Errorf(format, args...)}
}

// RequestOrigin carries the request attributes feeding the
// region-aware dispatch of public s3 downloads.
type RequestOrigin struct {
	RemoteAddr   string
	ForwardedFor string
	SkipCache    bool
}

// ArtifactAccess is the outcome of a get dispatch: a redirect target,
// or the stored failure of an error artifact.
type ArtifactAccess struct {
	URL   string
	Error *model.ErrorDetails
}

// App exposes the artifact mediation operations.
//
//go:generate ../utils/mockgen.sh
type App interface {
	HealthCheck(ctx context.Context) error
	CreateArtifact(ctx context.Context, taskID string, runID int, name string,
		request *model.ArtifactRequest) (*model.ArtifactPostResponse, error)
	GetArtifactURL(ctx context.Context, taskID string, runID int, name string,
		origin RequestOrigin) (*ArtifactAccess, error)
	GetLatestArtifactURL(ctx context.Context, taskID string, name string,
		origin RequestOrigin) (*ArtifactAccess, error)
	ListArtifacts(ctx context.Context, taskID string, runID int,
		query store.ListQuery) (*model.ArtifactPage, error)
	ListLatestArtifacts(ctx context.Context, taskID string,
		query store.ListQuery) (*model.ArtifactPage, error)
}

// Artifacts implements App on top of the artifact table, the storage
// backends and the event bridge.
type Artifacts struct {
	db              store.DataStore
	publicBucket    storage.Bucket
	privateBucket   storage.Bucket
	blobs           storage.BlobContainer
	regions         *region.Resolver
	authorizer      authz.Authorizer
	eventsClient    events.Client
	cloudMirrorHost string
}

func NewArtifacts(
	db store.DataStore,
	publicBucket, privateBucket storage.Bucket,
	blobs storage.BlobContainer,
	regions *region.Resolver,
	authorizer authz.Authorizer,
	cloudMirrorHost string,
) *Artifacts {
	return &Artifacts{
		db:              db,
		publicBucket:    publicBucket,
		privateBucket:   privateBucket,
		blobs:           blobs,
		regions:         regions,
		authorizer:      authorizer,
		eventsClient:    events.NewClient(),
		cloudMirrorHost: cloudMirrorHost,
	}
}

func (a *Artifacts) SetEventsClient(eventsClient events.Client) {
	a.eventsClient = eventsClient
}

func (a *Artifacts) HealthCheck(ctx context.Context) error {
	err := a.db.Ping(ctx)
	if err != nil {
		return errors.Wrap(err, "error reaching MongoDB")
	}
	err = a.eventsClient.CheckHealth(ctx)
	if err != nil {
		return errors.Wrap(err, "event bridge service unhealthy")
	}
	err = a.publicBucket.HealthCheck(ctx)
	if err != nil {
		return errors.Wrap(err, "error reaching public artifact bucket")
	}
	err = a.privateBucket.HealthCheck(ctx)
	if err != nil {
		return errors.Wrap(err, "error reaching private artifact bucket")
	}
	if a.blobs != nil {
		err = a.blobs.HealthCheck(ctx)
		if err != nil {
			return errors.Wrap(err, "error reaching blob container")
		}
	}
	return nil
}

// CreateArtifact registers artifact metadata and brokers upload
// credentials. Re-creation with identical parameters is idempotent.
func (a *Artifacts) CreateArtifact(
	ctx context.Context,
	taskID string, runID int, name string,
	request *model.ArtifactRequest,
) (*model.ArtifactPostResponse, error) {
	now := time.Now()
	if err := request.Validate(); err != nil {
		return nil, &InputError{err}
	}
	if request.Expires.Before(now.Add(-ExpiresGracePeriod)) {
		return nil, ErrExpiresInPast
	}
	task, err := a.db.GetTask(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "app: failed to load task")
	} else if task == nil {
		return nil, ErrTaskNotFound
	}
	run := task.Run(runID)
	if run == nil {
		return nil, ErrRunNotFound
	}
	err = a.authorizer.Satisfies(ctx, [][]string{{
		"queue:create-artifact:" + name,
		fmt.Sprintf("assume:worker-id:%s/%s", run.WorkerGroup, run.WorkerID),
	}, {
		fmt.Sprintf("queue:create-artifact:%s/%d", taskID, runID),
	}})
	if err != nil {
		return nil, err
	}
	if request.Expires.After(task.Expires) {
		return nil, inputErrorf(
			"Expires %s exceeds task expiration %s",
			request.Expires.Format(time.RFC3339),
			task.Expires.Format(time.RFC3339),
		)
	}
	if err := uploadableRun(run, task, now); err != nil {
		return nil, err
	}

	contentType := request.ContentType
	if contentType == "" {
		contentType = model.DefaultContentType
	}
	artifact := &model.Artifact{
		TaskID:      taskID,
		RunID:       runID,
		Name:        name,
		StorageType: request.StorageType,
		ContentType: contentType,
		Expires:     request.Expires,
	}
	artifact.Details, err = a.buildDetails(artifact, request)
	if err != nil {
		return nil, err
	}

	err = a.db.InsertArtifact(ctx, artifact)
	if err == store.ErrArtifactExists {
		artifact, err = a.reconcileArtifact(ctx, artifact)
	}
	if err != nil {
		return nil, err
	}

	event := &model.ArtifactCreatedEvent{
		Status:      task.Status(),
		Artifact:    artifact.APIArtifact(),
		WorkerGroup: run.WorkerGroup,
		WorkerID:    run.WorkerID,
		RunID:       runID,
		Routes:      task.Routes,
	}
	if err := a.eventsClient.PublishArtifactCreated(ctx, event); err != nil {
		return nil, errors.Wrap(err, "app: failed to publish artifactCreated")
	}

	return a.createReply(ctx, artifact)
}

// uploadableRun admits uploads to running runs, and to exception runs
// within the grace window so that error reports can still land.
func uploadableRun(run *model.TaskRun, task *model.Task, now time.Time) error {
	switch run.State {
	case model.RunStateRunning:
		return nil
	case model.RunStateException:
		if run.Resolved != nil &&
			now.Sub(*run.Resolved) <= ExceptionGraceWindow {
			return nil
		}
	}
	return conflictErrorf(
		"Artifacts cannot be created on a run in state '%s', "+
			"unless the run is an exception resolved less than %v ago",
		run.State, ExceptionGraceWindow,
	)
}

func (a *Artifacts) buildDetails(
	artifact *model.Artifact,
	request *model.ArtifactRequest,
) (model.ArtifactDetails, error) {
	var details model.ArtifactDetails
	switch request.StorageType {
	case model.StorageTypeS3:
		bucket := a.privateBucket
		if artifact.Public() {
			bucket = a.publicBucket
		}
		details.S3 = &model.S3Details{
			Bucket: bucket.Name(),
			Prefix: artifact.ObjectKey(),
		}
	case model.StorageTypeAzure:
		if a.blobs == nil {
			return details, inputErrorf("azure storage is not configured")
		}
		details.Azure = &model.AzureDetails{
			Container: a.blobs.Name(),
			Path:      artifact.ObjectKey(),
		}
	case model.StorageTypeReference:
		details.Reference = &model.ReferenceDetails{
			URL: request.URL,
		}
	case model.StorageTypeError:
		details.Error = &model.ErrorDetails{
			Message: request.Message,
			Reason:  request.Reason,
		}
	default:
		return details, errors.Errorf(
			"app: unknown storage type %q", request.StorageType,
		)
	}
	return details, nil
}

// reconcileArtifact is the idempotency branch of CreateArtifact: the
// key is taken, so the new parameters must match the stored record.
// Storage type, content type and (except for reference) details are
// immutable; expiration only ever extends, the store keeps the max
// over racing writers.
func (a *Artifacts) reconcileArtifact(
	ctx context.Context,
	artifact *model.Artifact,
) (*model.Artifact, error) {
	existing, err := a.db.GetArtifact(
		ctx, artifact.TaskID, artifact.RunID, artifact.Name,
	)
	if err != nil {
		return nil, errors.Wrap(err, "app: failed to load existing artifact")
	} else if existing == nil {
		return nil, errors.New("app: artifact vanished during reconciliation")
	}
	if existing.StorageType != artifact.StorageType {
		return nil, conflictErrorf(
			"Artifact already exists with storageType '%s'",
			existing.StorageType,
		)
	}
	if existing.ContentType != artifact.ContentType {
		return nil, conflictErrorf(
			"Artifact already exists with contentType '%s'",
			existing.ContentType,
		)
	}
	if artifact.StorageType != model.StorageTypeReference &&
		!existing.Details.Equal(artifact.Details) {
		return nil, conflictErrorf(
			"Artifact already exists with different %s details",
			existing.StorageType,
		)
	}
	err = a.db.RefreshArtifact(ctx,
		artifact.TaskID, artifact.RunID, artifact.Name,
		artifact.Expires, artifact.Details,
	)
	if err != nil {
		return nil, errors.Wrap(err, "app: failed to refresh artifact")
	}
	if existing.Expires.After(artifact.Expires) {
		artifact.Expires = existing.Expires
	}
	return artifact, nil
}

func (a *Artifacts) createReply(
	ctx context.Context,
	artifact *model.Artifact,
) (*model.ArtifactPostResponse, error) {
	reply := &model.ArtifactPostResponse{
		StorageType: artifact.StorageType,
	}
	switch artifact.StorageType {
	case model.StorageTypeS3:
		bucket, err := a.bucketByName(artifact.Details.S3.Bucket)
		if err != nil {
			return nil, err
		}
		link, err := bucket.PutRequest(ctx, artifact.Details.S3.Prefix,
			storage.PutOptions{
				ContentType: artifact.ContentType,
				Expire:      PutURLExpire,
			})
		if err != nil {
			return nil, errors.Wrap(err, "app: failed to sign upload URL")
		}
		reply.ContentType = artifact.ContentType
		reply.Expires = &link.Expire
		reply.PutURL = link.Uri
	case model.StorageTypeAzure:
		link, err := a.blobs.SignedPutRequest(
			ctx, artifact.Details.Azure.Path, SignedURLExpire,
		)
		if err != nil {
			return nil, errors.Wrap(err, "app: failed to sign write SAS")
		}
		reply.ContentType = artifact.ContentType
		reply.Expires = &link.Expire
		reply.PutURL = link.Uri
	case model.StorageTypeReference, model.StorageTypeError:
		// metadata only, nothing to upload
	default:
		return nil, errors.Errorf(
			"app: unknown storage type %q on stored artifact",
			artifact.StorageType,
		)
	}
	return reply, nil
}

func (a *Artifacts) bucketByName(name string) (storage.Bucket, error) {
	switch name {
	case a.publicBucket.Name():
		return a.publicBucket, nil
	case a.privateBucket.Name():
		return a.privateBucket, nil
	}
	return nil, errors.Errorf("app: artifact stored in unknown bucket %q", name)
}

// GetArtifactURL resolves the download target of one artifact.
func (a *Artifacts) GetArtifactURL(
	ctx context.Context,
	taskID string, runID int, name string,
	origin RequestOrigin,
) (*ArtifactAccess, error) {
	if err := a.authorizeGet(ctx, name); err != nil {
		return nil, err
	}
	artifact, err := a.db.GetArtifact(ctx, taskID, runID, name)
	if err != nil {
		return nil, errors.Wrap(err, "app: failed to load artifact")
	} else if artifact == nil {
		return nil, ErrArtifactNotFound
	}
	return a.dispatchGet(ctx, artifact, origin)
}

// GetLatestArtifactURL resolves "latest" to the last run and serves
// the artifact from there. Authorization comes first: unauthorized
// callers must not learn whether the task or its runs exist.
func (a *Artifacts) GetLatestArtifactURL(
	ctx context.Context,
	taskID string, name string,
	origin RequestOrigin,
) (*ArtifactAccess, error) {
	if err := a.authorizeGet(ctx, name); err != nil {
		return nil, err
	}
	runID, err := a.latestRunID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return a.GetArtifactURL(ctx, taskID, runID, name, origin)
}

// authorizeGet admits public names unconditionally; anything else
// requires the matching get-artifact scope.
func (a *Artifacts) authorizeGet(ctx context.Context, name string) error {
	if isPublicName(name) {
		return nil
	}
	return a.authorizer.Satisfies(ctx, [][]string{
		{"queue:get-artifact:" + name},
	})
}

func (a *Artifacts) latestRunID(ctx context.Context, taskID string) (int, error) {
	task, err := a.db.GetTask(ctx, taskID)
	if err != nil {
		return 0, errors.Wrap(err, "app: failed to load task")
	} else if task == nil {
		return 0, ErrNoTask
	}
	runID, ok := task.LatestRunID()
	if !ok {
		return 0, ErrNoRuns
	}
	return runID, nil
}

func (a *Artifacts) dispatchGet(
	ctx context.Context,
	artifact *model.Artifact,
	origin RequestOrigin,
) (*ArtifactAccess, error) {
	switch artifact.StorageType {
	case model.StorageTypeS3:
		return a.s3GetURL(ctx, artifact, origin)
	case model.StorageTypeAzure:
		return a.azureGetURL(ctx, artifact)
	case model.StorageTypeReference:
		if artifact.Details.Reference == nil {
			break
		}
		return &ArtifactAccess{
			URL: artifact.Details.Reference.URL,
		}, nil
	case model.StorageTypeError:
		if artifact.Details.Error == nil {
			break
		}
		return &ArtifactAccess{
			Error: artifact.Details.Error,
		}, nil
	}
	log.FromContext(ctx).Errorf(
		"artifact %s has unknown or inconsistent storage type %q",
		artifact.ID, artifact.StorageType,
	)
	return nil, errors.Errorf(
		"app: unknown storage type %q on stored artifact", artifact.StorageType,
	)
}

// s3GetURL dispatches a public artifact on the requester's region:
// same region goes straight to the bucket, a known foreign region
// bounces off the cloud mirror, anything else takes the CDN form.
// Private artifacts get a signed URL.
func (a *Artifacts) s3GetURL(
	ctx context.Context,
	artifact *model.Artifact,
	origin RequestOrigin,
) (*ArtifactAccess, error) {
	details := artifact.Details.S3
	if details == nil {
		return nil, errors.Errorf(
			"app: artifact %s has no s3 details", artifact.ID,
		)
	}
	bucket, err := a.bucketByName(details.Bucket)
	if err != nil {
		return nil, err
	}
	if bucket != a.publicBucket {
		link, err := bucket.SignedGetRequest(ctx, details.Prefix, SignedURLExpire)
		if err != nil {
			return nil, errors.Wrap(err, "app: failed to sign download URL")
		}
		return &ArtifactAccess{URL: link.Uri}, nil
	}

	requestRegion := a.regions.Lookup(origin.RemoteAddr, origin.ForwardedFor)
	switch {
	case requestRegion == "" || origin.SkipCache:
		return &ArtifactAccess{URL: bucket.GetURL(details.Prefix, false)}, nil
	case requestRegion == bucket.Region():
		return &ArtifactAccess{URL: bucket.GetURL(details.Prefix, true)}, nil
	default:
		canonical := bucket.GetURL(details.Prefix, true)
		mirror := fmt.Sprintf("https://%s/v1/redirect/s3/%s/%s",
			a.cloudMirrorHost,
			requestRegion,
			url.QueryEscape(canonical),
		)
		return &ArtifactAccess{URL: mirror}, nil
	}
}

func (a *Artifacts) azureGetURL(
	ctx context.Context,
	artifact *model.Artifact,
) (*ArtifactAccess, error) {
	details := artifact.Details.Azure
	if details == nil {
		return nil, errors.Errorf(
			"app: artifact %s has no azure details", artifact.ID,
		)
	}
	if a.blobs == nil {
		return nil, errors.New("app: azure storage is not configured")
	}
	if details.Container != a.blobs.Name() {
		// Sign against the configured container regardless; the
		// signing key only covers that one.
		log.FromContext(ctx).Errorf(
			"artifact %s stored in container %q, configured container is %q",
			artifact.ID, details.Container, a.blobs.Name(),
		)
	}
	link, err := a.blobs.SignedGetRequest(ctx, details.Path, SignedURLExpire)
	if err != nil {
		return nil, errors.Wrap(err, "app: failed to sign read SAS")
	}
	return &ArtifactAccess{URL: link.Uri}, nil
}

// ListArtifacts returns one page of a run's artifacts.
func (a *Artifacts) ListArtifacts(
	ctx context.Context,
	taskID string, runID int,
	query store.ListQuery,
) (*model.ArtifactPage, error) {
	task, err := a.db.GetTask(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "app: failed to load task")
	} else if task == nil {
		return nil, ErrNoTask
	}
	if task.Run(runID) == nil {
		return nil, &NotFoundError{errors.New("Run not found")}
	}
	if query.Limit <= 0 || query.Limit > MaxPageLimit {
		query.Limit = DefaultPageLimit
	}
	artifacts, next, err := a.db.ListArtifacts(ctx, taskID, runID, query)
	if err == store.ErrInvalidContinuation {
		return nil, ErrInvalidToken
	} else if err != nil {
		return nil, errors.Wrap(err, "app: failed to list artifacts")
	}
	page := &model.ArtifactPage{
		Artifacts:         make([]model.APIArtifact, len(artifacts)),
		ContinuationToken: next,
	}
	for i := range artifacts {
		page.Artifacts[i] = artifacts[i].APIArtifact()
	}
	return page, nil
}

// ListLatestArtifacts lists the artifacts of the last run.
func (a *Artifacts) ListLatestArtifacts(
	ctx context.Context,
	taskID string,
	query store.ListQuery,
) (*model.ArtifactPage, error) {
	runID, err := a.latestRunID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return a.ListArtifacts(ctx, taskID, runID, query)
}

func isPublicName(name string) bool {
	return strings.HasPrefix(name, model.PublicPrefix)
}
