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
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mendersoftware/taskqueue-artifacts/authz"
	authz_mocks "github.com/mendersoftware/taskqueue-artifacts/authz/mocks"
	event_mocks "github.com/mendersoftware/taskqueue-artifacts/client/events/mocks"
	"github.com/mendersoftware/taskqueue-artifacts/model"
	"github.com/mendersoftware/taskqueue-artifacts/region"
	"github.com/mendersoftware/taskqueue-artifacts/storage"
	storage_mocks "github.com/mendersoftware/taskqueue-artifacts/storage/mocks"
	"github.com/mendersoftware/taskqueue-artifacts/store"
	store_mocks "github.com/mendersoftware/taskqueue-artifacts/store/mocks"
)

const (
	publicBucketName  = "public-bucket"
	privateBucketName = "private-bucket"
	containerName     = "artifacts-container"
	bucketRegion      = "us-west-2"
	mirrorHost        = "cloud-mirror.test"
)

type testApp struct {
	*Artifacts

	db     *store_mocks.DataStore
	public *storage_mocks.Bucket
	priv   *storage_mocks.Bucket
	blobs  *storage_mocks.BlobContainer
	auth   *authz_mocks.Authorizer
	events *event_mocks.Client
}

func newTestApp(t *testing.T) *testApp {
	db := &store_mocks.DataStore{}
	public := &storage_mocks.Bucket{}
	priv := &storage_mocks.Bucket{}
	blobs := &storage_mocks.BlobContainer{}
	auth := &authz_mocks.Authorizer{}
	eventsClient := &event_mocks.Client{}

	public.On("Name").Return(publicBucketName).Maybe()
	public.On("Region").Return(bucketRegion).Maybe()
	priv.On("Name").Return(privateBucketName).Maybe()
	blobs.On("Name").Return(containerName).Maybe()

	resolver, err := region.NewResolver([]string{
		"10.0.0.0/8=" + bucketRegion,
		"172.16.0.0/12=eu-central-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	app := NewArtifacts(db, public, priv, blobs, resolver, auth, mirrorHost)
	app.SetEventsClient(eventsClient)

	t.Cleanup(func() {
		db.AssertExpectations(t)
		public.AssertExpectations(t)
		priv.AssertExpectations(t)
		blobs.AssertExpectations(t)
		auth.AssertExpectations(t)
		eventsClient.AssertExpectations(t)
	})

	return &testApp{
		Artifacts: app,
		db:        db,
		public:    public,
		priv:      priv,
		blobs:     blobs,
		auth:      auth,
		events:    eventsClient,
	}
}

func runningTask(expires time.Time) *model.Task {
	return &model.Task{
		ID:      "T1",
		Expires: expires,
		Routes:  []string{"route.index"},
		Runs: []model.TaskRun{{
			State:       model.RunStateRunning,
			WorkerGroup: "g",
			WorkerID:    "w",
		}},
	}
}

func TestCreateArtifactS3(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()

	taskExpires := time.Now().Add(48 * time.Hour)
	artifactExpires := time.Now().Add(24 * time.Hour)
	task := runningTask(taskExpires)

	app.db.On("GetTask", ctx, "T1").Return(task, nil)
	app.auth.On("Satisfies", ctx, [][]string{
		{"queue:create-artifact:public/log.txt", "assume:worker-id:g/w"},
		{"queue:create-artifact:T1/0"},
	}).Return(nil)
	app.db.On("InsertArtifact", ctx,
		mock.MatchedBy(func(artifact *model.Artifact) bool {
			return artifact.TaskID == "T1" &&
				artifact.RunID == 0 &&
				artifact.StorageType == model.StorageTypeS3 &&
				artifact.ContentType == "text/plain" &&
				artifact.Details.S3 != nil &&
				artifact.Details.S3.Bucket == publicBucketName &&
				artifact.Details.S3.Prefix == "T1/0/public/log.txt"
		}),
	).Return(nil)
	app.events.On("PublishArtifactCreated", ctx,
		mock.MatchedBy(func(event *model.ArtifactCreatedEvent) bool {
			return event.RunID == 0 &&
				event.WorkerGroup == "g" &&
				event.WorkerID == "w" &&
				event.Artifact.Name == "public/log.txt" &&
				assert.ObjectsAreEqual([]string{"route.index"}, event.Routes)
		}),
	).Return(nil)

	putExpire := time.Now().Add(PutURLExpire)
	app.public.On("PutRequest", ctx, "T1/0/public/log.txt",
		mock.MatchedBy(func(opts storage.PutOptions) bool {
			return opts.ContentType == "text/plain" &&
				opts.Expire == PutURLExpire
		}),
	).Return(model.NewLink("https://signed.example.com/put", putExpire), nil)

	reply, err := app.CreateArtifact(ctx, "T1", 0, "public/log.txt",
		&model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			ContentType: "text/plain",
			Expires:     artifactExpires,
		})
	if assert.NoError(t, err) {
		assert.Equal(t, model.StorageTypeS3, reply.StorageType)
		assert.Equal(t, "text/plain", reply.ContentType)
		assert.Equal(t, "https://signed.example.com/put", reply.PutURL)
		if assert.NotNil(t, reply.Expires) {
			assert.WithinDuration(t, putExpire, *reply.Expires, time.Second)
		}
	}
}

func TestCreateArtifactPrivateDefaults(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()
	task := runningTask(time.Now().Add(48 * time.Hour))

	app.db.On("GetTask", ctx, "T1").Return(task, nil)
	app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
	app.db.On("InsertArtifact", ctx,
		mock.MatchedBy(func(artifact *model.Artifact) bool {
			// non-public name lands in the private bucket, content
			// type defaults to application/json
			return artifact.Details.S3.Bucket == privateBucketName &&
				artifact.ContentType == model.DefaultContentType
		}),
	).Return(nil)
	app.events.On("PublishArtifactCreated", ctx, mock.Anything).Return(nil)
	app.priv.On("PutRequest", ctx, "T1/0/secrets/key", mock.Anything).
		Return(model.NewLink("https://signed.example.com/put",
			time.Now().Add(PutURLExpire)), nil)

	_, err := app.CreateArtifact(ctx, "T1", 0, "secrets/key",
		&model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     time.Now().Add(time.Hour),
		})
	assert.NoError(t, err)
}

func TestCreateArtifactAzure(t *testing.T) {
	t.Parallel()

	t.Run("write SAS issued", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		task := runningTask(time.Now().Add(48 * time.Hour))

		app.db.On("GetTask", ctx, "T1").Return(task, nil)
		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("InsertArtifact", ctx,
			mock.MatchedBy(func(artifact *model.Artifact) bool {
				return artifact.StorageType == model.StorageTypeAzure &&
					artifact.Details.Azure != nil &&
					artifact.Details.Azure.Container == containerName &&
					artifact.Details.Azure.Path == "T1/0/trace.log"
			}),
		).Return(nil)
		app.events.On("PublishArtifactCreated", ctx, mock.Anything).Return(nil)

		sasExpire := time.Now().Add(SignedURLExpire)
		app.blobs.On("SignedPutRequest", ctx, "T1/0/trace.log", SignedURLExpire).
			Return(model.NewLink("https://account.blob.example.com/put",
				sasExpire), nil)

		reply, err := app.CreateArtifact(ctx, "T1", 0, "trace.log",
			&model.ArtifactRequest{
				StorageType: model.StorageTypeAzure,
				ContentType: "text/plain",
				Expires:     time.Now().Add(time.Hour),
			})
		if assert.NoError(t, err) {
			assert.Equal(t, model.StorageTypeAzure, reply.StorageType)
			assert.Equal(t, "text/plain", reply.ContentType)
			assert.Equal(t, "https://account.blob.example.com/put", reply.PutURL)
			if assert.NotNil(t, reply.Expires) {
				assert.WithinDuration(t, sasExpire, *reply.Expires, time.Second)
			}
		}
	})

	t.Run("blob storage not configured", func(t *testing.T) {
		t.Parallel()

		db := &store_mocks.DataStore{}
		public := &storage_mocks.Bucket{}
		priv := &storage_mocks.Bucket{}
		auth := &authz_mocks.Authorizer{}
		eventsClient := &event_mocks.Client{}
		defer db.AssertExpectations(t)
		defer eventsClient.AssertExpectations(t)

		resolver, err := region.NewResolver(nil)
		if err != nil {
			t.Fatal(err)
		}
		app := NewArtifacts(db, public, priv, nil, resolver, auth, mirrorHost)
		app.SetEventsClient(eventsClient)

		ctx := context.Background()
		db.On("GetTask", ctx, "T1").
			Return(runningTask(time.Now().Add(48*time.Hour)), nil)
		auth.On("Satisfies", ctx, mock.Anything).Return(nil)

		_, err = app.CreateArtifact(ctx, "T1", 0, "trace.log",
			&model.ArtifactRequest{
				StorageType: model.StorageTypeAzure,
				Expires:     time.Now().Add(time.Hour),
			})
		var inputErr *InputError
		assert.ErrorAs(t, err, &inputErr)
		db.AssertNotCalled(t, "InsertArtifact", mock.Anything, mock.Anything)
	})
}

func TestCreateArtifactValidation(t *testing.T) {
	t.Parallel()

	now := time.Now()
	taskExpires := now.Add(48 * time.Hour)

	resolvedRecently := now.Add(-10 * time.Minute)
	resolvedLongAgo := now.Add(-30 * time.Minute)

	testCases := []struct {
		Name string

		Task    *model.Task
		RunID   int
		Request model.ArtifactRequest

		AuthErr error

		Err       error
		ErrorType error
	}{{
		Name: "expires in the past",
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(-16 * time.Minute),
		},
		Err: ErrExpiresInPast,
	}, {
		Name: "expires within grace period",
		Task: runningTask(taskExpires),
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(-14 * time.Minute),
		},
	}, {
		Name: "task not found",
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(time.Hour),
		},
		Err: ErrTaskNotFound,
	}, {
		Name:  "run not found",
		Task:  runningTask(taskExpires),
		RunID: 3,
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(time.Hour),
		},
		Err: ErrRunNotFound,
	}, {
		Name: "not authorized",
		Task: runningTask(taskExpires),
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(time.Hour),
		},
		AuthErr: authz.ErrForbidden,
		Err:     authz.ErrForbidden,
	}, {
		Name: "expires beyond task expiration",
		Task: runningTask(taskExpires),
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     taskExpires.Add(time.Hour),
		},
		ErrorType: &InputError{},
	}, {
		Name: "run already completed",
		Task: &model.Task{
			ID:      "T1",
			Expires: taskExpires,
			Runs:    []model.TaskRun{{State: model.RunStateCompleted}},
		},
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(time.Hour),
		},
		ErrorType: &ConflictError{},
	}, {
		Name: "exception run within grace window",
		Task: &model.Task{
			ID:      "T1",
			Expires: taskExpires,
			Runs: []model.TaskRun{{
				State:    model.RunStateException,
				Resolved: &resolvedRecently,
			}},
		},
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(time.Hour),
		},
	}, {
		Name: "exception run after grace window",
		Task: &model.Task{
			ID:      "T1",
			Expires: taskExpires,
			Runs: []model.TaskRun{{
				State:    model.RunStateException,
				Resolved: &resolvedLongAgo,
			}},
		},
		Request: model.ArtifactRequest{
			StorageType: model.StorageTypeS3,
			Expires:     now.Add(time.Hour),
		},
		ErrorType: &ConflictError{},
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t)
			ctx := context.Background()

			app.db.On("GetTask", ctx, "T1").Return(tc.Task, nil).Maybe()
			app.auth.On("Satisfies", ctx, mock.Anything).
				Return(tc.AuthErr).Maybe()
			if tc.Err == nil && tc.ErrorType == nil {
				app.db.On("InsertArtifact", ctx, mock.Anything).Return(nil)
				app.events.On("PublishArtifactCreated", ctx, mock.Anything).
					Return(nil)
				app.priv.On("PutRequest", ctx, mock.Anything, mock.Anything).
					Return(model.NewLink("https://signed.example.com/put",
						now.Add(PutURLExpire)), nil)
			}

			_, err := app.CreateArtifact(
				ctx, "T1", tc.RunID, "log.txt", &tc.Request,
			)
			switch tc.ErrorType.(type) {
			case *InputError:
				var target *InputError
				assert.ErrorAs(t, err, &target)
			case *ConflictError:
				var target *ConflictError
				assert.ErrorAs(t, err, &target)
			default:
				if tc.Err != nil {
					assert.ErrorIs(t, err, tc.Err)
				} else {
					assert.NoError(t, err)
				}
			}
		})
	}
}

func TestCreateArtifactIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	taskExpires := now.Add(48 * time.Hour)
	storedExpires := now.Add(12 * time.Hour)

	stored := &model.Artifact{
		ID:          "T1/0/public/log.txt",
		TaskID:      "T1",
		RunID:       0,
		Name:        "public/log.txt",
		StorageType: model.StorageTypeS3,
		ContentType: "text/plain",
		Expires:     storedExpires,
		Details: model.ArtifactDetails{
			S3: &model.S3Details{
				Bucket: publicBucketName,
				Prefix: "T1/0/public/log.txt",
			},
		},
	}

	t.Run("recreate with later expiry refreshes", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		newExpires := now.Add(24 * time.Hour)

		app.db.On("GetTask", ctx, "T1").Return(runningTask(taskExpires), nil)
		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("InsertArtifact", ctx, mock.Anything).
			Return(store.ErrArtifactExists)
		app.db.On("GetArtifact", ctx, "T1", 0, "public/log.txt").
			Return(stored, nil)
		app.db.On("RefreshArtifact", ctx, "T1", 0, "public/log.txt",
			newExpires, stored.Details).Return(nil)
		app.events.On("PublishArtifactCreated", ctx, mock.Anything).Return(nil)
		app.public.On("PutRequest", ctx, "T1/0/public/log.txt", mock.Anything).
			Return(model.NewLink("https://signed.example.com/put",
				now.Add(PutURLExpire)), nil)

		_, err := app.CreateArtifact(ctx, "T1", 0, "public/log.txt",
			&model.ArtifactRequest{
				StorageType: model.StorageTypeS3,
				ContentType: "text/plain",
				Expires:     newExpires,
			})
		assert.NoError(t, err)
	})

	t.Run("conflicting content type", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.db.On("GetTask", ctx, "T1").Return(runningTask(taskExpires), nil)
		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("InsertArtifact", ctx, mock.Anything).
			Return(store.ErrArtifactExists)
		app.db.On("GetArtifact", ctx, "T1", 0, "public/log.txt").
			Return(stored, nil)

		_, err := app.CreateArtifact(ctx, "T1", 0, "public/log.txt",
			&model.ArtifactRequest{
				StorageType: model.StorageTypeS3,
				ContentType: "text/html",
				Expires:     now.Add(24 * time.Hour),
			})
		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr)
		app.db.AssertNotCalled(t, "RefreshArtifact",
			mock.Anything, mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("conflicting storage type", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.db.On("GetTask", ctx, "T1").Return(runningTask(taskExpires), nil)
		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("InsertArtifact", ctx, mock.Anything).
			Return(store.ErrArtifactExists)
		app.db.On("GetArtifact", ctx, "T1", 0, "public/log.txt").
			Return(stored, nil)

		_, err := app.CreateArtifact(ctx, "T1", 0, "public/log.txt",
			&model.ArtifactRequest{
				StorageType: model.StorageTypeReference,
				ContentType: "text/plain",
				Expires:     now.Add(24 * time.Hour),
				URL:         "https://elsewhere.example.com/log.txt",
			})
		var conflictErr *ConflictError
		assert.ErrorAs(t, err, &conflictErr)
	})

	t.Run("reference url may change", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		newExpires := now.Add(24 * time.Hour)

		storedRef := &model.Artifact{
			TaskID:      "T1",
			RunID:       0,
			Name:        "results",
			StorageType: model.StorageTypeReference,
			ContentType: model.DefaultContentType,
			Expires:     storedExpires,
			Details: model.ArtifactDetails{
				Reference: &model.ReferenceDetails{
					URL: "https://old.example.com/results",
				},
			},
		}

		app.db.On("GetTask", ctx, "T1").Return(runningTask(taskExpires), nil)
		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("InsertArtifact", ctx, mock.Anything).
			Return(store.ErrArtifactExists)
		app.db.On("GetArtifact", ctx, "T1", 0, "results").
			Return(storedRef, nil)
		app.db.On("RefreshArtifact", ctx, "T1", 0, "results", newExpires,
			model.ArtifactDetails{
				Reference: &model.ReferenceDetails{
					URL: "https://new.example.com/results",
				},
			}).Return(nil)
		app.events.On("PublishArtifactCreated", ctx, mock.Anything).Return(nil)

		reply, err := app.CreateArtifact(ctx, "T1", 0, "results",
			&model.ArtifactRequest{
				StorageType: model.StorageTypeReference,
				Expires:     newExpires,
				URL:         "https://new.example.com/results",
			})
		if assert.NoError(t, err) {
			assert.Equal(t, model.StorageTypeReference, reply.StorageType)
			assert.Empty(t, reply.PutURL)
		}
	})
}

func TestCreateArtifactErrorType(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()
	task := runningTask(time.Now().Add(48 * time.Hour))

	app.db.On("GetTask", ctx, "T1").Return(task, nil)
	app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
	app.db.On("InsertArtifact", ctx,
		mock.MatchedBy(func(artifact *model.Artifact) bool {
			return artifact.StorageType == model.StorageTypeError &&
				artifact.Details.Error != nil &&
				artifact.Details.Error.Message == "m" &&
				artifact.Details.Error.Reason == "r"
		}),
	).Return(nil)
	app.events.On("PublishArtifactCreated", ctx, mock.Anything).Return(nil)

	reply, err := app.CreateArtifact(ctx, "T1", 0, "build-failure",
		&model.ArtifactRequest{
			StorageType: model.StorageTypeError,
			Expires:     time.Now().Add(time.Hour),
			Message:     "m",
			Reason:      "r",
		})
	if assert.NoError(t, err) {
		assert.Equal(t, model.StorageTypeError, reply.StorageType)
		assert.Empty(t, reply.PutURL)
		assert.Nil(t, reply.Expires)
	}
}

func TestGetArtifactURLRegions(t *testing.T) {
	t.Parallel()

	artifact := &model.Artifact{
		ID:          "T1/0/public/log.txt",
		TaskID:      "T1",
		RunID:       0,
		Name:        "public/log.txt",
		StorageType: model.StorageTypeS3,
		ContentType: "text/plain",
		Expires:     time.Now().Add(time.Hour),
		Details: model.ArtifactDetails{
			S3: &model.S3Details{
				Bucket: publicBucketName,
				Prefix: "T1/0/public/log.txt",
			},
		},
	}
	const (
		directURL = "https://public-bucket.s3.us-west-2.amazonaws.com" +
			"/T1/0/public/log.txt"
		cdnURL = "https://cdn.example.com/T1/0/public/log.txt"
	)

	testCases := []struct {
		Name string

		Origin RequestOrigin

		URL string
	}{{
		Name:   "same region, direct bucket URL",
		Origin: RequestOrigin{RemoteAddr: "10.0.0.7:1234"},
		URL:    directURL,
	}, {
		Name:   "foreign known region, cloud mirror",
		Origin: RequestOrigin{RemoteAddr: "172.20.0.7:1234"},
		URL: "https://" + mirrorHost + "/v1/redirect/s3/eu-central-1/" +
			url.QueryEscape(directURL),
	}, {
		Name:   "unknown region, CDN form",
		Origin: RequestOrigin{RemoteAddr: "8.8.8.8:1234"},
		URL:    cdnURL,
	}, {
		Name: "skip cache header forces CDN form",
		Origin: RequestOrigin{
			RemoteAddr: "10.0.0.7:1234",
			SkipCache:  true,
		},
		URL: cdnURL,
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t)
			ctx := context.Background()

			app.db.On("GetArtifact", ctx, "T1", 0, "public/log.txt").
				Return(artifact, nil)
			app.public.On("GetURL", "T1/0/public/log.txt", true).
				Return(directURL).Maybe()
			app.public.On("GetURL", "T1/0/public/log.txt", false).
				Return(cdnURL).Maybe()

			access, err := app.GetArtifactURL(
				ctx, "T1", 0, "public/log.txt", tc.Origin,
			)
			if assert.NoError(t, err) {
				assert.Equal(t, tc.URL, access.URL)
				assert.Nil(t, access.Error)
			}
			// public names never consult the authorizer
			app.auth.AssertNotCalled(t, "Satisfies",
				mock.Anything, mock.Anything)
		})
	}
}

func TestGetArtifactURLPrivate(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()

	artifact := &model.Artifact{
		TaskID:      "T1",
		RunID:       0,
		Name:        "secrets/key",
		StorageType: model.StorageTypeS3,
		ContentType: model.DefaultContentType,
		Expires:     time.Now().Add(time.Hour),
		Details: model.ArtifactDetails{
			S3: &model.S3Details{
				Bucket: privateBucketName,
				Prefix: "T1/0/secrets/key",
			},
		},
	}

	app.auth.On("Satisfies", ctx, [][]string{
		{"queue:get-artifact:secrets/key"},
	}).Return(nil)
	app.db.On("GetArtifact", ctx, "T1", 0, "secrets/key").
		Return(artifact, nil)
	app.priv.On("SignedGetRequest", ctx, "T1/0/secrets/key", SignedURLExpire).
		Return(model.NewLink("https://signed.example.com/get",
			time.Now().Add(SignedURLExpire)), nil)

	access, err := app.GetArtifactURL(ctx, "T1", 0, "secrets/key",
		RequestOrigin{RemoteAddr: "10.0.0.7:1234"})
	if assert.NoError(t, err) {
		assert.Equal(t, "https://signed.example.com/get", access.URL)
	}
}

func TestGetArtifactURLVariants(t *testing.T) {
	t.Parallel()

	t.Run("error artifact", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("GetArtifact", ctx, "T1", 0, "build-failure").
			Return(&model.Artifact{
				StorageType: model.StorageTypeError,
				Details: model.ArtifactDetails{
					Error: &model.ErrorDetails{Message: "m", Reason: "r"},
				},
			}, nil)

		access, err := app.GetArtifactURL(ctx, "T1", 0, "build-failure",
			RequestOrigin{})
		if assert.NoError(t, err) {
			assert.Empty(t, access.URL)
			if assert.NotNil(t, access.Error) {
				assert.Equal(t, "m", access.Error.Message)
				assert.Equal(t, "r", access.Error.Reason)
			}
		}
	})

	t.Run("reference artifact", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("GetArtifact", ctx, "T1", 0, "results").
			Return(&model.Artifact{
				StorageType: model.StorageTypeReference,
				Details: model.ArtifactDetails{
					Reference: &model.ReferenceDetails{
						URL: "https://elsewhere.example.com/results",
					},
				},
			}, nil)

		access, err := app.GetArtifactURL(ctx, "T1", 0, "results",
			RequestOrigin{})
		if assert.NoError(t, err) {
			assert.Equal(t,
				"https://elsewhere.example.com/results", access.URL)
		}
	})

	t.Run("azure artifact with container mismatch", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("GetArtifact", ctx, "T1", 0, "blob").
			Return(&model.Artifact{
				StorageType: model.StorageTypeAzure,
				Details: model.ArtifactDetails{
					Azure: &model.AzureDetails{
						Container: "some-other-container",
						Path:      "T1/0/blob",
					},
				},
			}, nil)
		app.blobs.On("SignedGetRequest", ctx, "T1/0/blob", SignedURLExpire).
			Return(model.NewLink("https://blob.example.com/get",
				time.Now().Add(SignedURLExpire)), nil)

		access, err := app.GetArtifactURL(ctx, "T1", 0, "blob",
			RequestOrigin{})
		if assert.NoError(t, err) {
			assert.Equal(t, "https://blob.example.com/get", access.URL)
		}
	})

	t.Run("artifact not found", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.auth.On("Satisfies", ctx, mock.Anything).Return(nil)
		app.db.On("GetArtifact", ctx, "T1", 0, "nope").
			Return(nil, nil)

		_, err := app.GetArtifactURL(ctx, "T1", 0, "nope", RequestOrigin{})
		assert.ErrorIs(t, err, ErrArtifactNotFound)
	})
}

func TestGetLatestArtifactURL(t *testing.T) {
	t.Parallel()

	t.Run("resolves last run", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		task := &model.Task{
			ID:      "T1",
			Expires: time.Now().Add(time.Hour),
			Runs: []model.TaskRun{
				{State: model.RunStateFailed},
				{State: model.RunStateCompleted},
			},
		}
		app.db.On("GetTask", ctx, "T1").Return(task, nil)
		app.db.On("GetArtifact", ctx, "T1", 1, "public/log.txt").
			Return(&model.Artifact{
				StorageType: model.StorageTypeReference,
				Details: model.ArtifactDetails{
					Reference: &model.ReferenceDetails{
						URL: "https://elsewhere.example.com/log",
					},
				},
			}, nil)

		access, err := app.GetLatestArtifactURL(
			ctx, "T1", "public/log.txt", RequestOrigin{},
		)
		if assert.NoError(t, err) {
			assert.Equal(t, "https://elsewhere.example.com/log", access.URL)
		}
	})

	t.Run("task without runs", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.db.On("GetTask", ctx, "T1").Return(&model.Task{
			ID:      "T1",
			Expires: time.Now().Add(time.Hour),
		}, nil)

		_, err := app.GetLatestArtifactURL(
			ctx, "T1", "public/log.txt", RequestOrigin{},
		)
		assert.ErrorIs(t, err, ErrNoRuns)
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.db.On("GetTask", ctx, "T1").Return(nil, nil)

		_, err := app.GetLatestArtifactURL(
			ctx, "T1", "public/log.txt", RequestOrigin{},
		)
		assert.ErrorIs(t, err, ErrNoTask)
	})

	t.Run("unauthorized callers learn nothing about the task", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()

		app.auth.On("Satisfies", ctx, [][]string{
			{"queue:get-artifact:secrets/key"},
		}).Return(authz.ErrForbidden)

		_, err := app.GetLatestArtifactURL(
			ctx, "T1", "secrets/key", RequestOrigin{},
		)
		assert.ErrorIs(t, err, authz.ErrForbidden)
		app.db.AssertNotCalled(t, "GetTask", mock.Anything, mock.Anything)
	})
}

func TestListArtifacts(t *testing.T) {
	t.Parallel()

	t.Run("default limit applied", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		task := runningTask(time.Now().Add(time.Hour))

		artifacts := []model.Artifact{{
			TaskID:      "T1",
			RunID:       0,
			Name:        "public/log.txt",
			StorageType: model.StorageTypeS3,
			ContentType: "text/plain",
			Expires:     time.Now().Add(time.Hour),
		}}

		app.db.On("GetTask", ctx, "T1").Return(task, nil)
		app.db.On("ListArtifacts", ctx, "T1", 0,
			store.ListQuery{Limit: DefaultPageLimit}).
			Return(artifacts, "next-token", nil)

		page, err := app.ListArtifacts(ctx, "T1", 0, store.ListQuery{})
		if assert.NoError(t, err) {
			assert.Len(t, page.Artifacts, 1)
			assert.Equal(t, "public/log.txt", page.Artifacts[0].Name)
			assert.Equal(t, "next-token", page.ContinuationToken)
		}
	})

	t.Run("oversized limit capped", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		task := runningTask(time.Now().Add(time.Hour))

		app.db.On("GetTask", ctx, "T1").Return(task, nil)
		app.db.On("ListArtifacts", ctx, "T1", 0,
			store.ListQuery{Limit: MaxPageLimit}).
			Return(nil, "", nil)

		_, err := app.ListArtifacts(ctx, "T1", 0,
			store.ListQuery{Limit: 100000})
		assert.NoError(t, err)
	})

	t.Run("invalid continuation token", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		task := runningTask(time.Now().Add(time.Hour))

		app.db.On("GetTask", ctx, "T1").Return(task, nil)
		app.db.On("ListArtifacts", ctx, "T1", 0, mock.Anything).
			Return(nil, "", store.ErrInvalidContinuation)

		_, err := app.ListArtifacts(ctx, "T1", 0,
			store.ListQuery{ContinuationToken: "%%%"})
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		ctx := context.Background()
		task := runningTask(time.Now().Add(time.Hour))

		app.db.On("GetTask", ctx, "T1").Return(task, nil)

		_, err := app.ListArtifacts(ctx, "T1", 7, store.ListQuery{})
		var notFoundErr *NotFoundError
		assert.ErrorAs(t, err, &notFoundErr)
	})
}

func TestListLatestArtifacts(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()

	task := &model.Task{
		ID:      "T1",
		Expires: time.Now().Add(time.Hour),
		Runs: []model.TaskRun{
			{State: model.RunStateFailed},
			{State: model.RunStateRunning},
		},
	}
	app.db.On("GetTask", ctx, "T1").Return(task, nil)
	app.db.On("ListArtifacts", ctx, "T1", 1,
		store.ListQuery{Limit: DefaultPageLimit}).
		Return(nil, "", nil)

	page, err := app.ListLatestArtifacts(ctx, "T1", store.ListQuery{})
	if assert.NoError(t, err) {
		assert.Empty(t, page.Artifacts)
		assert.Empty(t, page.ContinuationToken)
	}
}
