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
package mocks

import context "context"
import mock "github.com/stretchr/testify/mock"
import model "github.com/mendersoftware/taskqueue-artifacts/model"
import store "github.com/mendersoftware/taskqueue-artifacts/store"

import time "time"

// DataStore is an auto-generated mock type for the DataStore type
type DataStore struct {
	mock.Mock
}

// Ping provides a mock function with given fields: ctx
func (_m *DataStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// InsertArtifact provides a mock function with given fields: ctx, artifact
func (_m *DataStore) InsertArtifact(ctx context.Context, artifact *model.Artifact) error {
	ret := _m.Called(ctx, artifact)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, *model.Artifact) error); ok {
		r0 = rf(ctx, artifact)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetArtifact provides a mock function with given fields: ctx, taskID, runID, name
func (_m *DataStore) GetArtifact(ctx context.Context, taskID string, runID int, name string) (*model.Artifact, error) {
	ret := _m.Called(ctx, taskID, runID, name)

	var r0 *model.Artifact
	if rf, ok := ret.Get(0).(func(context.Context, string, int, string) *model.Artifact); ok {
		r0 = rf(ctx, taskID, runID, name)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Artifact)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int, string) error); ok {
		r1 = rf(ctx, taskID, runID, name)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// RefreshArtifact provides a mock function with given fields: ctx, taskID, runID, name, expires, details
func (_m *DataStore) RefreshArtifact(ctx context.Context, taskID string, runID int, name string, expires time.Time, details model.ArtifactDetails) error {
	ret := _m.Called(ctx, taskID, runID, name, expires, details)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int, string, time.Time, model.ArtifactDetails) error); ok {
		r0 = rf(ctx, taskID, runID, name, expires, details)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// ListArtifacts provides a mock function with given fields: ctx, taskID, runID, query
func (_m *DataStore) ListArtifacts(ctx context.Context, taskID string, runID int, query store.ListQuery) ([]model.Artifact, string, error) {
	ret := _m.Called(ctx, taskID, runID, query)

	var r0 []model.Artifact
	if rf, ok := ret.Get(0).(func(context.Context, string, int, store.ListQuery) []model.Artifact); ok {
		r0 = rf(ctx, taskID, runID, query)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]model.Artifact)
		}
	}

	var r1 string
	if rf, ok := ret.Get(1).(func(context.Context, string, int, store.ListQuery) string); ok {
		r1 = rf(ctx, taskID, runID, query)
	} else {
		r1 = ret.Get(1).(string)
	}

	var r2 error
	if rf, ok := ret.Get(2).(func(context.Context, string, int, store.ListQuery) error); ok {
		r2 = rf(ctx, taskID, runID, query)
	} else {
		r2 = ret.Error(2)
	}

	return r0, r1, r2
}

// GetTask provides a mock function with given fields: ctx, taskID
func (_m *DataStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	ret := _m.Called(ctx, taskID)

	var r0 *model.Task
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Task); ok {
		r0 = rf(ctx, taskID)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Task)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, taskID)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
