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

import app "github.com/mendersoftware/taskqueue-artifacts/app"
import model "github.com/mendersoftware/taskqueue-artifacts/model"
import store "github.com/mendersoftware/taskqueue-artifacts/store"

// App is an auto-generated mock type for the App type
type App struct {
	mock.Mock
}

// HealthCheck provides a mock function with given fields: ctx
func (_m *App) HealthCheck(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// CreateArtifact provides a mock function with given fields: ctx, taskID, runID, name, request
func (_m *App) CreateArtifact(ctx context.Context, taskID string, runID int, name string, request *model.ArtifactRequest) (*model.ArtifactPostResponse, error) {
	ret := _m.Called(ctx, taskID, runID, name, request)

	var r0 *model.ArtifactPostResponse
	if rf, ok := ret.Get(0).(func(context.Context, string, int, string, *model.ArtifactRequest) *model.ArtifactPostResponse); ok {
		r0 = rf(ctx, taskID, runID, name, request)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ArtifactPostResponse)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int, string, *model.ArtifactRequest) error); ok {
		r1 = rf(ctx, taskID, runID, name, request)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetArtifactURL provides a mock function with given fields: ctx, taskID, runID, name, origin
func (_m *App) GetArtifactURL(ctx context.Context, taskID string, runID int, name string, origin app.RequestOrigin) (*app.ArtifactAccess, error) {
	ret := _m.Called(ctx, taskID, runID, name, origin)

	var r0 *app.ArtifactAccess
	if rf, ok := ret.Get(0).(func(context.Context, string, int, string, app.RequestOrigin) *app.ArtifactAccess); ok {
		r0 = rf(ctx, taskID, runID, name, origin)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*app.ArtifactAccess)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int, string, app.RequestOrigin) error); ok {
		r1 = rf(ctx, taskID, runID, name, origin)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetLatestArtifactURL provides a mock function with given fields: ctx, taskID, name, origin
func (_m *App) GetLatestArtifactURL(ctx context.Context, taskID string, name string, origin app.RequestOrigin) (*app.ArtifactAccess, error) {
	ret := _m.Called(ctx, taskID, name, origin)

	var r0 *app.ArtifactAccess
	if rf, ok := ret.Get(0).(func(context.Context, string, string, app.RequestOrigin) *app.ArtifactAccess); ok {
		r0 = rf(ctx, taskID, name, origin)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*app.ArtifactAccess)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, string, app.RequestOrigin) error); ok {
		r1 = rf(ctx, taskID, name, origin)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListArtifacts provides a mock function with given fields: ctx, taskID, runID, query
func (_m *App) ListArtifacts(ctx context.Context, taskID string, runID int, query store.ListQuery) (*model.ArtifactPage, error) {
	ret := _m.Called(ctx, taskID, runID, query)

	var r0 *model.ArtifactPage
	if rf, ok := ret.Get(0).(func(context.Context, string, int, store.ListQuery) *model.ArtifactPage); ok {
		r0 = rf(ctx, taskID, runID, query)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ArtifactPage)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, int, store.ListQuery) error); ok {
		r1 = rf(ctx, taskID, runID, query)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// ListLatestArtifacts provides a mock function with given fields: ctx, taskID, query
func (_m *App) ListLatestArtifacts(ctx context.Context, taskID string, query store.ListQuery) (*model.ArtifactPage, error) {
	ret := _m.Called(ctx, taskID, query)

	var r0 *model.ArtifactPage
	if rf, ok := ret.Get(0).(func(context.Context, string, store.ListQuery) *model.ArtifactPage); ok {
		r0 = rf(ctx, taskID, query)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.ArtifactPage)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, store.ListQuery) error); ok {
		r1 = rf(ctx, taskID, query)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
