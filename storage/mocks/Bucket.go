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
import storage "github.com/mendersoftware/taskqueue-artifacts/storage"

import time "time"

// Bucket is an auto-generated mock type for the Bucket type
type Bucket struct {
	mock.Mock
}

// HealthCheck provides a mock function with given fields: ctx
func (_m *Bucket) HealthCheck(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Name provides a mock function with given fields:
func (_m *Bucket) Name() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// Region provides a mock function with given fields:
func (_m *Bucket) Region() string {
	ret := _m.Called()

	var r0 string
	if rf, ok := ret.Get(0).(func() string); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// PutRequest provides a mock function with given fields: ctx, key, opts
func (_m *Bucket) PutRequest(ctx context.Context, key string, opts storage.PutOptions) (*model.Link, error) {
	ret := _m.Called(ctx, key, opts)

	var r0 *model.Link
	if rf, ok := ret.Get(0).(func(context.Context, string, storage.PutOptions) *model.Link); ok {
		r0 = rf(ctx, key, opts)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Link)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, storage.PutOptions) error); ok {
		r1 = rf(ctx, key, opts)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetURL provides a mock function with given fields: key, sameRegion
func (_m *Bucket) GetURL(key string, sameRegion bool) string {
	ret := _m.Called(key, sameRegion)

	var r0 string
	if rf, ok := ret.Get(0).(func(string, bool) string); ok {
		r0 = rf(key, sameRegion)
	} else {
		r0 = ret.Get(0).(string)
	}

	return r0
}

// SignedGetRequest provides a mock function with given fields: ctx, key, expireAfter
func (_m *Bucket) SignedGetRequest(ctx context.Context, key string, expireAfter time.Duration) (*model.Link, error) {
	ret := _m.Called(ctx, key, expireAfter)

	var r0 *model.Link
	if rf, ok := ret.Get(0).(func(context.Context, string, time.Duration) *model.Link); ok {
		r0 = rf(ctx, key, expireAfter)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Link)
		}
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, string, time.Duration) error); ok {
		r1 = rf(ctx, key, expireAfter)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}
