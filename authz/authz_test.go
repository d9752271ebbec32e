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

package authz

import (
	"context"
	"testing"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/ant0ine/go-json-rest/rest/test"
	"github.com/stretchr/testify/assert"
)

func TestSatisfies(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		Name string

		Held      []string
		ScopeSets [][]string

		Err error
	}{{
		Name:      "exact match",
		Held:      []string{"queue:get-artifact:task/0/public/logs"},
		ScopeSets: [][]string{{"queue:get-artifact:task/0/public/logs"}},
	}, {
		Name:      "star expansion",
		Held:      []string{"queue:create-artifact:*"},
		ScopeSets: [][]string{{"queue:create-artifact:task/0/private/key"}},
	}, {
		Name:      "star only expands as suffix",
		Held:      []string{"queue:*:task/0/private/key"},
		ScopeSets: [][]string{{"queue:create-artifact:task/0/private/key"}},
		Err:       ErrForbidden,
	}, {
		Name: "second scope set satisfied",
		Held: []string{"queue:worker-id:wg/w1"},
		ScopeSets: [][]string{
			{"queue:create-artifact:task/0/a"},
			{"queue:worker-id:wg/w1"},
		},
	}, {
		Name:      "set requires all scopes",
		Held:      []string{"queue:create-artifact:task/0/a"},
		ScopeSets: [][]string{{"queue:create-artifact:task/0/a", "queue:worker-id:wg/w1"}},
		Err:       ErrForbidden,
	}, {
		Name:      "no scopes held",
		ScopeSets: [][]string{{"queue:get-artifact:task/0/private/key"}},
		Err:       ErrForbidden,
	}}
	for i := range testCases {
		tc := testCases[i]
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			if tc.Held != nil {
				ctx = WithScopes(ctx, tc.Held)
			}
			err := New().Satisfies(ctx, tc.ScopeSets)
			if tc.Err != nil {
				assert.ErrorIs(t, err, tc.Err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScopeMiddleware(t *testing.T) {
	t.Parallel()

	var observed []string
	api := rest.NewApi()
	api.Use(&ScopeMiddleware{})
	router, _ := rest.MakeRouter(rest.Get("/r", func(w rest.ResponseWriter, r *rest.Request) {
		observed = ScopesFromContext(r.Context())
		w.WriteHeader(204)
	}))
	api.SetApp(router)
	handler := api.MakeHandler()

	req := test.MakeSimpleRequest("GET", "http://localhost/r", nil)
	req.Header.Set(ScopesHeader, `["queue:get-artifact:*","queue:worker-id:wg/w1"]`)
	recorded := test.RunRequest(t, handler, req)
	recorded.CodeIs(204)
	assert.Equal(t,
		[]string{"queue:get-artifact:*", "queue:worker-id:wg/w1"},
		observed,
	)

	observed = []string{"sentinel"}
	req = test.MakeSimpleRequest("GET", "http://localhost/r", nil)
	recorded = test.RunRequest(t, handler, req)
	recorded.CodeIs(204)
	assert.Nil(t, observed)
}
