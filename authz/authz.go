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

// Package authz implements scope-based request authorization. The
// gateway authenticates callers and forwards the scopes they hold in a
// request header; this package checks those scopes against the scope
// sets an operation requires.
package authz

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/pkg/errors"
)

// ScopesHeader carries the caller's scopes as a JSON array of strings.
const ScopesHeader = "X-Authorization-Scopes"

var ErrForbidden = errors.New("authorization: insufficient scopes")

type contextKey int

const ctxKeyScopes contextKey = 0

// Authorizer decides whether the request context satisfies a scope
// expression.
//
//go:generate ../utils/mockgen.sh
type Authorizer interface {
	// Satisfies returns nil when the scopes in ctx satisfy at least one
	// of the given scope sets. A set is satisfied when every scope in
	// it is covered by a held scope.
	Satisfies(ctx context.Context, scopeSets [][]string) error
}

// ScopeMiddleware extracts the caller scopes from the request header
// into the request context.
type ScopeMiddleware struct{}

func (mw *ScopeMiddleware) MiddlewareFunc(h rest.HandlerFunc) rest.HandlerFunc {
	return func(w rest.ResponseWriter, r *rest.Request) {
		if header := r.Header.Get(ScopesHeader); header != "" {
			var scopes []string
			if err := json.Unmarshal([]byte(header), &scopes); err == nil {
				ctx := WithScopes(r.Context(), scopes)
				r.Request = r.WithContext(ctx)
			}
		}
		h(w, r)
	}
}

// WithScopes attaches the caller scopes to the context.
func WithScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, ctxKeyScopes, scopes)
}

// ScopesFromContext returns the caller scopes, or nil for an
// unauthenticated request.
func ScopesFromContext(ctx context.Context) []string {
	scopes, _ := ctx.Value(ctxKeyScopes).([]string)
	return scopes
}

// New returns the default scope authorizer.
func New() Authorizer {
	return &scopeAuthorizer{}
}

type scopeAuthorizer struct{}

func (a *scopeAuthorizer) Satisfies(ctx context.Context, scopeSets [][]string) error {
	held := ScopesFromContext(ctx)
	for _, set := range scopeSets {
		if satisfiesSet(held, set) {
			return nil
		}
	}
	return ErrForbidden
}

func satisfiesSet(held, required []string) bool {
	for _, scope := range required {
		if !satisfiesScope(held, scope) {
			return false
		}
	}
	return true
}

// satisfiesScope implements scope expansion: a held scope covers the
// required one when equal, or when the held scope ends in '*' and its
// prefix matches.
func satisfiesScope(held []string, required string) bool {
	for _, scope := range held {
		if scope == required {
			return true
		}
		if strings.HasSuffix(scope, "*") &&
			strings.HasPrefix(required, scope[:len(scope)-1]) {
			return true
		}
	}
	return false
}
