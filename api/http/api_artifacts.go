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

package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ant0ine/go-json-rest/rest"
	"github.com/pkg/errors"

	"github.com/mendersoftware/go-lib-micro/log"
	"github.com/mendersoftware/go-lib-micro/requestlog"
	"github.com/mendersoftware/go-lib-micro/rest_utils"

	"github.com/mendersoftware/taskqueue-artifacts/app"
	"github.com/mendersoftware/taskqueue-artifacts/authz"
	"github.com/mendersoftware/taskqueue-artifacts/model"
	"github.com/mendersoftware/taskqueue-artifacts/store"
)

const (
	ParamTaskID = "taskId"
	ParamRunID  = "runId"
	ParamName   = "name"

	QueryContinuationToken = "continuationToken"
	QueryLimit             = "limit"

	// HdrSkipCache forces the un-cached CDN form of public s3 URLs.
	HdrSkipCache    = "X-Taskcluster-Skip-Cache"
	HdrForwardedFor = "X-Forwarded-For"
	HdrLocation     = "Location"
)

type ArtifactsApiHandlers struct {
	app app.App
}

func NewArtifactsApiHandlers(app app.App) *ArtifactsApiHandlers {
	return &ArtifactsApiHandlers{
		app: app,
	}
}

func (h *ArtifactsApiHandlers) AliveHandler(w rest.ResponseWriter, r *rest.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *ArtifactsApiHandlers) HealthHandler(w rest.ResponseWriter, r *rest.Request) {
	l := requestlog.GetRequestLogger(r)
	ctx := r.Context()
	err := h.app.HealthCheck(ctx)
	if err != nil {
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseRunID(r *rest.Request) (int, error) {
	runID, err := strconv.Atoi(r.PathParam(ParamRunID))
	if err != nil || runID < 0 {
		return -1, errors.New("runId must be a non-negative integer")
	}
	return runID, nil
}

func parseListQuery(r *rest.Request) (store.ListQuery, error) {
	query := store.ListQuery{
		ContinuationToken: r.URL.Query().Get(QueryContinuationToken),
	}
	if limit := r.URL.Query().Get(QueryLimit); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return query, errors.New("limit must be a non-negative integer")
		}
		query.Limit = n
	}
	return query, nil
}

func requestOrigin(r *rest.Request) app.RequestOrigin {
	skipCache := strings.ToLower(r.Header.Get(HdrSkipCache))
	return app.RequestOrigin{
		RemoteAddr:   r.RemoteAddr,
		ForwardedFor: r.Header.Get(HdrForwardedFor),
		SkipCache:    skipCache == "true" || skipCache == "1",
	}
}

func (h *ArtifactsApiHandlers) CreateArtifact(w rest.ResponseWriter, r *rest.Request) {
	l := requestlog.GetRequestLogger(r)

	taskID := r.PathParam(ParamTaskID)
	name := r.PathParam(ParamName)
	runID, err := parseRunID(r)
	if err != nil {
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusBadRequest)
		return
	}

	var request model.ArtifactRequest
	if err := r.DecodeJsonPayload(&request); err != nil {
		rest_utils.RestErrWithLog(w, r, l,
			errors.Wrap(err, "invalid artifact request"),
			http.StatusBadRequest)
		return
	}

	reply, err := h.app.CreateArtifact(r.Context(), taskID, runID, name, &request)
	if err != nil {
		h.renderAppError(w, r, l, err)
		return
	}
	_ = w.WriteJson(reply)
}

func (h *ArtifactsApiHandlers) GetArtifact(w rest.ResponseWriter, r *rest.Request) {
	l := requestlog.GetRequestLogger(r)

	taskID := r.PathParam(ParamTaskID)
	name := r.PathParam(ParamName)
	runID, err := parseRunID(r)
	if err != nil {
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusBadRequest)
		return
	}

	access, err := h.app.GetArtifactURL(
		r.Context(), taskID, runID, name, requestOrigin(r),
	)
	if err != nil {
		h.renderAppError(w, r, l, err)
		return
	}
	renderArtifactAccess(w, access)
}

func (h *ArtifactsApiHandlers) GetLatestArtifact(w rest.ResponseWriter, r *rest.Request) {
	l := requestlog.GetRequestLogger(r)

	taskID := r.PathParam(ParamTaskID)
	name := r.PathParam(ParamName)

	access, err := h.app.GetLatestArtifactURL(
		r.Context(), taskID, name, requestOrigin(r),
	)
	if err != nil {
		h.renderAppError(w, r, l, err)
		return
	}
	renderArtifactAccess(w, access)
}

// renderArtifactAccess writes the 303 redirect, or the stored failure
// of an error artifact as a plain 403 body.
func renderArtifactAccess(w rest.ResponseWriter, access *app.ArtifactAccess) {
	if access.Error != nil {
		w.WriteHeader(http.StatusForbidden)
		_ = w.WriteJson(map[string]string{
			"reason":  access.Error.Reason,
			"message": access.Error.Message,
		})
		return
	}
	w.Header().Add(HdrLocation, access.URL)
	w.WriteHeader(http.StatusSeeOther)
}

func (h *ArtifactsApiHandlers) ListArtifacts(w rest.ResponseWriter, r *rest.Request) {
	l := requestlog.GetRequestLogger(r)

	taskID := r.PathParam(ParamTaskID)
	runID, err := parseRunID(r)
	if err != nil {
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusBadRequest)
		return
	}
	query, err := parseListQuery(r)
	if err != nil {
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusBadRequest)
		return
	}

	page, err := h.app.ListArtifacts(r.Context(), taskID, runID, query)
	if err != nil {
		h.renderAppError(w, r, l, err)
		return
	}
	_ = w.WriteJson(page)
}

func (h *ArtifactsApiHandlers) ListLatestArtifacts(w rest.ResponseWriter, r *rest.Request) {
	l := requestlog.GetRequestLogger(r)

	taskID := r.PathParam(ParamTaskID)
	query, err := parseListQuery(r)
	if err != nil {
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusBadRequest)
		return
	}

	page, err := h.app.ListLatestArtifacts(r.Context(), taskID, query)
	if err != nil {
		h.renderAppError(w, r, l, err)
		return
	}
	_ = w.WriteJson(page)
}

func (h *ArtifactsApiHandlers) renderAppError(
	w rest.ResponseWriter,
	r *rest.Request,
	l *log.Logger,
	err error,
) {
	var (
		inputErr    *app.InputError
		conflictErr *app.ConflictError
		notFoundErr *app.NotFoundError
	)
	switch {
	case errors.Is(err, authz.ErrForbidden):
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusForbidden)
	case errors.As(err, &inputErr):
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusBadRequest)
	case errors.As(err, &conflictErr):
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusConflict)
	case errors.As(err, &notFoundErr):
		rest_utils.RestErrWithLog(w, r, l, err, http.StatusNotFound)
	default:
		rest_utils.RestErrWithLogInternal(w, r, l, err)
	}
}
