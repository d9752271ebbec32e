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
	"github.com/ant0ine/go-json-rest/rest"

	"github.com/mendersoftware/taskqueue-artifacts/app"
)

const (
	ApiUrlV1       = "/api/v1"
	ApiUrlInternal = "/api/internal/v1/taskqueue-artifacts"

	ApiUrlV1RunArtifact   = ApiUrlV1 + "/task/#taskId/runs/#runId/artifacts/*name"
	ApiUrlV1RunArtifacts  = ApiUrlV1 + "/task/#taskId/runs/#runId/artifacts"
	ApiUrlV1TaskArtifact  = ApiUrlV1 + "/task/#taskId/artifacts/*name"
	ApiUrlV1TaskArtifacts = ApiUrlV1 + "/task/#taskId/artifacts"

	ApiUrlInternalAlive  = ApiUrlInternal + "/alive"
	ApiUrlInternalHealth = ApiUrlInternal + "/health"
)

// NewRouter defines all REST API routes.
func NewRouter(artifacts app.App) (rest.App, error) {

	handlers := NewArtifactsApiHandlers(artifacts)

	routes := append(ArtifactsRoutes(handlers), StatusRoutes(handlers)...)
	return rest.MakeRouter(routes...)
}

func ArtifactsRoutes(controller *ArtifactsApiHandlers) []*rest.Route {

	if controller == nil {
		return []*rest.Route{}
	}

	return []*rest.Route{
		rest.Post(ApiUrlV1RunArtifact, controller.CreateArtifact),
		rest.Get(ApiUrlV1RunArtifact, controller.GetArtifact),
		rest.Get(ApiUrlV1RunArtifacts, controller.ListArtifacts),

		rest.Get(ApiUrlV1TaskArtifact, controller.GetLatestArtifact),
		rest.Get(ApiUrlV1TaskArtifacts, controller.ListLatestArtifacts),
	}
}

func StatusRoutes(controller *ArtifactsApiHandlers) []*rest.Route {

	if controller == nil {
		return []*rest.Route{}
	}

	return []*rest.Route{
		rest.Get(ApiUrlInternalAlive, controller.AliveHandler),
		rest.Get(ApiUrlInternalHealth, controller.HealthHandler),
	}
}
