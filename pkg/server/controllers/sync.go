/* Copyright 2025 GymFlow Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package controllers

import (
	"net/http"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/context"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/operations"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/presenters"
)

// NewSync creates a new Sync controller.
func NewSync(app *app.App) *Sync {
	return &Sync{
		app: app,
	}
}

// Sync is a plan synchronization controller.
type Sync struct {
	app *app.App
}

// syncStatusCode derives the HTTP status code from a synchronization
// outcome. A conflict is an expected outcome and carries the result body
// so that the caller can re-fetch and re-diff.
func syncStatusCode(result app.SyncResult) int {
	switch {
	case result.Success:
		return http.StatusOK
	case result.Conflict:
		return http.StatusConflict
	case result.NotFound:
		return http.StatusNotFound
	case result.Error == "internal error":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// V3Sync applies a plan synchronization request
func (s *Sync) V3Sync(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var params app.SyncParams
	if err := parseRequestData(r, &params); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if params.PlanUUID == "" {
		if params.TrainerUUID == "" {
			params.TrainerUUID = user.UUID
		}
	} else {
		_, ok, err := operations.GetEditablePlan(s.app.DB, params.PlanUUID, user)
		if err != nil {
			handleJSONError(w, err, "finding plan")
			return
		}
		if !ok {
			respondJSON(w, http.StatusNotFound, app.SyncResult{
				Error: app.ErrPlanNotFound.Error(),
			})
			return
		}
	}

	result := s.app.SyncPlan(params)
	if result.Conflict {
		s.respondConflict(w, params, result)
		return
	}

	respondJSON(w, syncStatusCode(result), result)
}

// SyncConflictResponse is the body of a rejected synchronization. Besides
// the server stamp it carries previews of the free-text fields the
// rejected tree diverges on, so a client can surface what would be lost
// before re-fetching.
type SyncConflictResponse struct {
	app.SyncResult
	Conflicts []presenters.ConflictPreview `json:"conflicts,omitempty"`
}

func (s *Sync) respondConflict(w http.ResponseWriter, params app.SyncParams, result app.SyncResult) {
	resp := SyncConflictResponse{SyncResult: result}

	if len(params.Tree) > 0 {
		serverTree, err := app.LoadTree(s.app.DB, result.PlanUUID)
		if err != nil {
			log.WithFields(log.Fields{
				"plan_uuid": result.PlanUUID,
			}).ErrorWrap(err, "loading tree for conflict preview")
		} else {
			resp.Conflicts = presenters.PresentSyncConflicts(serverTree, params.Tree)
		}
	}

	respondJSON(w, http.StatusConflict, resp)
}
