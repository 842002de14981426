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
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/operations"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/presenters"
	"github.com/gorilla/mux"
)

// NewPlans creates a new Plans controller.
func NewPlans(app *app.App) *Plans {
	return &Plans{
		app: app,
	}
}

// Plans is a plan controller.
type Plans struct {
	app *app.App
}

// V3Show returns a plan with its full phase tree
func (p *Plans) V3Show(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	vars := mux.Vars(r)
	planUUID := vars["planUUID"]

	plan, ok, err := operations.GetPlan(p.app.DB, planUUID, user)
	if err != nil {
		handleJSONError(w, err, "finding plan")
		return
	}
	if !ok {
		handleJSONError(w, app.ErrPlanNotFound, "finding plan")
		return
	}

	tree, err := app.LoadTree(p.app.DB, plan.UUID)
	if err != nil {
		handleJSONError(w, err, "loading plan tree")
		return
	}

	respondJSON(w, http.StatusOK, presenters.PresentPlan(plan, tree))
}
