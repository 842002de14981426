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

package permissions

import (
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
)

// ViewPlan checks if the given user can view the given plan. A plan is
// visible to the owning trainer and the assigned client.
func ViewPlan(user *database.User, plan database.Plan) bool {
	if user == nil {
		return false
	}

	return plan.TrainerUUID == user.UUID || plan.ClientUUID == user.UUID
}

// EditPlan checks if the given user can mutate the given plan. Only the
// owning trainer may.
func EditPlan(user *database.User, plan database.Plan) bool {
	if user == nil {
		return false
	}

	return plan.TrainerUUID == user.UUID
}
