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

package operations

import (
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/permissions"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// GetPlan retrieves a plan for the given user
func GetPlan(db *gorm.DB, uuid string, user *database.User) (database.Plan, bool, error) {
	zeroPlan := database.Plan{}
	if !helpers.ValidateUUID(uuid) {
		return zeroPlan, false, nil
	}

	var plan database.Plan
	err := db.Where("uuid = ?", uuid).First(&plan).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zeroPlan, false, nil
	} else if err != nil {
		return zeroPlan, false, errors.Wrap(err, "finding plan")
	}

	if ok := permissions.ViewPlan(user, plan); !ok {
		return zeroPlan, false, nil
	}

	return plan, true, nil
}

// GetEditablePlan retrieves a plan the given user may mutate
func GetEditablePlan(db *gorm.DB, uuid string, user *database.User) (database.Plan, bool, error) {
	plan, ok, err := GetPlan(db, uuid, user)
	if err != nil || !ok {
		return database.Plan{}, ok, err
	}

	if !permissions.EditPlan(user, plan) {
		return database.Plan{}, false, nil
	}

	return plan, true, nil
}
