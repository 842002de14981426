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

package app

import (
	"fmt"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// withPlan runs fn inside a transaction against the plan with the given
// uuid and advances the plan's version stamp afterwards. When lastKnown is
// non-empty it is compared string-exactly against the current stamp and a
// mismatch aborts with ErrPlanModified before fn runs.
func (a *App) withPlan(planUUID, lastKnown string, fn func(tx *gorm.DB, plan *database.Plan) error) error {
	return a.DB.Transaction(func(tx *gorm.DB) error {
		var plan database.Plan
		err := tx.Where("uuid = ?", planUUID).First(&plan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		} else if err != nil {
			return errors.Wrap(err, "loading plan")
		}

		if lastKnown != "" && lastKnown != Stamp(plan.UpdatedAt) {
			return ErrPlanModified
		}

		if err := fn(tx, &plan); err != nil {
			return err
		}

		return a.advanceStamp(tx, &plan)
	})
}

// planUUIDForPhase resolves the owning plan of a phase
func planUUIDForPhase(db *gorm.DB, phaseUUID string) (string, error) {
	var phase database.Phase
	err := db.Where("uuid = ?", phaseUUID).First(&phase).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrPhaseNotFound
	} else if err != nil {
		return "", errors.Wrap(err, "loading phase")
	}

	return phase.PlanUUID, nil
}

// planUUIDForSession resolves the owning plan of a session
func planUUIDForSession(db *gorm.DB, sessionUUID string) (string, error) {
	var session database.Session
	err := db.Where("uuid = ?", sessionUUID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrSessionNotFound
	} else if err != nil {
		return "", errors.Wrap(err, "loading session")
	}

	return planUUIDForPhase(db, session.PhaseUUID)
}

// CreatePhaseParams is the input for creating a phase. An empty PlanUUID
// creates a new plan for the given trainer and client along with the
// phase.
type CreatePhaseParams struct {
	PlanUUID           string `json:"planId,omitempty"`
	TrainerUUID        string `json:"trainerId,omitempty"`
	ClientUUID         string `json:"clientId,omitempty"`
	Name               string `json:"name"`
	OrderNumber        *int   `json:"orderNumber,omitempty"`
	IsActive           bool   `json:"isActive"`
	LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
}

// CreatePhase creates a phase, creating the plan first when no plan uuid
// is supplied
func (a *App) CreatePhase(p CreatePhaseParams) (database.Phase, error) {
	if p.PlanUUID == "" {
		result := a.SyncPlan(SyncParams{TrainerUUID: p.TrainerUUID, ClientUUID: p.ClientUUID})
		if !result.Success {
			return database.Phase{}, errors.Wrap(ErrValidation, result.Error)
		}
		p.PlanUUID = result.PlanUUID
		// a stamp supplied without a plan id refers to no plan; ignore it
		p.LastKnownUpdatedAt = ""
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.Phase{}, err
	}

	var phase database.Phase
	err = a.withPlan(p.PlanUUID, p.LastKnownUpdatedAt, func(tx *gorm.DB, plan *database.Plan) error {
		orderNumber, err := nextOrderNumber(tx, &database.Phase{}, "plan_uuid = ?", plan.UUID)
		if err != nil {
			return err
		}
		if p.OrderNumber != nil {
			orderNumber = *p.OrderNumber
		}

		phase = database.Phase{
			UUID:        uuid,
			PlanUUID:    plan.UUID,
			Name:        p.Name,
			OrderNumber: orderNumber,
			IsActive:    p.IsActive,
		}

		return errors.Wrap(tx.Create(&phase).Error, "inserting phase")
	})

	return phase, err
}

// PhaseUpdate is a partial update to a phase; nil fields are left unchanged
type PhaseUpdate struct {
	Name        *string `json:"name,omitempty"`
	OrderNumber *int    `json:"orderNumber,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// UpdatePhase applies a partial update to a phase
func (a *App) UpdatePhase(phaseUUID string, u PhaseUpdate, lastKnown string) error {
	planUUID, err := planUUIDForPhase(a.DB, phaseUUID)
	if err != nil {
		return err
	}

	return a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		changes := map[string]interface{}{}
		if u.Name != nil {
			changes["name"] = *u.Name
		}
		if u.OrderNumber != nil {
			changes["order_number"] = *u.OrderNumber
		}
		if u.IsActive != nil {
			changes["is_active"] = *u.IsActive
		}

		if len(changes) == 0 {
			return nil
		}

		return errors.Wrap(tx.Model(&database.Phase{}).Where("uuid = ?", phaseUUID).Updates(changes).Error, "updating phase")
	})
}

// DeletePhase deletes a phase and cascades to its sessions and their
// exercises
func (a *App) DeletePhase(phaseUUID, lastKnown string) error {
	planUUID, err := planUUIDForPhase(a.DB, phaseUUID)
	if err != nil {
		return err
	}

	return a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		return applyDeletes(tx, &plandiff.TreeDiff{PhasesDeleted: []string{phaseUUID}})
	})
}

// DuplicatePhase copies a phase with its sessions and exercises under
// fresh uuids, appended at the end of the plan
func (a *App) DuplicatePhase(phaseUUID, lastKnown string) (database.Phase, error) {
	planUUID, err := planUUIDForPhase(a.DB, phaseUUID)
	if err != nil {
		return database.Phase{}, err
	}

	var copied database.Phase
	err = a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		var phase database.Phase
		if err := tx.Where("uuid = ?", phaseUUID).First(&phase).Error; err != nil {
			return errors.Wrap(err, "loading phase")
		}

		orderNumber, err := nextOrderNumber(tx, &database.Phase{}, "plan_uuid = ?", plan.UUID)
		if err != nil {
			return err
		}

		uuid, err := helpers.GenUUID()
		if err != nil {
			return err
		}

		copied = database.Phase{
			UUID:        uuid,
			PlanUUID:    plan.UUID,
			Name:        fmt.Sprintf("%s (copy)", phase.Name),
			OrderNumber: orderNumber,
			IsActive:    false,
		}
		if err := tx.Create(&copied).Error; err != nil {
			return errors.Wrap(err, "inserting phase copy")
		}

		var sessions []database.Session
		if err := tx.Where("phase_uuid = ?", phaseUUID).Order("order_number").Find(&sessions).Error; err != nil {
			return errors.Wrap(err, "loading sessions")
		}

		for _, s := range sessions {
			if _, err := copySession(tx, s, copied.UUID, s.OrderNumber, s.Name); err != nil {
				return err
			}
		}

		return nil
	})

	return copied, err
}

// ActivatePhase marks a phase active and deactivates its siblings
func (a *App) ActivatePhase(phaseUUID, lastKnown string) error {
	planUUID, err := planUUIDForPhase(a.DB, phaseUUID)
	if err != nil {
		return err
	}

	return a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		if err := tx.Model(&database.Phase{}).Where("plan_uuid = ? AND uuid != ?", plan.UUID, phaseUUID).Update("is_active", false).Error; err != nil {
			return errors.Wrap(err, "deactivating sibling phases")
		}

		return errors.Wrap(tx.Model(&database.Phase{}).Where("uuid = ?", phaseUUID).Update("is_active", true).Error, "activating phase")
	})
}

// CreateSessionParams is the input for creating a session
type CreateSessionParams struct {
	PhaseUUID          string `json:"phaseId"`
	Name               string `json:"name"`
	OrderNumber        *int   `json:"orderNumber,omitempty"`
	DurationMinutes    int    `json:"durationMinutes"`
	LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
}

// CreateSession creates a session within a phase
func (a *App) CreateSession(p CreateSessionParams) (database.Session, error) {
	planUUID, err := planUUIDForPhase(a.DB, p.PhaseUUID)
	if err != nil {
		return database.Session{}, err
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.Session{}, err
	}

	var session database.Session
	err = a.withPlan(planUUID, p.LastKnownUpdatedAt, func(tx *gorm.DB, plan *database.Plan) error {
		orderNumber, err := nextOrderNumber(tx, &database.Session{}, "phase_uuid = ?", p.PhaseUUID)
		if err != nil {
			return err
		}
		if p.OrderNumber != nil {
			orderNumber = *p.OrderNumber
		}

		session = database.Session{
			UUID:            uuid,
			PhaseUUID:       p.PhaseUUID,
			Name:            p.Name,
			OrderNumber:     orderNumber,
			DurationMinutes: p.DurationMinutes,
		}

		return errors.Wrap(tx.Create(&session).Error, "inserting session")
	})

	return session, err
}

// SessionUpdate is a partial update to a session; nil fields are left
// unchanged
type SessionUpdate struct {
	Name            *string `json:"name,omitempty"`
	OrderNumber     *int    `json:"orderNumber,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
}

// UpdateSession applies a partial update to a session
func (a *App) UpdateSession(sessionUUID string, u SessionUpdate, lastKnown string) error {
	planUUID, err := planUUIDForSession(a.DB, sessionUUID)
	if err != nil {
		return err
	}

	return a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		changes := map[string]interface{}{}
		if u.Name != nil {
			changes["name"] = *u.Name
		}
		if u.OrderNumber != nil {
			changes["order_number"] = *u.OrderNumber
		}
		if u.DurationMinutes != nil {
			changes["duration_minutes"] = *u.DurationMinutes
		}

		if len(changes) == 0 {
			return nil
		}

		return errors.Wrap(tx.Model(&database.Session{}).Where("uuid = ?", sessionUUID).Updates(changes).Error, "updating session")
	})
}

// DeleteSession deletes a session and cascades to its exercises
func (a *App) DeleteSession(sessionUUID, lastKnown string) error {
	planUUID, err := planUUIDForSession(a.DB, sessionUUID)
	if err != nil {
		return err
	}

	return a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		return applyDeletes(tx, &plandiff.TreeDiff{SessionsDeleted: []string{sessionUUID}})
	})
}

// DuplicateSession copies a session with its exercises under fresh uuids,
// appended at the end of its phase
func (a *App) DuplicateSession(sessionUUID, lastKnown string) (database.Session, error) {
	planUUID, err := planUUIDForSession(a.DB, sessionUUID)
	if err != nil {
		return database.Session{}, err
	}

	var copied database.Session
	err = a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		var session database.Session
		if err := tx.Where("uuid = ?", sessionUUID).First(&session).Error; err != nil {
			return errors.Wrap(err, "loading session")
		}

		orderNumber, err := nextOrderNumber(tx, &database.Session{}, "phase_uuid = ?", session.PhaseUUID)
		if err != nil {
			return err
		}

		copied, err = copySession(tx, session, session.PhaseUUID, orderNumber, fmt.Sprintf("%s (copy)", session.Name))
		return err
	})

	return copied, err
}

// SaveExerciseParams is the input to saving a plan exercise. IsNew
// distinguishes creation from update of an existing row.
type SaveExerciseParams struct {
	IsNew              bool                  `json:"isNew"`
	Exercise           plandiff.ExerciseNode `json:"exercise"`
	LastKnownUpdatedAt string                `json:"lastKnownUpdatedAt,omitempty"`
}

// SaveExercise creates or updates one prescribed exercise within a session
func (a *App) SaveExercise(p SaveExerciseParams) (database.PlanExercise, error) {
	if p.Exercise.SessionUUID == "" {
		return database.PlanExercise{}, errors.Wrap(ErrValidation, "sessionUuid is required")
	}

	planUUID, err := planUUIDForSession(a.DB, p.Exercise.SessionUUID)
	if err != nil {
		return database.PlanExercise{}, err
	}

	var saved database.PlanExercise
	err = a.withPlan(planUUID, p.LastKnownUpdatedAt, func(tx *gorm.DB, plan *database.Plan) error {
		if p.IsNew {
			if p.Exercise.UUID == "" {
				uuid, err := helpers.GenUUID()
				if err != nil {
					return err
				}
				p.Exercise.UUID = uuid
			}

			if err := applyInserts(tx, plan, &plandiff.TreeDiff{ExercisesAdded: []plandiff.ExerciseNode{p.Exercise}}); err != nil {
				return err
			}
		} else {
			var existing database.PlanExercise
			err := tx.Where("uuid = ?", p.Exercise.UUID).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrExerciseNotFound
			} else if err != nil {
				return errors.Wrap(err, "loading plan exercise")
			}

			changes := map[string]interface{}{
				"reps_min":           p.Exercise.RepsMin,
				"reps_max":           p.Exercise.RepsMax,
				"sets_min":           p.Exercise.SetsMin,
				"sets_max":           p.Exercise.SetsMax,
				"tempo":              p.Exercise.Tempo,
				"rest_min":           p.Exercise.RestMin,
				"rest_max":           p.Exercise.RestMax,
				"time_under_tension": p.Exercise.TimeUnderTension,
				"customization":      p.Exercise.Customization,
				"notes":              p.Exercise.Notes,
				"set_order_marker":   p.Exercise.SetOrderMarker,
			}
			if p.Exercise.ExerciseUUID != "" {
				changes["exercise_uuid"] = p.Exercise.ExerciseUUID
			}

			if err := tx.Model(&existing).Updates(changes).Error; err != nil {
				return errors.Wrap(err, "updating plan exercise")
			}
		}

		if err := recomputeExerciseOrder(tx, plan.UUID); err != nil {
			return err
		}

		return errors.Wrap(tx.Where("uuid = ?", p.Exercise.UUID).First(&saved).Error, "reloading plan exercise")
	})

	return saved, err
}

// DeleteExercise removes one prescribed exercise from its session
func (a *App) DeleteExercise(exerciseUUID, lastKnown string) error {
	var exercise database.PlanExercise
	err := a.DB.Where("uuid = ?", exerciseUUID).First(&exercise).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrExerciseNotFound
	} else if err != nil {
		return errors.Wrap(err, "loading plan exercise")
	}

	planUUID, err := planUUIDForSession(a.DB, exercise.SessionUUID)
	if err != nil {
		return err
	}

	return a.withPlan(planUUID, lastKnown, func(tx *gorm.DB, plan *database.Plan) error {
		if err := tx.Where("uuid = ?", exerciseUUID).Delete(&database.PlanExercise{}).Error; err != nil {
			return errors.Wrap(err, "deleting plan exercise")
		}

		return recomputeExerciseOrder(tx, plan.UUID)
	})
}

// copySession duplicates a session row and its exercises into the given
// phase with the given order number and name
func copySession(tx *gorm.DB, src database.Session, phaseUUID string, orderNumber int, name string) (database.Session, error) {
	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.Session{}, err
	}

	copied := database.Session{
		UUID:            uuid,
		PhaseUUID:       phaseUUID,
		Name:            name,
		OrderNumber:     orderNumber,
		DurationMinutes: src.DurationMinutes,
	}
	if err := tx.Create(&copied).Error; err != nil {
		return database.Session{}, errors.Wrap(err, "inserting session copy")
	}

	var exercises []database.PlanExercise
	if err := tx.Where("session_uuid = ?", src.UUID).Order("exercise_order").Find(&exercises).Error; err != nil {
		return database.Session{}, errors.Wrap(err, "loading exercises to copy")
	}

	for i := range exercises {
		exerciseUUID, err := helpers.GenUUID()
		if err != nil {
			return database.Session{}, err
		}

		exercises[i].ID = 0
		exercises[i].UUID = exerciseUUID
		exercises[i].SessionUUID = copied.UUID
	}

	if len(exercises) > 0 {
		if err := tx.CreateInBatches(exercises, insertChunkSize).Error; err != nil {
			return database.Session{}, errors.Wrap(err, "inserting exercise copies")
		}
	}

	return copied, nil
}

// nextOrderNumber returns one past the highest order number matching the
// condition
func nextOrderNumber(tx *gorm.DB, model interface{}, query string, args ...interface{}) (int, error) {
	var max *int
	if err := tx.Model(model).Where(query, args...).Select("MAX(order_number)").Scan(&max).Error; err != nil {
		return 0, errors.Wrap(err, "finding max order number")
	}

	if max == nil {
		return 0, nil
	}

	return *max + 1, nil
}
