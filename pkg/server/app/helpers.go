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
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Stamp formats a plan version stamp for string-exact comparison
func Stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// advanceStamp moves the plan's version stamp to the current clock time.
// The stamp must strictly increase on every successful apply, so if the
// clock has not moved past the previous stamp it is bumped by a
// millisecond instead.
func (a *App) advanceStamp(tx *gorm.DB, plan *database.Plan) error {
	now := a.Clock.Now().UTC()
	if !now.After(plan.UpdatedAt) {
		now = plan.UpdatedAt.Add(time.Millisecond)
	}

	if err := tx.Model(&database.Plan{}).Where("id = ?", plan.ID).Update("updated_at", now).Error; err != nil {
		return errors.Wrap(err, "advancing plan version stamp")
	}

	plan.UpdatedAt = now
	return nil
}

// ensureExercise resolves a catalog exercise by name, creating it if it
// does not exist, and returns its uuid
func ensureExercise(tx *gorm.DB, name string) (string, error) {
	if name == "" {
		return "", errors.Wrap(ErrValidation, "catalog exercise reference requires an id or a name")
	}

	var exercise database.Exercise
	err := tx.Where("name = ?", name).First(&exercise).Error
	if err == nil {
		return exercise.UUID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", errors.Wrap(err, "finding catalog exercise")
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return "", err
	}

	exercise = database.Exercise{
		UUID: uuid,
		Name: name,
	}
	if err := tx.Create(&exercise).Error; err != nil {
		return "", errors.Wrap(err, "creating catalog exercise")
	}

	return exercise.UUID, nil
}

// LoadTree reads the full phase tree of a plan, ordered by phase and
// session order numbers and by derived exercise order
func LoadTree(db *gorm.DB, planUUID string) ([]plandiff.PhaseNode, error) {
	var phases []database.Phase
	if err := db.Where("plan_uuid = ?", planUUID).Order("order_number").Find(&phases).Error; err != nil {
		return nil, errors.Wrap(err, "loading phases")
	}

	phaseUUIDs := make([]string, 0, len(phases))
	for _, p := range phases {
		phaseUUIDs = append(phaseUUIDs, p.UUID)
	}

	var sessions []database.Session
	if len(phaseUUIDs) > 0 {
		if err := db.Where("phase_uuid IN ?", phaseUUIDs).Order("order_number").Find(&sessions).Error; err != nil {
			return nil, errors.Wrap(err, "loading sessions")
		}
	}

	sessionUUIDs := make([]string, 0, len(sessions))
	for _, s := range sessions {
		sessionUUIDs = append(sessionUUIDs, s.UUID)
	}

	var exercises []database.PlanExercise
	if len(sessionUUIDs) > 0 {
		if err := db.Where("session_uuid IN ?", sessionUUIDs).Order("exercise_order").Find(&exercises).Error; err != nil {
			return nil, errors.Wrap(err, "loading plan exercises")
		}
	}

	catalogNames, err := catalogNamesFor(db, exercises)
	if err != nil {
		return nil, err
	}

	exercisesBySession := make(map[string][]plandiff.ExerciseNode)
	for _, e := range exercises {
		node := exerciseNode(e)
		node.ExerciseName = catalogNames[e.ExerciseUUID]
		exercisesBySession[e.SessionUUID] = append(exercisesBySession[e.SessionUUID], node)
	}

	sessionsByPhase := make(map[string][]plandiff.SessionNode)
	for _, s := range sessions {
		node := plandiff.SessionNode{
			UUID:            s.UUID,
			PhaseUUID:       s.PhaseUUID,
			Name:            s.Name,
			OrderNumber:     s.OrderNumber,
			DurationMinutes: s.DurationMinutes,
			Exercises:       exercisesBySession[s.UUID],
		}
		sessionsByPhase[s.PhaseUUID] = append(sessionsByPhase[s.PhaseUUID], node)
	}

	tree := make([]plandiff.PhaseNode, 0, len(phases))
	for _, p := range phases {
		tree = append(tree, plandiff.PhaseNode{
			UUID:        p.UUID,
			PlanUUID:    p.PlanUUID,
			Name:        p.Name,
			OrderNumber: p.OrderNumber,
			IsActive:    p.IsActive,
			Sessions:    sessionsByPhase[p.UUID],
		})
	}

	return tree, nil
}

// catalogNamesFor resolves the catalog names referenced by the given plan
// exercises, keyed by catalog uuid
func catalogNamesFor(db *gorm.DB, exercises []database.PlanExercise) (map[string]string, error) {
	uuids := make([]string, 0, len(exercises))
	seen := make(map[string]bool)
	for _, e := range exercises {
		if e.ExerciseUUID != "" && !seen[e.ExerciseUUID] {
			seen[e.ExerciseUUID] = true
			uuids = append(uuids, e.ExerciseUUID)
		}
	}

	names := make(map[string]string)
	if len(uuids) == 0 {
		return names, nil
	}

	var catalog []database.Exercise
	if err := db.Where("uuid IN ?", uuids).Find(&catalog).Error; err != nil {
		return nil, errors.Wrap(err, "loading catalog exercises")
	}
	for _, c := range catalog {
		names[c.UUID] = c.Name
	}

	return names, nil
}

func exerciseNode(e database.PlanExercise) plandiff.ExerciseNode {
	return plandiff.ExerciseNode{
		UUID:             e.UUID,
		SessionUUID:      e.SessionUUID,
		ExerciseUUID:     e.ExerciseUUID,
		RepsMin:          e.RepsMin,
		RepsMax:          e.RepsMax,
		SetsMin:          e.SetsMin,
		SetsMax:          e.SetsMax,
		Tempo:            e.Tempo,
		RestMin:          e.RestMin,
		RestMax:          e.RestMax,
		TimeUnderTension: e.TimeUnderTension,
		Customization:    e.Customization,
		Notes:            e.Notes,
		SetOrderMarker:   e.SetOrderMarker,
	}
}

// ensureTreeUUIDs assigns a fresh uuid to every node of a client tree that
// arrived without one, so that diffing and applying can match purely by
// uuid
func ensureTreeUUIDs(tree []plandiff.PhaseNode) error {
	for pi := range tree {
		if tree[pi].UUID == "" {
			uuid, err := helpers.GenUUID()
			if err != nil {
				return err
			}
			tree[pi].UUID = uuid
		}

		for si := range tree[pi].Sessions {
			if tree[pi].Sessions[si].UUID == "" {
				uuid, err := helpers.GenUUID()
				if err != nil {
					return err
				}
				tree[pi].Sessions[si].UUID = uuid
			}

			for ei := range tree[pi].Sessions[si].Exercises {
				if tree[pi].Sessions[si].Exercises[ei].UUID == "" {
					uuid, err := helpers.GenUUID()
					if err != nil {
						return err
					}
					tree[pi].Sessions[si].Exercises[ei].UUID = uuid
				}
			}
		}
	}

	return nil
}
