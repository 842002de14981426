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
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// insertChunkSize is the number of rows per insert batch. Inserts are
// chunked to respect backend batch-size limits; all chunks run inside the
// same transaction, so chunking never weakens atomicity.
const insertChunkSize = 100

// SyncParams is the input to a plan synchronization call. Omitting
// PlanUUID requests creation of a new plan. LastKnownUpdatedAt is the
// caller's last-fetched version stamp; it is compared string-exactly
// against the current one. SkipVersionCheck is the explicit
// fire-and-forget mode used by queue processors when a message carries no
// concurrency token.
type SyncParams struct {
	PlanUUID           string               `json:"planId,omitempty"`
	LastKnownUpdatedAt string               `json:"lastKnownUpdatedAt,omitempty"`
	TrainerUUID        string               `json:"trainerId,omitempty"`
	ClientUUID         string               `json:"clientId,omitempty"`
	Tree               []plandiff.PhaseNode `json:"tree,omitempty"`
	Changes            *plandiff.TreeDiff   `json:"changes,omitempty"`
	SkipVersionCheck   bool                 `json:"-"`
}

// SyncResult is the outcome of a plan synchronization call. Conflict is a
// distinct, expected outcome signaling the caller must re-fetch and
// re-diff; it is never conflated with a hard failure.
type SyncResult struct {
	Success         bool   `json:"success"`
	PlanUUID        string `json:"planId,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
	Conflict        bool   `json:"conflict"`
	Error           string `json:"error,omitempty"`
	ServerUpdatedAt string `json:"serverUpdatedAt,omitempty"`

	// NotFound marks the referenced plan as missing; it informs the HTTP
	// status choice and is not part of the wire shape
	NotFound bool `json:"-"`
}

// SyncPlan is the sole authority for mutating a plan's structure. It
// enforces optimistic concurrency and applies the computed diff in a
// single transaction; on any failure the transaction rolls back wholly and
// the caller must re-fetch and retry.
func (a *App) SyncPlan(p SyncParams) SyncResult {
	if p.PlanUUID == "" {
		return a.createPlan(p)
	}

	if p.Changes == nil {
		if err := ensureTreeUUIDs(p.Tree); err != nil {
			return SyncResult{Error: "internal error"}
		}
	}

	// The version check, the server-tree read, and the apply must all
	// observe one consistent plan state, so every read runs inside the
	// transaction. On postgres the plan row is locked for the duration.
	var result SyncResult
	err := a.DB.Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var plan database.Plan
		err := q.Where("uuid = ?", p.PlanUUID).First(&plan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		} else if err != nil {
			return errors.Wrap(err, "loading plan")
		}

		if !p.SkipVersionCheck && p.LastKnownUpdatedAt != Stamp(plan.UpdatedAt) {
			result = SyncResult{
				PlanUUID:        plan.UUID,
				Conflict:        true,
				ServerUpdatedAt: Stamp(plan.UpdatedAt),
			}
			return ErrPlanModified
		}

		diff := p.Changes
		if diff == nil {
			serverTree, err := LoadTree(tx, plan.UUID)
			if err != nil {
				return errors.Wrap(err, "loading server tree")
			}

			d := plandiff.Diff(serverTree, p.Tree)
			diff = &d
		}

		if err := a.applyDiff(tx, &plan, diff); err != nil {
			return err
		}
		if err := a.advanceStamp(tx, &plan); err != nil {
			return err
		}

		result = SyncResult{
			Success:   true,
			PlanUUID:  plan.UUID,
			UpdatedAt: Stamp(plan.UpdatedAt),
		}
		return nil
	})

	switch {
	case err == nil, errors.Is(err, ErrPlanModified):
		return result
	case errors.Is(err, ErrPlanNotFound):
		return SyncResult{Error: ErrPlanNotFound.Error(), NotFound: true}
	case errors.Is(err, ErrValidation):
		return SyncResult{PlanUUID: p.PlanUUID, Error: err.Error()}
	default:
		log.WithFields(log.Fields{"plan_uuid": p.PlanUUID}).ErrorWrap(err, "synchronizing plan")
		return SyncResult{PlanUUID: p.PlanUUID, Error: "internal error"}
	}
}

// createPlan creates a new plan together with its full descendant tree in
// one transaction, with the version stamp set to now
func (a *App) createPlan(p SyncParams) SyncResult {
	if p.TrainerUUID == "" || p.ClientUUID == "" {
		return SyncResult{Error: "trainerId and clientId are required to create a plan"}
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return SyncResult{Error: "internal error"}
	}

	if err := ensureTreeUUIDs(p.Tree); err != nil {
		return SyncResult{Error: "internal error"}
	}

	plan := database.Plan{
		UUID:        uuid,
		TrainerUUID: p.TrainerUUID,
		ClientUUID:  p.ClientUUID,
		IsActive:    true,
		UpdatedAt:   a.Clock.Now().UTC(),
	}

	phases, sessions, exercises := plandiff.Flatten(p.Tree)
	diff := &plandiff.TreeDiff{
		PhasesAdded:    phases,
		SessionsAdded:  sessions,
		ExercisesAdded: exercises,
	}

	err = a.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&plan).Error; err != nil {
			return errors.Wrap(err, "inserting plan")
		}
		return a.applyDiff(tx, &plan, diff)
	})
	if err != nil {
		if errors.Is(err, ErrValidation) {
			return SyncResult{Error: err.Error()}
		}
		log.ErrorWrap(err, "creating plan")
		return SyncResult{Error: "internal error"}
	}

	return SyncResult{
		Success:   true,
		PlanUUID:  plan.UUID,
		UpdatedAt: Stamp(plan.UpdatedAt),
	}
}

// applyDiff executes a change-set against the plan inside the caller's
// transaction. Deletes run in dependency order (exercises, sessions,
// phases), inserts in the reverse order, then field updates, and finally
// the derived exercise order is recomputed for the whole plan.
func (a *App) applyDiff(tx *gorm.DB, plan *database.Plan, d *plandiff.TreeDiff) error {
	if err := applyDeletes(tx, d); err != nil {
		return err
	}

	// Shift reordered rows out of the way before inserting, so an insert
	// can take over an order number a surviving row is moving away from.
	if err := shiftOrderNumbers(tx, "phases", d.PhasesUpdated); err != nil {
		return err
	}
	if err := shiftOrderNumbers(tx, "sessions", d.SessionsUpdated); err != nil {
		return err
	}

	if err := applyInserts(tx, plan, d); err != nil {
		return err
	}

	if err := applyUpdates(tx, d); err != nil {
		return err
	}

	return recomputeExerciseOrder(tx, plan.UUID)
}

func applyDeletes(tx *gorm.DB, d *plandiff.TreeDiff) error {
	if len(d.ExercisesDeleted) > 0 {
		if err := tx.Where("uuid IN ?", d.ExercisesDeleted).Delete(&database.PlanExercise{}).Error; err != nil {
			return errors.Wrap(err, "deleting plan exercises")
		}
	}

	// Callers submitting a pre-computed change-set may list a deleted
	// session without listing its exercises; clear descendants explicitly
	// so the delete order respects foreign keys.
	if len(d.SessionsDeleted) > 0 {
		if err := tx.Where("session_uuid IN ?", d.SessionsDeleted).Delete(&database.PlanExercise{}).Error; err != nil {
			return errors.Wrap(err, "deleting exercises of deleted sessions")
		}
		if err := tx.Where("uuid IN ?", d.SessionsDeleted).Delete(&database.Session{}).Error; err != nil {
			return errors.Wrap(err, "deleting sessions")
		}
	}

	if len(d.PhasesDeleted) > 0 {
		var orphanSessions []string
		if err := tx.Model(&database.Session{}).Where("phase_uuid IN ?", d.PhasesDeleted).Pluck("uuid", &orphanSessions).Error; err != nil {
			return errors.Wrap(err, "finding sessions of deleted phases")
		}

		if len(orphanSessions) > 0 {
			if err := tx.Where("session_uuid IN ?", orphanSessions).Delete(&database.PlanExercise{}).Error; err != nil {
				return errors.Wrap(err, "deleting exercises of deleted phases")
			}
			if err := tx.Where("uuid IN ?", orphanSessions).Delete(&database.Session{}).Error; err != nil {
				return errors.Wrap(err, "deleting sessions of deleted phases")
			}
		}

		if err := tx.Where("uuid IN ?", d.PhasesDeleted).Delete(&database.Phase{}).Error; err != nil {
			return errors.Wrap(err, "deleting phases")
		}
	}

	return nil
}

func applyInserts(tx *gorm.DB, plan *database.Plan, d *plandiff.TreeDiff) error {
	if len(d.PhasesAdded) > 0 {
		rows := make([]database.Phase, 0, len(d.PhasesAdded))
		for _, n := range d.PhasesAdded {
			if n.UUID == "" {
				return errors.Wrap(ErrValidation, "added phase requires a uuid")
			}

			planUUID := n.PlanUUID
			if planUUID == "" {
				planUUID = plan.UUID
			}

			rows = append(rows, database.Phase{
				UUID:        n.UUID,
				PlanUUID:    planUUID,
				Name:        n.Name,
				OrderNumber: n.OrderNumber,
				IsActive:    n.IsActive,
			})
		}
		if err := tx.CreateInBatches(rows, insertChunkSize).Error; err != nil {
			return errors.Wrap(err, "inserting phases")
		}
	}

	if len(d.SessionsAdded) > 0 {
		rows := make([]database.Session, 0, len(d.SessionsAdded))
		for _, n := range d.SessionsAdded {
			if n.UUID == "" || n.PhaseUUID == "" {
				return errors.Wrap(ErrValidation, "added session requires a uuid and a phase uuid")
			}

			rows = append(rows, database.Session{
				UUID:            n.UUID,
				PhaseUUID:       n.PhaseUUID,
				Name:            n.Name,
				OrderNumber:     n.OrderNumber,
				DurationMinutes: n.DurationMinutes,
			})
		}
		if err := tx.CreateInBatches(rows, insertChunkSize).Error; err != nil {
			return errors.Wrap(err, "inserting sessions")
		}
	}

	if len(d.ExercisesAdded) > 0 {
		rows := make([]database.PlanExercise, 0, len(d.ExercisesAdded))
		for _, n := range d.ExercisesAdded {
			if n.UUID == "" || n.SessionUUID == "" {
				return errors.Wrap(ErrValidation, "added exercise requires a uuid and a session uuid")
			}

			exerciseUUID := n.ExerciseUUID
			if exerciseUUID == "" {
				resolved, err := ensureExercise(tx, n.ExerciseName)
				if err != nil {
					return err
				}
				exerciseUUID = resolved
			}

			rows = append(rows, database.PlanExercise{
				UUID:             n.UUID,
				SessionUUID:      n.SessionUUID,
				ExerciseUUID:     exerciseUUID,
				RepsMin:          n.RepsMin,
				RepsMax:          n.RepsMax,
				SetsMin:          n.SetsMin,
				SetsMax:          n.SetsMax,
				Tempo:            n.Tempo,
				RestMin:          n.RestMin,
				RestMax:          n.RestMax,
				TimeUnderTension: n.TimeUnderTension,
				Customization:    n.Customization,
				Notes:            n.Notes,
				SetOrderMarker:   n.SetOrderMarker,
			})
		}
		if err := tx.CreateInBatches(rows, insertChunkSize).Error; err != nil {
			return errors.Wrap(err, "inserting plan exercises")
		}
	}

	return nil
}

// shiftOrderNumbers moves rows whose order number is changing to unique
// temporary negative values, so the unique (parent, order_number)
// constraint cannot trip while a reordering is being applied.
func shiftOrderNumbers(tx *gorm.DB, table string, updates []plandiff.Change) error {
	i := 0
	for _, u := range updates {
		if _, ok := u.Changes["order_number"]; !ok {
			continue
		}

		i++
		if err := tx.Table(table).Where("uuid = ?", u.UUID).Update("order_number", -i).Error; err != nil {
			return errors.Wrapf(err, "shifting order number on %s", table)
		}
	}

	return nil
}

func applyUpdates(tx *gorm.DB, d *plandiff.TreeDiff) error {
	for _, u := range d.PhasesUpdated {
		if err := tx.Model(&database.Phase{}).Where("uuid = ?", u.UUID).Updates(u.Changes).Error; err != nil {
			return errors.Wrap(err, "updating phase")
		}
	}

	for _, u := range d.SessionsUpdated {
		if err := tx.Model(&database.Session{}).Where("uuid = ?", u.UUID).Updates(u.Changes).Error; err != nil {
			return errors.Wrap(err, "updating session")
		}
	}

	for _, u := range d.ExercisesUpdated {
		if err := tx.Model(&database.PlanExercise{}).Where("uuid = ?", u.UUID).Updates(u.Changes).Error; err != nil {
			return errors.Wrap(err, "updating plan exercise")
		}
	}

	return nil
}

// recomputeExerciseOrder rewrites the derived exercise order of every
// session in the plan as the zero-based rank of the session's exercises
// sorted by their order marker, keeping exercise_order and
// set_order_marker consistent after arbitrary reordering
func recomputeExerciseOrder(tx *gorm.DB, planUUID string) error {
	var exercises []database.PlanExercise
	err := tx.
		Where("session_uuid IN (?)",
			tx.Session(&gorm.Session{NewDB: true}).Model(&database.Session{}).Select("uuid").
				Where("phase_uuid IN (?)",
					tx.Session(&gorm.Session{NewDB: true}).Model(&database.Phase{}).Select("uuid").Where("plan_uuid = ?", planUUID))).
		Find(&exercises).Error
	if err != nil {
		return errors.Wrap(err, "loading exercises for rank recomputation")
	}

	bySession := make(map[string][]plandiff.ExerciseNode)
	current := make(map[string]int, len(exercises))
	for _, e := range exercises {
		bySession[e.SessionUUID] = append(bySession[e.SessionUUID], exerciseNode(e))
		current[e.UUID] = e.ExerciseOrder
	}

	for _, nodes := range bySession {
		ranks := plandiff.RankByMarker(nodes)
		for uuid, rank := range ranks {
			if current[uuid] == rank {
				continue
			}

			if err := tx.Model(&database.PlanExercise{}).Where("uuid = ?", uuid).Update("exercise_order", rank).Error; err != nil {
				return errors.Wrap(err, "updating exercise order")
			}
		}
	}

	return nil
}
