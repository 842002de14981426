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
	"testing"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/testutils"
	"github.com/pkg/errors"
)

func setupPlan(t *testing.T, a *App) SyncResult {
	result := a.SyncPlan(SyncParams{TrainerUUID: "t1", ClientUUID: "c1", Tree: sampleTree()})
	if !result.Success {
		t.Fatalf("creating plan: %s", result.Error)
	}
	return result
}

func TestCreatePhase(t *testing.T) {
	t.Run("into an existing plan", func(t *testing.T) {
		a, _ := newTestApp(t)
		created := setupPlan(t, a)

		phase, err := a.CreatePhase(CreatePhaseParams{
			PlanUUID: created.PlanUUID,
			Name:     "Week 2",
		})
		if err != nil {
			t.Fatalf("CreatePhase failed: %v", err)
		}

		assert.Equal(t, phase.PlanUUID, created.PlanUUID, "plan uuid mismatch")
		assert.Equal(t, phase.Name, "Week 2", "name mismatch")
		assert.Equal(t, phase.OrderNumber, 1, "order number should append")

		var plan database.Plan
		testutils.MustExec(t, a.DB.Where("uuid = ?", created.PlanUUID).First(&plan), "finding plan")
		assert.NotEqual(t, Stamp(plan.UpdatedAt), created.UpdatedAt, "stamp should have advanced")
	})

	t.Run("without a plan creates one", func(t *testing.T) {
		a, _ := newTestApp(t)

		phase, err := a.CreatePhase(CreatePhaseParams{
			TrainerUUID: "t1",
			ClientUUID:  "c1",
			Name:        "Week 1",
		})
		if err != nil {
			t.Fatalf("CreatePhase failed: %v", err)
		}

		var plan database.Plan
		testutils.MustExec(t, a.DB.Where("uuid = ?", phase.PlanUUID).First(&plan), "finding plan")
		assert.Equal(t, plan.TrainerUUID, "t1", "trainer mismatch")
		assert.Equal(t, plan.ClientUUID, "c1", "client mismatch")
	})

	t.Run("without a plan ignores a supplied stamp", func(t *testing.T) {
		a, _ := newTestApp(t)

		// a stamp passed alongside no plan id cannot refer to the plan
		// about to be created
		phase, err := a.CreatePhase(CreatePhaseParams{
			TrainerUUID:        "t1",
			ClientUUID:         "c1",
			Name:               "Week 1",
			LastKnownUpdatedAt: "2023-01-01T00:00:00Z",
		})
		if err != nil {
			t.Fatalf("CreatePhase failed: %v", err)
		}

		assert.NotEqual(t, phase.PlanUUID, "", "plan uuid should be set")
		assert.Equal(t, phase.Name, "Week 1", "name mismatch")
	})

	t.Run("stale stamp is rejected", func(t *testing.T) {
		a, _ := newTestApp(t)
		created := setupPlan(t, a)

		_, err := a.CreatePhase(CreatePhaseParams{
			PlanUUID:           created.PlanUUID,
			Name:               "Week 2",
			LastKnownUpdatedAt: "2001-01-01T00:00:00Z",
		})
		if !errors.Is(err, ErrPlanModified) {
			t.Fatalf("expected ErrPlanModified, got %v", err)
		}

		var count int64
		testutils.MustExec(t, a.DB.Model(&database.Phase{}).Count(&count), "counting phases")
		assert.Equal(t, count, int64(1), "no phase may be created on conflict")
	})
}

func TestUpdatePhase(t *testing.T) {
	a, _ := newTestApp(t)
	created := setupPlan(t, a)

	var phase database.Phase
	testutils.MustExec(t, a.DB.First(&phase), "finding phase")

	name := "Deload Week"
	if err := a.UpdatePhase(phase.UUID, PhaseUpdate{Name: &name}, ""); err != nil {
		t.Fatalf("UpdatePhase failed: %v", err)
	}

	var updated database.Phase
	testutils.MustExec(t, a.DB.Where("uuid = ?", phase.UUID).First(&updated), "finding phase")
	assert.Equal(t, updated.Name, "Deload Week", "name mismatch")
	assert.Equal(t, updated.OrderNumber, phase.OrderNumber, "untouched field mismatch")

	var plan database.Plan
	testutils.MustExec(t, a.DB.Where("uuid = ?", created.PlanUUID).First(&plan), "finding plan")
	assert.NotEqual(t, Stamp(plan.UpdatedAt), created.UpdatedAt, "stamp should have advanced")
}

func TestDeletePhaseCascades(t *testing.T) {
	a, _ := newTestApp(t)
	setupPlan(t, a)

	var phase database.Phase
	testutils.MustExec(t, a.DB.First(&phase), "finding phase")

	if err := a.DeletePhase(phase.UUID, ""); err != nil {
		t.Fatalf("DeletePhase failed: %v", err)
	}

	var phases, sessions, exercises int64
	countRows(t, a, &phases, &sessions, &exercises)
	assert.Equal(t, phases, int64(0), "phase should be deleted")
	assert.Equal(t, sessions, int64(0), "sessions should cascade")
	assert.Equal(t, exercises, int64(0), "exercises should cascade")
}

func TestDuplicatePhase(t *testing.T) {
	a, _ := newTestApp(t)
	setupPlan(t, a)

	var phase database.Phase
	testutils.MustExec(t, a.DB.First(&phase), "finding phase")

	copied, err := a.DuplicatePhase(phase.UUID, "")
	if err != nil {
		t.Fatalf("DuplicatePhase failed: %v", err)
	}

	assert.Equal(t, copied.Name, "Week 1 (copy)", "copy name mismatch")
	assert.Equal(t, copied.OrderNumber, 1, "copy should append")
	assert.NotEqual(t, copied.UUID, phase.UUID, "copy must have a fresh uuid")

	// descendants are copied under fresh uuids
	var sessions []database.Session
	testutils.MustExec(t, a.DB.Where("phase_uuid = ?", copied.UUID).Find(&sessions), "finding copied sessions")
	assert.Equal(t, len(sessions), 1, "copied session count mismatch")

	var exercises int64
	testutils.MustExec(t, a.DB.Model(&database.PlanExercise{}).Where("session_uuid = ?", sessions[0].UUID).Count(&exercises), "counting copied exercises")
	assert.Equal(t, exercises, int64(1), "copied exercise count mismatch")
}

func TestActivatePhase(t *testing.T) {
	a, _ := newTestApp(t)
	created := setupPlan(t, a)

	second, err := a.CreatePhase(CreatePhaseParams{PlanUUID: created.PlanUUID, Name: "Week 2"})
	if err != nil {
		t.Fatalf("CreatePhase failed: %v", err)
	}

	if err := a.ActivatePhase(second.UUID, ""); err != nil {
		t.Fatalf("ActivatePhase failed: %v", err)
	}

	var phases []database.Phase
	testutils.MustExec(t, a.DB.Order("order_number").Find(&phases), "finding phases")

	assert.Equal(t, phases[0].IsActive, false, "sibling must be deactivated")
	assert.Equal(t, phases[1].IsActive, true, "target must be active")
}

func TestSessionOperations(t *testing.T) {
	a, _ := newTestApp(t)
	setupPlan(t, a)

	var phase database.Phase
	testutils.MustExec(t, a.DB.First(&phase), "finding phase")

	session, err := a.CreateSession(CreateSessionParams{
		PhaseUUID:       phase.UUID,
		Name:            "Day 2",
		DurationMinutes: 45,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	assert.Equal(t, session.OrderNumber, 1, "order number should append")

	duration := 60
	if err := a.UpdateSession(session.UUID, SessionUpdate{DurationMinutes: &duration}, ""); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	var updated database.Session
	testutils.MustExec(t, a.DB.Where("uuid = ?", session.UUID).First(&updated), "finding session")
	assert.Equal(t, updated.DurationMinutes, 60, "duration mismatch")

	copied, err := a.DuplicateSession(session.UUID, "")
	if err != nil {
		t.Fatalf("DuplicateSession failed: %v", err)
	}
	assert.Equal(t, copied.Name, "Day 2 (copy)", "copy name mismatch")
	assert.Equal(t, copied.DurationMinutes, 60, "copy duration mismatch")

	if err := a.DeleteSession(copied.UUID, ""); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	var count int64
	testutils.MustExec(t, a.DB.Model(&database.Session{}).Count(&count), "counting sessions")
	assert.Equal(t, count, int64(2), "session count mismatch")
}

func TestSaveExercise(t *testing.T) {
	a, _ := newTestApp(t)
	setupPlan(t, a)

	var session database.Session
	testutils.MustExec(t, a.DB.First(&session), "finding session")

	t.Run("create", func(t *testing.T) {
		saved, err := a.SaveExercise(SaveExerciseParams{
			IsNew: true,
			Exercise: plandiff.ExerciseNode{
				SessionUUID:    session.UUID,
				ExerciseName:   "Bench",
				RepsMin:        5,
				RepsMax:        8,
				SetOrderMarker: "b",
			},
		})
		if err != nil {
			t.Fatalf("SaveExercise failed: %v", err)
		}

		assert.Equal(t, saved.RepsMin, 5, "reps min mismatch")
		assert.Equal(t, saved.ExerciseOrder, 1, "derived order mismatch")
	})

	t.Run("update", func(t *testing.T) {
		var existing database.PlanExercise
		testutils.MustExec(t, a.DB.Where("set_order_marker = ?", "b").First(&existing), "finding exercise")

		saved, err := a.SaveExercise(SaveExerciseParams{
			Exercise: plandiff.ExerciseNode{
				UUID:           existing.UUID,
				SessionUUID:    session.UUID,
				RepsMin:        6,
				RepsMax:        8,
				SetOrderMarker: "b",
			},
		})
		if err != nil {
			t.Fatalf("SaveExercise failed: %v", err)
		}

		assert.Equal(t, saved.RepsMin, 6, "reps min mismatch")
		assert.Equal(t, saved.UUID, existing.UUID, "uuid must be stable on update")
	})

	t.Run("update of a missing row", func(t *testing.T) {
		_, err := a.SaveExercise(SaveExerciseParams{
			Exercise: plandiff.ExerciseNode{
				UUID:        testutils.MustUUID(t),
				SessionUUID: session.UUID,
			},
		})
		if !errors.Is(err, ErrExerciseNotFound) {
			t.Fatalf("expected ErrExerciseNotFound, got %v", err)
		}
	})
}

func TestDeleteExercise(t *testing.T) {
	a, _ := newTestApp(t)
	setupPlan(t, a)

	var exercise database.PlanExercise
	testutils.MustExec(t, a.DB.First(&exercise), "finding exercise")

	if err := a.DeleteExercise(exercise.UUID, ""); err != nil {
		t.Fatalf("DeleteExercise failed: %v", err)
	}

	var count int64
	testutils.MustExec(t, a.DB.Model(&database.PlanExercise{}).Count(&count), "counting exercises")
	assert.Equal(t, count, int64(0), "exercise count mismatch")
}
