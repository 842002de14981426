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

package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/clock"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/mailer"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/testutils"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func newTestApp(t *testing.T) (*app.App, *gorm.DB, *testutils.MockEmailbackendImplementation) {
	db := testutils.InitMemoryDB(t)
	emailBackend := &testutils.MockEmailbackendImplementation{}

	a := &app.App{
		DB:           db,
		Clock:        clock.NewMock(),
		EmailBackend: emailBackend,
	}

	return a, db, emailBackend
}

// setupPlanWithSession creates a plan with one phase and one empty session
// and returns the plan and session uuids with the current stamp
func setupPlanWithSession(t *testing.T, a *app.App) (string, string, string) {
	result := a.SyncPlan(app.SyncParams{
		TrainerUUID: "t1",
		ClientUUID:  "c1",
		Tree: []plandiff.PhaseNode{
			{
				Name:        "Week 1",
				OrderNumber: 0,
				Sessions: []plandiff.SessionNode{
					{Name: "Day 1", OrderNumber: 0},
				},
			},
		},
	})
	if !result.Success {
		t.Fatalf("creating plan: %s", result.Error)
	}

	var session database.Session
	testutils.MustExec(t, a.DB.First(&session), "finding session")

	return result.PlanUUID, session.UUID, result.UpdatedAt
}

func mustPayload(t *testing.T, v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	return b
}

func TestExerciseSave(t *testing.T) {
	a, db, _ := newTestApp(t)
	p := New(a)

	planUUID, sessionUUID, stamp := setupPlanWithSession(t, a)

	payload := mustPayload(t, app.SaveExerciseParams{
		IsNew: true,
		Exercise: plandiff.ExerciseNode{
			SessionUUID:    sessionUUID,
			ExerciseName:   "Deadlift",
			RepsMin:        5,
			RepsMax:        5,
			SetsMin:        3,
			SetsMax:        5,
			SetOrderMarker: "a",
		},
		LastKnownUpdatedAt: stamp,
	})

	result, err := p.exerciseSave(context.Background(), queue.Message{
		MessageType: queue.MessageTypeExerciseSave,
		Data:        payload,
	})
	if err != nil {
		t.Fatalf("exerciseSave failed: %v", err)
	}

	assert.Equal(t, result.Success, true, "result success mismatch")

	var saved database.PlanExercise
	testutils.MustExec(t, db.Where("session_uuid = ?", sessionUUID).First(&saved), "finding saved exercise")
	assert.Equal(t, saved.RepsMin, 5, "reps min mismatch")
	assert.Equal(t, saved.SetOrderMarker, "a", "marker mismatch")

	var catalog database.Exercise
	testutils.MustExec(t, db.Where("name = ?", "Deadlift").First(&catalog), "finding catalog exercise")
	assert.Equal(t, saved.ExerciseUUID, catalog.UUID, "catalog reference mismatch")

	// the stamp must have advanced past the one the message carried
	var plan database.Plan
	testutils.MustExec(t, db.Where("uuid = ?", planUUID).First(&plan), "finding plan")
	assert.NotEqual(t, app.Stamp(plan.UpdatedAt), stamp, "stamp should have advanced")
}

func TestPlanFullSaveDeprecated(t *testing.T) {
	a, db, _ := newTestApp(t)
	p := New(a)

	planUUID, _, stamp := setupPlanWithSession(t, a)

	_, err := p.planFullSave(context.Background(), queue.Message{
		MessageType: queue.MessageTypeWorkoutPlanFullSave,
		Data:        json.RawMessage(`{"planId":"` + planUUID + `"}`),
	})

	if !errors.Is(err, app.ErrDeprecatedPath) {
		t.Fatalf("expected ErrDeprecatedPath, got %v", err)
	}
	if queue.IsRetryable(err) {
		t.Error("deprecated path must not be retried")
	}

	// nothing may have been mutated
	var plan database.Plan
	testutils.MustExec(t, db.Where("uuid = ?", planUUID).First(&plan), "finding plan")
	assert.Equal(t, app.Stamp(plan.UpdatedAt), stamp, "stamp must be unchanged")
}

func TestPhaseCreateRetryClassification(t *testing.T) {
	a, _, _ := newTestApp(t)
	p := New(a)

	t.Run("plan not found yet is retryable", func(t *testing.T) {
		payload := mustPayload(t, app.CreatePhaseParams{
			PlanUUID: testutils.MustUUID(t),
			Name:     "Week 1",
		})

		_, err := p.phaseCreate(context.Background(), queue.Message{
			MessageType: queue.MessageTypePhaseCreate,
			Data:        payload,
		})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !queue.IsRetryable(err) {
			t.Error("missing plan should be retryable")
		}
	})

	t.Run("stale stamp is retryable", func(t *testing.T) {
		planUUID, _, _ := setupPlanWithSession(t, a)

		payload := mustPayload(t, app.CreatePhaseParams{
			PlanUUID:           planUUID,
			Name:               "Week 2",
			LastKnownUpdatedAt: "2001-01-01T00:00:00Z",
		})

		_, err := p.phaseCreate(context.Background(), queue.Message{
			MessageType: queue.MessageTypePhaseCreate,
			Data:        payload,
		})
		if err == nil {
			t.Fatal("expected an error")
		}
		if !queue.IsRetryable(err) {
			t.Error("modified plan should be retryable")
		}
	})

	t.Run("malformed payload is terminal", func(t *testing.T) {
		_, err := p.phaseCreate(context.Background(), queue.Message{
			MessageType: queue.MessageTypePhaseCreate,
			Data:        json.RawMessage(`{"bogus": true}`),
		})
		if err == nil {
			t.Fatal("expected an error")
		}
		if queue.IsRetryable(err) {
			t.Error("malformed payload must not be retried")
		}
	})
}

func TestEmail(t *testing.T) {
	a, _, emailBackend := newTestApp(t)
	p := New(a)

	payload := json.RawMessage(`{"templateType":"` + mailer.EmailTypeWelcome + `","to":["alice@example.com"],"data":{"Name":"alice"}}`)

	result, err := p.email(context.Background(), queue.Message{
		MessageType: queue.MessageTypeEmail,
		Data:        payload,
	})
	if err != nil {
		t.Fatalf("email failed: %v", err)
	}

	assert.Equal(t, result.Success, true, "result success mismatch")
	assert.Equal(t, len(emailBackend.Emails), 1, "email count mismatch")
	assert.Equal(t, emailBackend.Emails[0].From, defaultSender, "default sender mismatch")
	assert.DeepEqual(t, emailBackend.Emails[0].To, []string{"alice@example.com"}, "recipients mismatch")
}

func TestNotification(t *testing.T) {
	a, _, emailBackend := newTestApp(t)
	p := New(a)

	t.Run("with address sends email", func(t *testing.T) {
		emailBackend.Clear()

		result, err := p.notification(context.Background(), queue.Message{
			MessageType: queue.MessageTypeNotification,
			Data:        json.RawMessage(`{"email":"bob@example.com","name":"bob","body":"session tomorrow"}`),
		})
		if err != nil {
			t.Fatalf("notification failed: %v", err)
		}

		assert.Equal(t, result.Success, true, "result success mismatch")
		assert.Equal(t, len(emailBackend.Emails), 1, "email count mismatch")
	})

	t.Run("without address logs only", func(t *testing.T) {
		emailBackend.Clear()

		result, err := p.notification(context.Background(), queue.Message{
			MessageType: queue.MessageTypeNotification,
			Data:        json.RawMessage(`{"body":"session tomorrow"}`),
		})
		if err != nil {
			t.Fatalf("notification failed: %v", err)
		}

		assert.Equal(t, result.Success, true, "result success mismatch")
		assert.Equal(t, len(emailBackend.Emails), 0, "no email should be sent")
	})
}

func TestDataSync(t *testing.T) {
	a, db, _ := newTestApp(t)
	p := New(a)

	planUUID, sessionUUID, _ := setupPlanWithSession(t, a)

	tree, err := app.LoadTree(db, planUUID)
	if err != nil {
		t.Fatalf("loading tree: %v", err)
	}
	tree[0].Sessions[0].Exercises = append(tree[0].Sessions[0].Exercises, plandiff.ExerciseNode{
		SessionUUID:    sessionUUID,
		ExerciseName:   "Squat",
		RepsMin:        8,
		RepsMax:        12,
		SetOrderMarker: "a",
	})

	// no concurrency token: fire-and-forget sync
	payload := mustPayload(t, app.SyncParams{
		PlanUUID: planUUID,
		Tree:     tree,
	})

	result, err := p.dataSync(context.Background(), queue.Message{
		MessageType: queue.MessageTypeDataSync,
		Data:        payload,
	})
	if err != nil {
		t.Fatalf("dataSync failed: %v", err)
	}

	assert.Equal(t, result.Success, true, "result success mismatch")

	var count int64
	testutils.MustExec(t, db.Model(&database.PlanExercise{}).Where("session_uuid = ?", sessionUUID).Count(&count), "counting exercises")
	assert.Equal(t, count, int64(1), "exercise count mismatch")
}

func TestRegistryCoversAllKinds(t *testing.T) {
	a, _, _ := newTestApp(t)
	registry := New(a).Registry()

	kinds := []string{
		queue.MessageTypeWorkoutPlanCreate,
		queue.MessageTypePhaseCreate,
		queue.MessageTypePhaseUpdate,
		queue.MessageTypePhaseDelete,
		queue.MessageTypePhaseDuplicate,
		queue.MessageTypePhaseActivate,
		queue.MessageTypeSessionCreate,
		queue.MessageTypeSessionUpdate,
		queue.MessageTypeSessionDelete,
		queue.MessageTypeSessionDuplicate,
		queue.MessageTypeExerciseSave,
		queue.MessageTypeExerciseDelete,
		queue.MessageTypeWorkoutPlanFullSave,
		queue.MessageTypeUserAction,
		queue.MessageTypeNotification,
		queue.MessageTypeEmail,
		queue.MessageTypeDataSync,
		queue.MessageTypeTest,
	}

	for _, kind := range kinds {
		if _, ok := registry.Get(kind); !ok {
			t.Errorf("no processor registered for %s", kind)
		}
	}
}
