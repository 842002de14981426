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
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/presenters"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/testutils"
	"github.com/pkg/errors"
)

func decodeSyncResult(t *testing.T, res *http.Response) app.SyncResult {
	var result app.SyncResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}

	return result
}

func TestV3SyncCreate(t *testing.T) {
	a, db := newTestApp(t)

	trainer := testutils.SetupUserData(db, "trainer@example.com", "pass1234", "trainer")
	client := testutils.SetupUserData(db, "client@example.com", "pass1234", "client")

	server := MustNewServer(t, a)
	defer server.Close()

	dat := fmt.Sprintf(`{
		"clientId": %q,
		"tree": [
			{
				"name": "Week 1",
				"isActive": true,
				"sessions": [
					{
						"name": "Day 1",
						"exercises": [
							{"exerciseName": "Squat", "setsMin": 3, "setsMax": 3, "repsMin": 8, "repsMax": 12, "setOrderMarker": "a"}
						]
					}
				]
			}
		]
	}`, client.UUID)
	req := testutils.MakeReq(server.URL, "POST", "/api/v3/plans/sync", dat)
	res := testutils.HTTPAuthDo(t, db, req, trainer)

	assert.StatusCodeEquals(t, res, http.StatusOK, "")

	result := decodeSyncResult(t, res)
	assert.Equal(t, result.Success, true, "success mismatch")
	assert.NotEqual(t, result.PlanUUID, "", "plan uuid should be set")
	assert.NotEqual(t, result.UpdatedAt, "", "updated at should be set")

	var plan database.Plan
	testutils.MustExec(t, db.Where("uuid = ?", result.PlanUUID).First(&plan), "finding plan")
	assert.Equal(t, plan.TrainerUUID, trainer.UUID, "trainer uuid mismatch")
	assert.Equal(t, plan.ClientUUID, client.UUID, "client uuid mismatch")

	var exerciseCount int64
	testutils.MustExec(t, db.Model(&database.PlanExercise{}).Count(&exerciseCount), "counting exercises")
	assert.Equal(t, exerciseCount, int64(1), "exercise count mismatch")
}

func TestV3SyncConflict(t *testing.T) {
	a, db := newTestApp(t)

	trainer := testutils.SetupUserData(db, "trainer@example.com", "pass1234", "trainer")
	client := testutils.SetupUserData(db, "client@example.com", "pass1234", "client")

	stamp := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	plan := testutils.SetupPlanData(t, db, trainer.UUID, client.UUID, stamp)
	phase := testutils.SetupPhaseData(t, db, plan.UUID, "Week 1", 0)
	session := testutils.SetupSessionData(t, db, phase.UUID, "Day 1", 0)
	catalog := testutils.SetupExerciseData(t, db, "Squat")
	exercise := database.PlanExercise{
		UUID:           testutils.MustUUID(t),
		SessionUUID:    session.UUID,
		ExerciseUUID:   catalog.UUID,
		Notes:          "keep knees out",
		SetOrderMarker: "a",
	}
	testutils.MustExec(t, db.Create(&exercise), "preparing exercise")

	server := MustNewServer(t, a)
	defer server.Close()

	staleStamp := app.Stamp(stamp.Add(-time.Hour))
	dat := fmt.Sprintf(`{
		"planId": %q,
		"lastKnownUpdatedAt": %q,
		"tree": [
			{
				"uuid": %q,
				"name": "Week 1",
				"sessions": [
					{
						"uuid": %q,
						"name": "Day 1",
						"exercises": [
							{"uuid": %q, "sessionUuid": %q, "notes": "keep knees out, pause at bottom", "setOrderMarker": "a"}
						]
					}
				]
			}
		]
	}`, plan.UUID, staleStamp, phase.UUID, session.UUID, exercise.UUID, session.UUID)
	req := testutils.MakeReq(server.URL, "POST", "/api/v3/plans/sync", dat)
	res := testutils.HTTPAuthDo(t, db, req, trainer)

	assert.StatusCodeEquals(t, res, http.StatusConflict, "")

	var body struct {
		app.SyncResult
		Conflicts []presenters.ConflictPreview `json:"conflicts"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}

	assert.Equal(t, body.Success, false, "success mismatch")
	assert.Equal(t, body.Conflict, true, "conflict mismatch")
	assert.Equal(t, body.ServerUpdatedAt, app.Stamp(plan.UpdatedAt), "server updated at mismatch")

	assert.Equal(t, len(body.Conflicts), 1, "conflict preview count mismatch")
	preview := body.Conflicts[0]
	assert.Equal(t, preview.ExerciseUUID, exercise.UUID, "preview exercise uuid mismatch")
	assert.Equal(t, preview.Field, "notes", "preview field mismatch")
	if !strings.Contains(preview.Preview, "pause at bottom") {
		t.Errorf("preview does not include the rejected text: %s", preview.Preview)
	}
}

func TestV3SyncNotFound(t *testing.T) {
	a, db := newTestApp(t)

	trainer := testutils.SetupUserData(db, "trainer@example.com", "pass1234", "trainer")

	server := MustNewServer(t, a)
	defer server.Close()

	dat := fmt.Sprintf(`{"planId": %q, "lastKnownUpdatedAt": "2024-03-01T09:00:00Z", "tree": []}`, testutils.MustUUID(t))
	req := testutils.MakeReq(server.URL, "POST", "/api/v3/plans/sync", dat)
	res := testutils.HTTPAuthDo(t, db, req, trainer)

	assert.StatusCodeEquals(t, res, http.StatusNotFound, "")
}

func TestV3SyncDenied(t *testing.T) {
	a, db := newTestApp(t)

	trainer := testutils.SetupUserData(db, "trainer@example.com", "pass1234", "trainer")
	client := testutils.SetupUserData(db, "client@example.com", "pass1234", "client")
	plan := testutils.SetupPlanData(t, db, trainer.UUID, client.UUID, time.Now())

	server := MustNewServer(t, a)
	defer server.Close()

	// the assigned client may view the plan but not mutate it
	dat := fmt.Sprintf(`{"planId": %q, "lastKnownUpdatedAt": %q, "tree": []}`, plan.UUID, app.Stamp(plan.UpdatedAt))
	req := testutils.MakeReq(server.URL, "POST", "/api/v3/plans/sync", dat)
	res := testutils.HTTPAuthDo(t, db, req, client)

	assert.StatusCodeEquals(t, res, http.StatusNotFound, "")
}

func TestV3SyncMissingClient(t *testing.T) {
	a, db := newTestApp(t)

	trainer := testutils.SetupUserData(db, "trainer@example.com", "pass1234", "trainer")

	server := MustNewServer(t, a)
	defer server.Close()

	req := testutils.MakeReq(server.URL, "POST", "/api/v3/plans/sync", `{"tree": []}`)
	res := testutils.HTTPAuthDo(t, db, req, trainer)

	assert.StatusCodeEquals(t, res, http.StatusBadRequest, "")

	result := decodeSyncResult(t, res)
	assert.Equal(t, result.Success, false, "success mismatch")
	assert.NotEqual(t, result.Error, "", "error should be set")
}

func TestV3SyncGuest(t *testing.T) {
	a, _ := newTestApp(t)

	server := MustNewServer(t, a)
	defer server.Close()

	req := testutils.MakeReq(server.URL, "POST", "/api/v3/plans/sync", `{"tree": []}`)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res, http.StatusUnauthorized, "")
}
