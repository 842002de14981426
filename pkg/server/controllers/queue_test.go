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
	"testing"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/testutils"
	"github.com/pkg/errors"
)

func TestV3Enqueue(t *testing.T) {
	a, db := newTestApp(t)

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234", "trainer")

	server := MustNewServer(t, a)
	defer server.Close()

	dat := `{"messageType": "TEST", "data": {"ping": true}}`
	req := testutils.MakeReq(server.URL, "POST", "/api/v3/queue/messages", dat)
	res := testutils.HTTPAuthDo(t, db, req, user)

	assert.StatusCodeEquals(t, res, http.StatusAccepted, "")

	var payload EnqueueResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}

	assert.NotEqual(t, payload.JobID, "", "job id should be set")
	assert.Equal(t, payload.State, database.JobStateWaiting, "job state mismatch")

	var job database.Job
	testutils.MustExec(t, db.Where("uuid = ?", payload.JobID).First(&job), "finding job")
	assert.Equal(t, job.Kind, queue.MessageTypeTest, "job kind mismatch")

	var msg queue.Message
	if err := json.Unmarshal([]byte(job.Payload), &msg); err != nil {
		t.Fatal(errors.Wrap(err, "decoding job payload"))
	}
	assert.Equal(t, msg.UserID, user.UUID, "message user id mismatch")
}

func TestV3EnqueueInvalid(t *testing.T) {
	testCases := []struct {
		payload string
	}{
		{
			payload: `{"data": {}}`,
		},
		{
			payload: `{"messageType": "NO_SUCH_TYPE"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.payload, func(t *testing.T) {
			a, db := newTestApp(t)

			user := testutils.SetupUserData(db, "alice@example.com", "pass1234", "trainer")

			server := MustNewServer(t, a)
			defer server.Close()

			req := testutils.MakeReq(server.URL, "POST", "/api/v3/queue/messages", tc.payload)
			res := testutils.HTTPAuthDo(t, db, req, user)

			assert.StatusCodeEquals(t, res, http.StatusBadRequest, "")

			var jobCount int64
			testutils.MustExec(t, db.Model(&database.Job{}).Count(&jobCount), "counting jobs")
			assert.Equal(t, jobCount, int64(0), "job count mismatch")
		})
	}
}

func TestV3ShowJob(t *testing.T) {
	a, db := newTestApp(t)

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234", "trainer")

	job, err := a.Queue.Enqueue(queue.Message{MessageType: queue.MessageTypeTest})
	if err != nil {
		t.Fatal(errors.Wrap(err, "enqueueing message"))
	}

	server := MustNewServer(t, a)
	defer server.Close()

	req := testutils.MakeReq(server.URL, "GET", fmt.Sprintf("/api/v3/queue/messages/%s", job.UUID), "")
	res := testutils.HTTPAuthDo(t, db, req, user)

	assert.StatusCodeEquals(t, res, http.StatusOK, "")

	var payload JobResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}

	assert.Equal(t, payload.JobID, job.UUID, "job id mismatch")
	assert.Equal(t, payload.State, database.JobStateWaiting, "job state mismatch")
}

func TestV3ShowJobNotFound(t *testing.T) {
	a, db := newTestApp(t)

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234", "trainer")

	server := MustNewServer(t, a)
	defer server.Close()

	req := testutils.MakeReq(server.URL, "GET", fmt.Sprintf("/api/v3/queue/messages/%s", testutils.MustUUID(t)), "")
	res := testutils.HTTPAuthDo(t, db, req, user)

	assert.StatusCodeEquals(t, res, http.StatusNotFound, "")
}

func TestV3QueueHealth(t *testing.T) {
	a, db := newTestApp(t)

	user := testutils.SetupUserData(db, "alice@example.com", "pass1234", "trainer")

	if _, err := a.Queue.Enqueue(queue.Message{MessageType: queue.MessageTypeTest}); err != nil {
		t.Fatal(errors.Wrap(err, "enqueueing message"))
	}

	server := MustNewServer(t, a)
	defer server.Close()

	req := testutils.MakeReq(server.URL, "GET", "/api/v3/queue/health", "")
	res := testutils.HTTPAuthDo(t, db, req, user)

	assert.StatusCodeEquals(t, res, http.StatusOK, "")

	var payload queue.HealthSnapshot
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatal(errors.Wrap(err, "decoding payload"))
	}

	assert.Equal(t, payload.Status, queue.HealthHealthy, "status mismatch")
	assert.Equal(t, payload.Waiting, int64(1), "waiting count mismatch")
}

func TestV3EnqueueGuest(t *testing.T) {
	a, _ := newTestApp(t)

	server := MustNewServer(t, a)
	defer server.Close()

	req := testutils.MakeReq(server.URL, "POST", "/api/v3/queue/messages", `{"messageType": "TEST"}`)
	res := testutils.HTTPDo(t, req)

	assert.StatusCodeEquals(t, res, http.StatusUnauthorized, "")
}
