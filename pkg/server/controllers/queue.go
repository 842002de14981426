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
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/gorilla/mux"
)

// NewQueue creates a new Queue controller.
func NewQueue(app *app.App) *Queue {
	return &Queue{
		app: app,
	}
}

// Queue is a job queue controller.
type Queue struct {
	app *app.App
}

// EnqueueResponse is the response for a newly accepted message
type EnqueueResponse struct {
	JobID string `json:"jobId"`
	State string `json:"state"`
}

// V3Enqueue accepts a message and stores it for asynchronous processing
func (q *Queue) V3Enqueue(w http.ResponseWriter, r *http.Request) {
	user := context.User(r.Context())

	var msg queue.Message
	if err := parseRequestData(r, &msg); err != nil {
		handleJSONError(w, err, "parsing payload")
		return
	}

	if msg.UserID == "" {
		msg.UserID = user.UUID
	}

	if err := msg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := q.app.Queue.Enqueue(msg)
	if err != nil {
		handleJSONError(w, err, "enqueueing message")
		return
	}

	respondJSON(w, http.StatusAccepted, EnqueueResponse{
		JobID: job.UUID,
		State: job.State,
	})
}

// JobResponse is the response for a job lookup
type JobResponse struct {
	JobID      string `json:"jobId"`
	State      string `json:"state"`
	RetryCount int    `json:"retryCount"`
	Result     string `json:"result,omitempty"`
	LastError  string `json:"lastError,omitempty"`
}

// V3ShowJob returns the state of a single job
func (q *Queue) V3ShowJob(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	jobUUID := vars["jobUUID"]

	job, ok, err := q.app.Queue.Job(jobUUID)
	if err != nil {
		handleJSONError(w, err, "finding job")
		return
	}
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, JobResponse{
		JobID:      job.UUID,
		State:      job.State,
		RetryCount: job.RetryCount,
		Result:     job.Result,
		LastError:  job.LastError,
	})
}

// V3Health reports the queue health snapshot
func (q *Queue) V3Health(w http.ResponseWriter, r *http.Request) {
	snapshot, err := q.app.Queue.Health()
	if err != nil {
		handleJSONError(w, err, "checking queue health")
		return
	}

	statusCode := http.StatusOK
	if snapshot.Status == queue.HealthCritical {
		statusCode = http.StatusServiceUnavailable
	}

	respondJSON(w, statusCode, snapshot)
}
