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

// Package jobs binds queue message kinds to application operations. Each
// processor decodes its typed payload and re-expresses it as a call into
// the app package.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/pkg/errors"
)

// Processors holds the dependencies shared by all message processors
type Processors struct {
	app *app.App
}

// New returns processors bound to the given application
func New(a *app.App) *Processors {
	return &Processors{app: a}
}

// Registry returns a processor registry with every message kind bound
func (p *Processors) Registry() *queue.Registry {
	r := queue.NewRegistry()

	r.Register(queue.MessageTypeWorkoutPlanCreate, queue.ProcessorFunc(p.planCreate))
	r.Register(queue.MessageTypePhaseCreate, queue.ProcessorFunc(p.phaseCreate))
	r.Register(queue.MessageTypePhaseUpdate, queue.ProcessorFunc(p.phaseUpdate))
	r.Register(queue.MessageTypePhaseDelete, queue.ProcessorFunc(p.phaseDelete))
	r.Register(queue.MessageTypePhaseDuplicate, queue.ProcessorFunc(p.phaseDuplicate))
	r.Register(queue.MessageTypePhaseActivate, queue.ProcessorFunc(p.phaseActivate))
	r.Register(queue.MessageTypeSessionCreate, queue.ProcessorFunc(p.sessionCreate))
	r.Register(queue.MessageTypeSessionUpdate, queue.ProcessorFunc(p.sessionUpdate))
	r.Register(queue.MessageTypeSessionDelete, queue.ProcessorFunc(p.sessionDelete))
	r.Register(queue.MessageTypeSessionDuplicate, queue.ProcessorFunc(p.sessionDuplicate))
	r.Register(queue.MessageTypeExerciseSave, queue.ProcessorFunc(p.exerciseSave))
	r.Register(queue.MessageTypeExerciseDelete, queue.ProcessorFunc(p.exerciseDelete))
	r.Register(queue.MessageTypeWorkoutPlanFullSave, queue.ProcessorFunc(p.planFullSave))
	r.Register(queue.MessageTypeUserAction, queue.ProcessorFunc(p.userAction))
	r.Register(queue.MessageTypeNotification, queue.ProcessorFunc(p.notification))
	r.Register(queue.MessageTypeEmail, queue.ProcessorFunc(p.email))
	r.Register(queue.MessageTypeDataSync, queue.ProcessorFunc(p.dataSync))
	r.Register(queue.MessageTypeTest, queue.ProcessorFunc(p.test))

	return r
}

// decode unmarshals a payload into its typed struct, rejecting unknown
// fields so malformed payloads fail fast instead of silently dropping data
func decode(data json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decoding payload")
	}

	return nil
}

// classify wraps errors that are worth redelivering. A plan that is not
// found yet, or was modified between claim and apply, can succeed on a
// later attempt; everything else is terminal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, app.ErrPlanNotFound) || errors.Is(err, app.ErrPlanModified) {
		return queue.Retryable(err)
	}

	return err
}

// syncOutcome folds a sync result into the processor contract
func syncOutcome(result app.SyncResult, message string) (queue.JobResult, error) {
	if !result.Success {
		if result.Conflict {
			return queue.JobResult{}, queue.Retryable(app.ErrPlanModified)
		}
		if result.NotFound {
			return queue.JobResult{}, queue.Retryable(app.ErrPlanNotFound)
		}

		return queue.JobResult{}, errors.New(result.Error)
	}

	return queue.JobResult{
		Success: true,
		Message: message,
		Data: map[string]interface{}{
			"planId":    result.PlanUUID,
			"updatedAt": result.UpdatedAt,
		},
	}, nil
}

func (p *Processors) test(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	return queue.JobResult{Success: true, Message: "test message processed"}, nil
}

func (p *Processors) userAction(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var payload struct {
		Action  string `json:"action"`
		Details string `json:"details,omitempty"`
	}
	if err := decode(msg.Data, &payload); err != nil {
		return queue.JobResult{}, err
	}

	log.WithFields(log.Fields{
		"action":  payload.Action,
		"details": payload.Details,
		"userId":  msg.UserID,
	}).Info("user action recorded")

	return queue.JobResult{Success: true, Message: "user action recorded"}, nil
}
