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

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
)

// planCreate replays a plan creation or full-tree sync. The version check
// is skipped only when the message carries no concurrency token.
func (p *Processors) planCreate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params app.SyncParams
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}
	params.SkipVersionCheck = params.LastKnownUpdatedAt == ""

	return syncOutcome(p.app.SyncPlan(params), "plan synchronized")
}

func (p *Processors) phaseCreate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params app.CreatePhaseParams
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	phase, err := p.app.CreatePhase(params)
	if err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{
		Success: true,
		Message: "phase created",
		Data: map[string]interface{}{
			"phaseId": phase.UUID,
			"planId":  phase.PlanUUID,
		},
	}, nil
}

func (p *Processors) phaseUpdate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		PhaseUUID          string          `json:"phaseId"`
		Update             app.PhaseUpdate `json:"update"`
		LastKnownUpdatedAt string          `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if err := p.app.UpdatePhase(params.PhaseUUID, params.Update, params.LastKnownUpdatedAt); err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{Success: true, Message: "phase updated"}, nil
}

func (p *Processors) phaseDelete(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		PhaseUUID          string `json:"phaseId"`
		LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if err := p.app.DeletePhase(params.PhaseUUID, params.LastKnownUpdatedAt); err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{Success: true, Message: "phase deleted"}, nil
}

func (p *Processors) phaseDuplicate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		PhaseUUID          string `json:"phaseId"`
		LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	copied, err := p.app.DuplicatePhase(params.PhaseUUID, params.LastKnownUpdatedAt)
	if err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{
		Success: true,
		Message: "phase duplicated",
		Data: map[string]interface{}{
			"phaseId": copied.UUID,
		},
	}, nil
}

func (p *Processors) phaseActivate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		PhaseUUID          string `json:"phaseId"`
		LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if err := p.app.ActivatePhase(params.PhaseUUID, params.LastKnownUpdatedAt); err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{Success: true, Message: "phase activated"}, nil
}

func (p *Processors) sessionCreate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params app.CreateSessionParams
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	session, err := p.app.CreateSession(params)
	if err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{
		Success: true,
		Message: "session created",
		Data: map[string]interface{}{
			"sessionId": session.UUID,
			"phaseId":   session.PhaseUUID,
		},
	}, nil
}

func (p *Processors) sessionUpdate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		SessionUUID        string            `json:"sessionId"`
		Update             app.SessionUpdate `json:"update"`
		LastKnownUpdatedAt string            `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if err := p.app.UpdateSession(params.SessionUUID, params.Update, params.LastKnownUpdatedAt); err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{Success: true, Message: "session updated"}, nil
}

func (p *Processors) sessionDelete(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		SessionUUID        string `json:"sessionId"`
		LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if err := p.app.DeleteSession(params.SessionUUID, params.LastKnownUpdatedAt); err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{Success: true, Message: "session deleted"}, nil
}

func (p *Processors) sessionDuplicate(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		SessionUUID        string `json:"sessionId"`
		LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	copied, err := p.app.DuplicateSession(params.SessionUUID, params.LastKnownUpdatedAt)
	if err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{
		Success: true,
		Message: "session duplicated",
		Data: map[string]interface{}{
			"sessionId": copied.UUID,
		},
	}, nil
}

func (p *Processors) exerciseSave(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params app.SaveExerciseParams
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	saved, err := p.app.SaveExercise(params)
	if err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{
		Success: true,
		Message: "exercise saved",
		Data: map[string]interface{}{
			"exerciseId": saved.UUID,
			"sessionId":  saved.SessionUUID,
		},
	}, nil
}

func (p *Processors) exerciseDelete(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		ExerciseUUID       string `json:"exerciseId"`
		LastKnownUpdatedAt string `json:"lastKnownUpdatedAt,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if err := p.app.DeleteExercise(params.ExerciseUUID, params.LastKnownUpdatedAt); err != nil {
		return queue.JobResult{}, classify(err)
	}

	return queue.JobResult{Success: true, Message: "exercise deleted"}, nil
}

// planFullSave is the deprecated whole-plan overwrite path. It always
// fails without touching any data; callers must migrate to the diff-based
// sync message.
func (p *Processors) planFullSave(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	return queue.JobResult{}, app.ErrDeprecatedPath
}

// dataSync replays a full client tree through plan synchronization
func (p *Processors) dataSync(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params app.SyncParams
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}
	params.SkipVersionCheck = params.LastKnownUpdatedAt == ""

	return syncOutcome(p.app.SyncPlan(params), "data synchronized")
}
