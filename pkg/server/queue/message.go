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

// Package queue implements a database-backed job queue with at-least-once
// delivery, bounded retries with exponential backoff, and trimming of
// historical job records. Messages are typed; workers dispatch them to
// registered processors.
package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Message kinds
const (
	MessageTypeWorkoutPlanCreate   = "WORKOUT_PLAN_CREATE"
	MessageTypePhaseCreate         = "WORKOUT_PHASE_CREATE"
	MessageTypePhaseUpdate         = "WORKOUT_PHASE_UPDATE"
	MessageTypePhaseDelete         = "WORKOUT_PHASE_DELETE"
	MessageTypePhaseDuplicate      = "WORKOUT_PHASE_DUPLICATE"
	MessageTypePhaseActivate       = "WORKOUT_PHASE_ACTIVATE"
	MessageTypeSessionCreate       = "WORKOUT_SESSION_CREATE"
	MessageTypeSessionUpdate       = "WORKOUT_SESSION_UPDATE"
	MessageTypeSessionDelete       = "WORKOUT_SESSION_DELETE"
	MessageTypeSessionDuplicate    = "WORKOUT_SESSION_DUPLICATE"
	MessageTypeExerciseSave        = "WORKOUT_EXERCISE_SAVE"
	MessageTypeExerciseDelete      = "WORKOUT_EXERCISE_DELETE"
	MessageTypeWorkoutPlanFullSave = "WORKOUT_PLAN_FULL_SAVE"
	MessageTypeUserAction          = "USER_ACTION"
	MessageTypeNotification        = "NOTIFICATION"
	MessageTypeEmail               = "EMAIL"
	MessageTypeDataSync            = "DATA_SYNC"
	MessageTypeTest                = "TEST"
)

var knownMessageTypes = map[string]bool{
	MessageTypeWorkoutPlanCreate:   true,
	MessageTypePhaseCreate:         true,
	MessageTypePhaseUpdate:         true,
	MessageTypePhaseDelete:         true,
	MessageTypePhaseDuplicate:      true,
	MessageTypePhaseActivate:       true,
	MessageTypeSessionCreate:       true,
	MessageTypeSessionUpdate:       true,
	MessageTypeSessionDelete:       true,
	MessageTypeSessionDuplicate:    true,
	MessageTypeExerciseSave:        true,
	MessageTypeExerciseDelete:      true,
	MessageTypeWorkoutPlanFullSave: true,
	MessageTypeUserAction:          true,
	MessageTypeNotification:        true,
	MessageTypeEmail:               true,
	MessageTypeDataSync:            true,
	MessageTypeTest:                true,
}

// Message is the wire contract between enqueuer and worker
type Message struct {
	MessageType string                 `json:"messageType"`
	Timestamp   time.Time              `json:"timestamp"`
	UserID      string                 `json:"userId,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Data        json.RawMessage        `json:"data,omitempty"`
}

// Validate checks the message against the wire contract
func (m Message) Validate() error {
	if m.MessageType == "" {
		return errors.New("messageType is required")
	}
	if !knownMessageTypes[m.MessageType] {
		return errors.Errorf("unknown messageType '%s'", m.MessageType)
	}

	return nil
}

// JobResult is the contract every processor returns
type JobResult struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ProcessedAt time.Time              `json:"processedAt"`
}

// Processor handles one kind of message
type Processor interface {
	Process(ctx context.Context, msg Message) (JobResult, error)
}

// ProcessorFunc adapts a function to the Processor interface
type ProcessorFunc func(ctx context.Context, msg Message) (JobResult, error)

// Process implements Processor
func (f ProcessorFunc) Process(ctx context.Context, msg Message) (JobResult, error) {
	return f(ctx, msg)
}

// Registry maps message kinds to processors
type Registry struct {
	processors map[string]Processor
}

// NewRegistry returns an empty processor registry
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register binds a processor to a message kind, replacing any previous one
func (r *Registry) Register(messageType string, p Processor) {
	r.processors[messageType] = p
}

// Get returns the processor for the message kind
func (r *Registry) Get(messageType string) (Processor, bool) {
	p, ok := r.processors[messageType]
	return p, ok
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// Retryable marks an error as transient so the queue redelivers the job
// after backoff instead of failing it terminally
func Retryable(err error) error {
	if err == nil {
		return nil
	}

	return &retryableError{err: err}
}

// IsRetryable reports whether the error was marked retryable
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
