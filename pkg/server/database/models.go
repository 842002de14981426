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

package database

import (
	"time"
)

// Model is the base model definition
type Model struct {
	ID        int       `gorm:"primaryKey" json:"-"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// User is a model for a user. A user is either a trainer managing plans
// or a client a plan is assigned to.
type User struct {
	Model
	UUID     string `json:"uuid" gorm:"uniqueIndex;type:text"`
	Email    string `json:"email" gorm:"index"`
	Password string `json:"-"`
	Role     string `json:"role" gorm:"index"`
}

// AuthSession represents an authenticated API session
type AuthSession struct {
	Model
	UserID     int    `gorm:"index"`
	Key        string `gorm:"index"`
	LastUsedAt time.Time
	ExpiresAt  time.Time
}

// Plan is the top-level workout program assigned to a client.
//
// UpdatedAt is the plan-level version stamp: it is advanced only by the
// synchronizer on every successful mutation of the plan's descendants, and
// it is the sole optimistic-concurrency guard. Callers compare it
// string-exactly as RFC 3339 with nanoseconds.
type Plan struct {
	ID          int       `gorm:"primaryKey" json:"-"`
	UUID        string    `json:"uuid" gorm:"uniqueIndex;type:text"`
	TrainerUUID string    `json:"trainer_uuid" gorm:"index;type:text"`
	ClientUUID  string    `json:"client_uuid" gorm:"index;type:text"`
	IsActive    bool      `json:"is_active" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`

	Phases []Phase `json:"phases" gorm:"foreignKey:PlanUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

// Phase is a named, ordered block of a plan
type Phase struct {
	Model
	UUID        string `json:"uuid" gorm:"uniqueIndex;type:text"`
	PlanUUID    string `json:"plan_uuid" gorm:"index;type:text;uniqueIndex:idx_phases_plan_order"`
	Name        string `json:"name"`
	OrderNumber int    `json:"order_number" gorm:"uniqueIndex:idx_phases_plan_order"`
	IsActive    bool   `json:"is_active" gorm:"default:false"`

	Sessions []Session `json:"sessions" gorm:"foreignKey:PhaseUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

// Session is a named, ordered workout occurring within a phase
type Session struct {
	Model
	UUID            string `json:"uuid" gorm:"uniqueIndex;type:text"`
	PhaseUUID       string `json:"phase_uuid" gorm:"index;type:text;uniqueIndex:idx_sessions_phase_order"`
	Name            string `json:"name"`
	OrderNumber     int    `json:"order_number" gorm:"uniqueIndex:idx_sessions_phase_order"`
	DurationMinutes int    `json:"duration_minutes"`

	Exercises []PlanExercise `json:"exercises" gorm:"foreignKey:SessionUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

// PlanExercise is one prescribed exercise instance within a session,
// referencing a catalog Exercise.
//
// SetOrderMarker is the client-facing ordering string. ExerciseOrder is the
// derived zero-based rank of the session's exercises sorted by marker; the
// synchronizer keeps the two consistent on every apply.
type PlanExercise struct {
	Model
	UUID             string `json:"uuid" gorm:"uniqueIndex;type:text"`
	SessionUUID      string `json:"session_uuid" gorm:"index;type:text"`
	ExerciseUUID     string `json:"exercise_uuid" gorm:"index;type:text"`
	RepsMin          int    `json:"reps_min"`
	RepsMax          int    `json:"reps_max"`
	SetsMin          int    `json:"sets_min"`
	SetsMax          int    `json:"sets_max"`
	Tempo            string `json:"tempo"`
	RestMin          int    `json:"rest_min"`
	RestMax          int    `json:"rest_max"`
	TimeUnderTension int    `json:"time_under_tension"`
	Customization    string `json:"customization"`
	Notes            string `json:"notes"`
	SetOrderMarker   string `json:"set_order_marker" gorm:"index"`
	ExerciseOrder    int    `json:"exercise_order"`
}

// Exercise is a reusable catalog definition referenced, never embedded,
// by plan exercises
type Exercise struct {
	Model
	UUID         string `json:"uuid" gorm:"uniqueIndex;type:text"`
	Name         string `json:"name" gorm:"index"`
	Motion       string `json:"motion"`
	TargetArea   string `json:"target_area"`
	MovementType string `json:"movement_type"`
	VideoURL     string `json:"video_url"`
}

// Job states
const (
	// JobStateWaiting is a job waiting to be picked up by a worker
	JobStateWaiting = "waiting"
	// JobStateActive is a job currently being processed
	JobStateActive = "active"
	// JobStateRetry is a failed job scheduled for redelivery
	JobStateRetry = "retry"
	// JobStateCompleted is a successfully processed job
	JobStateCompleted = "completed"
	// JobStateFailed is a terminally failed job
	JobStateFailed = "failed"
)

// Job is a queued message record. Payload holds the serialized queue
// message; Result holds the serialized processor result once the job
// reaches a terminal state.
type Job struct {
	Model
	UUID        string     `json:"uuid" gorm:"uniqueIndex;type:text"`
	Kind        string     `json:"kind" gorm:"index"`
	Payload     string     `json:"payload"`
	State       string     `json:"state" gorm:"index;default:waiting"`
	RetryCount  int        `json:"retry_count" gorm:"default:0"`
	MaxRetries  int        `json:"max_retries" gorm:"default:3"`
	StartAfter  time.Time  `json:"start_after" gorm:"index"`
	LastError   string     `json:"last_error"`
	Result      string     `json:"result"`
	CompletedAt *time.Time `json:"completed_at"`
}
