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

// Package plandiff computes the set of creates, updates and deletes needed
// to transform a server-side plan tree into a client-submitted one. All
// functions are pure: they never touch the database and are safe to re-run.
package plandiff

// PhaseNode is a phase in a plan tree snapshot
type PhaseNode struct {
	UUID        string        `json:"uuid"`
	PlanUUID    string        `json:"planUuid,omitempty"`
	Name        string        `json:"name"`
	OrderNumber int           `json:"orderNumber"`
	IsActive    bool          `json:"isActive"`
	Sessions    []SessionNode `json:"sessions,omitempty"`
}

// SessionNode is a session in a plan tree snapshot
type SessionNode struct {
	UUID            string         `json:"uuid"`
	PhaseUUID       string         `json:"phaseUuid,omitempty"`
	Name            string         `json:"name"`
	OrderNumber     int            `json:"orderNumber"`
	DurationMinutes int            `json:"durationMinutes"`
	Exercises       []ExerciseNode `json:"exercises,omitempty"`
}

// ExerciseNode is a prescribed exercise in a plan tree snapshot.
//
// ExerciseUUID references a catalog exercise. When it is empty,
// ExerciseName is used to resolve (or create) the catalog entry at apply
// time.
type ExerciseNode struct {
	UUID             string `json:"uuid"`
	SessionUUID      string `json:"sessionUuid,omitempty"`
	ExerciseUUID     string `json:"exerciseUuid,omitempty"`
	ExerciseName     string `json:"exerciseName,omitempty"`
	RepsMin          int    `json:"repsMin"`
	RepsMax          int    `json:"repsMax"`
	SetsMin          int    `json:"setsMin"`
	SetsMax          int    `json:"setsMax"`
	Tempo            string `json:"tempo,omitempty"`
	RestMin          int    `json:"restMin"`
	RestMax          int    `json:"restMax"`
	TimeUnderTension int    `json:"timeUnderTension,omitempty"`
	Customization    string `json:"customization,omitempty"`
	Notes            string `json:"notes,omitempty"`
	SetOrderMarker   string `json:"setOrderMarker"`
}

// Flatten walks a plan tree and returns the phases, sessions and exercises
// as flat collections, with each node carrying the uuid of its parent.
// Nested collections on the returned phase and session nodes are cleared so
// that the flat collections are the single source of truth.
func Flatten(tree []PhaseNode) ([]PhaseNode, []SessionNode, []ExerciseNode) {
	var phases []PhaseNode
	var sessions []SessionNode
	var exercises []ExerciseNode

	for _, p := range tree {
		for _, s := range p.Sessions {
			s.PhaseUUID = p.UUID

			for _, e := range s.Exercises {
				e.SessionUUID = s.UUID
				exercises = append(exercises, e)
			}

			s.Exercises = nil
			sessions = append(sessions, s)
		}

		p.Sessions = nil
		phases = append(phases, p)
	}

	return phases, sessions, exercises
}
