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

package presenters

import (
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
)

// Plan is a result of PresentPlan. UpdatedAt carries the version stamp
// callers must echo back on sync; it is the string-exact token, not a
// display value.
type Plan struct {
	UUID        string               `json:"planId"`
	TrainerUUID string               `json:"trainerId"`
	ClientUUID  string               `json:"clientId"`
	IsActive    bool                 `json:"isActive"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
	Phases      []plandiff.PhaseNode `json:"phases"`
}

// PresentPlan presents a plan with its full tree
func PresentPlan(plan database.Plan, tree []plandiff.PhaseNode) Plan {
	if tree == nil {
		tree = []plandiff.PhaseNode{}
	}

	return Plan{
		UUID:        plan.UUID,
		TrainerUUID: plan.TrainerUUID,
		ClientUUID:  plan.ClientUUID,
		IsActive:    plan.IsActive,
		CreatedAt:   FormatTS(plan.CreatedAt),
		UpdatedAt:   app.Stamp(plan.UpdatedAt),
		Phases:      tree,
	}
}

// ConflictPreview is a readable summary of what a rejected update would
// have changed, rendered per free-text field
type ConflictPreview struct {
	ExerciseUUID string `json:"exerciseUuid,omitempty"`
	Field        string `json:"field"`
	Preview      string `json:"preview"`
}

// PresentNotesConflict previews the difference between the server's and
// the caller's version of an exercise notes field
func PresentNotesConflict(serverNotes, clientNotes string) ConflictPreview {
	return ConflictPreview{
		Field:   "notes",
		Preview: plandiff.NotesDiff(serverNotes, clientNotes),
	}
}

// PresentSyncConflicts previews the free-text fields that diverge between
// the server's tree and a rejected caller's tree, matching exercises by
// uuid. Structural differences carry no preview; the caller re-fetches
// and re-diffs for those.
func PresentSyncConflicts(serverTree, clientTree []plandiff.PhaseNode) []ConflictPreview {
	serverNotes := map[string]string{}
	for _, p := range serverTree {
		for _, s := range p.Sessions {
			for _, e := range s.Exercises {
				serverNotes[e.UUID] = e.Notes
			}
		}
	}

	previews := []ConflictPreview{}
	for _, p := range clientTree {
		for _, s := range p.Sessions {
			for _, e := range s.Exercises {
				notes, ok := serverNotes[e.UUID]
				if !ok || notes == e.Notes {
					continue
				}

				preview := PresentNotesConflict(notes, e.Notes)
				preview.ExerciseUUID = e.UUID
				previews = append(previews, preview)
			}
		}
	}

	return previews
}
