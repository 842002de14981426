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

package plandiff

// Change is a targeted partial update to a single entity. Changes holds
// only the fields that are present and differ, keyed by column name, so the
// synchronizer can apply it directly as a partial update.
type Change struct {
	UUID    string                 `json:"uuid"`
	Changes map[string]interface{} `json:"changes"`
}

// TreeDiff is the result of comparing a server tree against a client tree.
// The added, updated and deleted sets per entity level are disjoint. Added
// nodes are flattened: a new phase's sessions appear in SessionsAdded, not
// nested under the phase.
type TreeDiff struct {
	PhasesAdded   []PhaseNode `json:"phasesAdded,omitempty"`
	PhasesUpdated []Change    `json:"phasesUpdated,omitempty"`
	PhasesDeleted []string    `json:"phasesDeleted,omitempty"`

	SessionsAdded   []SessionNode `json:"sessionsAdded,omitempty"`
	SessionsUpdated []Change      `json:"sessionsUpdated,omitempty"`
	SessionsDeleted []string      `json:"sessionsDeleted,omitempty"`

	ExercisesAdded   []ExerciseNode `json:"exercisesAdded,omitempty"`
	ExercisesUpdated []Change       `json:"exercisesUpdated,omitempty"`
	ExercisesDeleted []string       `json:"exercisesDeleted,omitempty"`
}

// Empty reports whether the diff contains no changes at any level
func (d TreeDiff) Empty() bool {
	return len(d.PhasesAdded) == 0 && len(d.PhasesUpdated) == 0 && len(d.PhasesDeleted) == 0 &&
		len(d.SessionsAdded) == 0 && len(d.SessionsUpdated) == 0 && len(d.SessionsDeleted) == 0 &&
		len(d.ExercisesAdded) == 0 && len(d.ExercisesUpdated) == 0 && len(d.ExercisesDeleted) == 0
}

// Diff compares the last-fetched server tree against the client's current
// tree and produces the added, updated and deleted sets per entity level.
// Entities are matched by uuid; client nodes whose uuid has no server match
// are added, server nodes absent from the client tree are deleted, and
// nodes present in both are compared field by field.
func Diff(server, client []PhaseNode) TreeDiff {
	serverPhases, serverSessions, serverExercises := Flatten(server)
	clientPhases, clientSessions, clientExercises := Flatten(client)

	var d TreeDiff
	d.PhasesAdded, d.PhasesUpdated, d.PhasesDeleted = diffPhases(serverPhases, clientPhases)
	d.SessionsAdded, d.SessionsUpdated, d.SessionsDeleted = diffSessions(serverSessions, clientSessions)
	d.ExercisesAdded, d.ExercisesUpdated, d.ExercisesDeleted = diffExercises(serverExercises, clientExercises)

	return d
}

func diffPhases(server, client []PhaseNode) ([]PhaseNode, []Change, []string) {
	byUUID := make(map[string]PhaseNode, len(server))
	for _, p := range server {
		byUUID[p.UUID] = p
	}

	var added []PhaseNode
	var updated []Change
	seen := make(map[string]bool, len(client))

	for _, c := range client {
		prev, ok := byUUID[c.UUID]
		if !ok || c.UUID == "" {
			added = append(added, c)
			continue
		}
		seen[c.UUID] = true

		if changes := comparePhase(prev, c); len(changes) > 0 {
			updated = append(updated, Change{UUID: c.UUID, Changes: changes})
		}
	}

	var deleted []string
	for _, p := range server {
		if !seen[p.UUID] {
			deleted = append(deleted, p.UUID)
		}
	}

	return added, updated, deleted
}

func diffSessions(server, client []SessionNode) ([]SessionNode, []Change, []string) {
	byUUID := make(map[string]SessionNode, len(server))
	for _, s := range server {
		byUUID[s.UUID] = s
	}

	var added []SessionNode
	var updated []Change
	seen := make(map[string]bool, len(client))

	for _, c := range client {
		prev, ok := byUUID[c.UUID]
		if !ok || c.UUID == "" {
			added = append(added, c)
			continue
		}
		seen[c.UUID] = true

		if changes := compareSession(prev, c); len(changes) > 0 {
			updated = append(updated, Change{UUID: c.UUID, Changes: changes})
		}
	}

	var deleted []string
	for _, s := range server {
		if !seen[s.UUID] {
			deleted = append(deleted, s.UUID)
		}
	}

	return added, updated, deleted
}

func diffExercises(server, client []ExerciseNode) ([]ExerciseNode, []Change, []string) {
	byUUID := make(map[string]ExerciseNode, len(server))
	for _, e := range server {
		byUUID[e.UUID] = e
	}

	var added []ExerciseNode
	var updated []Change
	seen := make(map[string]bool, len(client))

	for _, c := range client {
		prev, ok := byUUID[c.UUID]
		if !ok || c.UUID == "" {
			added = append(added, c)
			continue
		}
		seen[c.UUID] = true

		if changes := compareExercise(prev, c); len(changes) > 0 {
			updated = append(updated, Change{UUID: c.UUID, Changes: changes})
		}
	}

	var deleted []string
	for _, e := range server {
		if !seen[e.UUID] {
			deleted = append(deleted, e.UUID)
		}
	}

	return added, updated, deleted
}

// comparePhase returns the changed fields keyed by column name
func comparePhase(prev, next PhaseNode) map[string]interface{} {
	changes := map[string]interface{}{}

	if prev.PlanUUID != next.PlanUUID && next.PlanUUID != "" {
		changes["plan_uuid"] = next.PlanUUID
	}
	if prev.Name != next.Name {
		changes["name"] = next.Name
	}
	if prev.OrderNumber != next.OrderNumber {
		changes["order_number"] = next.OrderNumber
	}
	if prev.IsActive != next.IsActive {
		changes["is_active"] = next.IsActive
	}

	return changes
}

func compareSession(prev, next SessionNode) map[string]interface{} {
	changes := map[string]interface{}{}

	if prev.PhaseUUID != next.PhaseUUID && next.PhaseUUID != "" {
		changes["phase_uuid"] = next.PhaseUUID
	}
	if prev.Name != next.Name {
		changes["name"] = next.Name
	}
	if prev.OrderNumber != next.OrderNumber {
		changes["order_number"] = next.OrderNumber
	}
	if prev.DurationMinutes != next.DurationMinutes {
		changes["duration_minutes"] = next.DurationMinutes
	}

	return changes
}

func compareExercise(prev, next ExerciseNode) map[string]interface{} {
	changes := map[string]interface{}{}

	if prev.SessionUUID != next.SessionUUID && next.SessionUUID != "" {
		changes["session_uuid"] = next.SessionUUID
	}
	if prev.ExerciseUUID != next.ExerciseUUID && next.ExerciseUUID != "" {
		changes["exercise_uuid"] = next.ExerciseUUID
	}
	if prev.RepsMin != next.RepsMin {
		changes["reps_min"] = next.RepsMin
	}
	if prev.RepsMax != next.RepsMax {
		changes["reps_max"] = next.RepsMax
	}
	if prev.SetsMin != next.SetsMin {
		changes["sets_min"] = next.SetsMin
	}
	if prev.SetsMax != next.SetsMax {
		changes["sets_max"] = next.SetsMax
	}
	if prev.Tempo != next.Tempo {
		changes["tempo"] = next.Tempo
	}
	if prev.RestMin != next.RestMin {
		changes["rest_min"] = next.RestMin
	}
	if prev.RestMax != next.RestMax {
		changes["rest_max"] = next.RestMax
	}
	if prev.TimeUnderTension != next.TimeUnderTension {
		changes["time_under_tension"] = next.TimeUnderTension
	}
	if prev.Customization != next.Customization {
		changes["customization"] = next.Customization
	}
	if prev.Notes != next.Notes {
		changes["notes"] = next.Notes
	}
	if prev.SetOrderMarker != next.SetOrderMarker {
		changes["set_order_marker"] = next.SetOrderMarker
	}

	return changes
}
