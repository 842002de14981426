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
	"strings"
	"testing"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/plandiff"
)

func TestPresentPlan(t *testing.T) {
	updatedAt := time.Date(2024, 3, 1, 9, 0, 0, 123456789, time.UTC)
	plan := database.Plan{
		UUID:        "plan-uuid",
		TrainerUUID: "trainer-uuid",
		ClientUUID:  "client-uuid",
		IsActive:    true,
		UpdatedAt:   updatedAt,
	}

	t.Run("with tree", func(t *testing.T) {
		tree := []plandiff.PhaseNode{
			{UUID: "phase-uuid", Name: "Week 1", IsActive: true},
		}

		got := PresentPlan(plan, tree)

		assert.Equal(t, got.UUID, "plan-uuid", "uuid mismatch")
		assert.Equal(t, got.TrainerUUID, "trainer-uuid", "trainer uuid mismatch")
		assert.Equal(t, got.ClientUUID, "client-uuid", "client uuid mismatch")
		assert.Equal(t, got.UpdatedAt, app.Stamp(updatedAt), "stamp mismatch")
		assert.Equal(t, len(got.Phases), 1, "phase count mismatch")
	})

	t.Run("nil tree", func(t *testing.T) {
		got := PresentPlan(plan, nil)

		if got.Phases == nil {
			t.Errorf("phases should be an empty slice, not nil")
		}
		assert.Equal(t, len(got.Phases), 0, "phase count mismatch")
	})
}

func TestPresentNotesConflict(t *testing.T) {
	got := PresentNotesConflict("keep knees out", "keep knees out, pause at bottom")

	assert.Equal(t, got.Field, "notes", "field mismatch")
	if !strings.Contains(got.Preview, "pause at bottom") {
		t.Errorf("preview does not include the added text: %s", got.Preview)
	}
}

func TestPresentSyncConflicts(t *testing.T) {
	tree := func(notesByUUID map[string]string) []plandiff.PhaseNode {
		exercises := []plandiff.ExerciseNode{}
		for uuid, notes := range notesByUUID {
			exercises = append(exercises, plandiff.ExerciseNode{UUID: uuid, Notes: notes})
		}

		return []plandiff.PhaseNode{
			{UUID: "phase-1", Sessions: []plandiff.SessionNode{
				{UUID: "session-1", Exercises: exercises},
			}},
		}
	}

	testCases := []struct {
		name       string
		serverTree []plandiff.PhaseNode
		clientTree []plandiff.PhaseNode
		expected   int
	}{
		{
			name:       "diverging notes",
			serverTree: tree(map[string]string{"ex-1": "tempo 3-1-1"}),
			clientTree: tree(map[string]string{"ex-1": "tempo 2-0-2"}),
			expected:   1,
		},
		{
			name:       "matching notes",
			serverTree: tree(map[string]string{"ex-1": "tempo 3-1-1"}),
			clientTree: tree(map[string]string{"ex-1": "tempo 3-1-1"}),
			expected:   0,
		},
		{
			name:       "exercise unknown to the server",
			serverTree: tree(map[string]string{}),
			clientTree: tree(map[string]string{"ex-1": "tempo 2-0-2"}),
			expected:   0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := PresentSyncConflicts(tc.serverTree, tc.clientTree)

			assert.Equal(t, len(got), tc.expected, "preview count mismatch")
			for _, preview := range got {
				assert.Equal(t, preview.ExerciseUUID, "ex-1", "exercise uuid mismatch")
				assert.Equal(t, preview.Field, "notes", "field mismatch")
				assert.NotEqual(t, preview.Preview, "", "preview should be set")
			}
		})
	}
}
