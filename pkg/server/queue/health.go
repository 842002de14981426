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

package queue

import (
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Health statuses
const (
	// HealthHealthy indicates normal queue operation
	HealthHealthy = "healthy"
	// HealthWarning indicates elevated backlog or failure rate
	HealthWarning = "warning"
	// HealthCritical indicates a stalled or failing queue
	HealthCritical = "critical"
)

// thresholds for deriving the queue health status
const (
	warningDepth       = 100
	criticalDepth      = 1000
	warningOldestWait  = 2 * time.Minute
	criticalOldestWait = 10 * time.Minute
	warningErrorRate   = 0.1
	criticalErrorRate  = 0.5
)

// HealthSnapshot describes the queue state at a point in time
type HealthSnapshot struct {
	Status        string     `json:"status"`
	Waiting       int64      `json:"waiting"`
	Active        int64      `json:"active"`
	Retry         int64      `json:"retry"`
	Completed     int64      `json:"completed"`
	Failed        int64      `json:"failed"`
	ErrorRate     float64    `json:"errorRate"`
	OldestWaiting *time.Time `json:"oldestWaiting,omitempty"`
	CheckedAt     time.Time  `json:"checkedAt"`
}

// Health computes the current queue health snapshot. The status is
// derived from backlog depth, the age of the oldest waiting job, and the
// ratio of failed to finished jobs.
func (c *Client) Health() (HealthSnapshot, error) {
	now := c.clock.Now().UTC()
	snapshot := HealthSnapshot{CheckedAt: now}

	type stateCount struct {
		State string
		Count int64
	}
	var counts []stateCount
	err := c.db.Model(&database.Job{}).
		Select("state, count(*) as count").
		Group("state").
		Find(&counts).Error
	if err != nil {
		return HealthSnapshot{}, errors.Wrap(err, "counting jobs by state")
	}

	for _, sc := range counts {
		switch sc.State {
		case database.JobStateWaiting:
			snapshot.Waiting = sc.Count
		case database.JobStateActive:
			snapshot.Active = sc.Count
		case database.JobStateRetry:
			snapshot.Retry = sc.Count
		case database.JobStateCompleted:
			snapshot.Completed = sc.Count
		case database.JobStateFailed:
			snapshot.Failed = sc.Count
		}
	}

	var oldest database.Job
	err = c.db.
		Where("state IN ?", []string{database.JobStateWaiting, database.JobStateRetry}).
		Order("start_after").
		First(&oldest).Error
	if err == nil {
		t := oldest.StartAfter
		snapshot.OldestWaiting = &t
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return HealthSnapshot{}, errors.Wrap(err, "finding oldest waiting job")
	}

	finished := snapshot.Completed + snapshot.Failed
	if finished > 0 {
		snapshot.ErrorRate = float64(snapshot.Failed) / float64(finished)
	}

	snapshot.Status = deriveStatus(snapshot, now)

	return snapshot, nil
}

func deriveStatus(s HealthSnapshot, now time.Time) string {
	depth := s.Waiting + s.Retry

	var oldestWait time.Duration
	if s.OldestWaiting != nil && s.OldestWaiting.Before(now) {
		oldestWait = now.Sub(*s.OldestWaiting)
	}

	if depth >= criticalDepth || oldestWait >= criticalOldestWait || s.ErrorRate >= criticalErrorRate {
		return HealthCritical
	}
	if depth >= warningDepth || oldestWait >= warningOldestWait || s.ErrorRate >= warningErrorRate {
		return HealthWarning
	}

	return HealthHealthy
}
