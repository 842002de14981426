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
	"encoding/json"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/clock"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	// defaultMaxRetries is the bounded number of redeliveries per job
	defaultMaxRetries = 3
	// initialBackoff is the delay before the first redelivery; it doubles
	// on each subsequent attempt
	initialBackoff = 2 * time.Second
)

// Client enqueues messages and manages job records. It holds no global
// state; the process entrypoint owns its lifecycle and injects it where
// needed.
type Client struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewClient returns a queue client backed by the given database
func NewClient(db *gorm.DB, c clock.Clock) *Client {
	return &Client{db: db, clock: c}
}

// Enqueue validates and stores a message as a waiting job
func (c *Client) Enqueue(m Message) (database.Job, error) {
	if err := m.Validate(); err != nil {
		return database.Job{}, err
	}

	if m.Timestamp.IsZero() {
		m.Timestamp = c.clock.Now().UTC()
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return database.Job{}, errors.Wrap(err, "marshaling message")
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.Job{}, err
	}

	job := database.Job{
		UUID:       uuid,
		Kind:       m.MessageType,
		Payload:    string(payload),
		State:      database.JobStateWaiting,
		MaxRetries: defaultMaxRetries,
		StartAfter: c.clock.Now().UTC(),
	}
	if err := c.db.Create(&job).Error; err != nil {
		return database.Job{}, errors.Wrap(err, "inserting job")
	}

	return job, nil
}

// claim atomically picks the oldest due job and marks it active. It
// returns nil when no job is due.
func (c *Client) claim(now time.Time) (*database.Job, error) {
	var job database.Job

	err := c.db.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Where("state IN ? AND start_after <= ?", []string{database.JobStateWaiting, database.JobStateRetry}, now).
			Order("id").
			First(&job).Error
		if err != nil {
			return err
		}

		res := tx.Model(&database.Job{}).
			Where("id = ? AND state = ?", job.ID, job.State).
			Update("state", database.JobStateActive)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// another worker got there first
			return gorm.ErrRecordNotFound
		}

		job.State = database.JobStateActive
		return nil
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "claiming job")
	}

	return &job, nil
}

// abandonedError is recorded on jobs reclaimed from a worker that
// stopped reporting
const abandonedError = "worker lost while the job was active"

// ReclaimAbandoned returns active jobs whose claim is older than the
// timeout to the claimable pool, counting the lost attempt against the
// retry allowance. Jobs with no attempts left move to failed instead.
func (c *Client) ReclaimAbandoned(timeout time.Duration) (int64, error) {
	now := c.clock.Now().UTC()
	cutoff := now.Add(-timeout)

	res := c.db.Model(&database.Job{}).
		Where("state = ? AND updated_at < ? AND retry_count >= max_retries", database.JobStateActive, cutoff).
		Updates(map[string]interface{}{
			"state":        database.JobStateFailed,
			"last_error":   abandonedError,
			"completed_at": now,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "failing abandoned jobs")
	}
	reclaimed := res.RowsAffected

	res = c.db.Model(&database.Job{}).
		Where("state = ? AND updated_at < ? AND retry_count < max_retries", database.JobStateActive, cutoff).
		Updates(map[string]interface{}{
			"state":       database.JobStateRetry,
			"retry_count": gorm.Expr("retry_count + 1"),
			"start_after": now,
			"last_error":  abandonedError,
		})
	if res.Error != nil {
		return reclaimed, errors.Wrap(res.Error, "reclaiming abandoned jobs")
	}

	return reclaimed + res.RowsAffected, nil
}

// markCompleted records a successful result and moves the job to the
// completed state
func (c *Client) markCompleted(job *database.Job, result JobResult) error {
	now := c.clock.Now().UTC()

	serialized, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshaling job result")
	}

	return errors.Wrap(c.db.Model(&database.Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"state":        database.JobStateCompleted,
		"result":       string(serialized),
		"completed_at": now,
	}).Error, "marking job completed")
}

// scheduleRetry increments the retry count and schedules the redelivery
// with exponential backoff
func (c *Client) scheduleRetry(job *database.Job, cause error) error {
	backoff := initialBackoff << uint(job.RetryCount)
	startAfter := c.clock.Now().UTC().Add(backoff)

	return errors.Wrap(c.db.Model(&database.Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"state":       database.JobStateRetry,
		"retry_count": job.RetryCount + 1,
		"start_after": startAfter,
		"last_error":  cause.Error(),
	}).Error, "scheduling job retry")
}

// markFailed records a terminal failure
func (c *Client) markFailed(job *database.Job, result JobResult, cause error) error {
	now := c.clock.Now().UTC()

	serialized, err := json.Marshal(result)
	if err != nil {
		return errors.Wrap(err, "marshaling job result")
	}

	return errors.Wrap(c.db.Model(&database.Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"state":        database.JobStateFailed,
		"result":       string(serialized),
		"last_error":   cause.Error(),
		"completed_at": now,
	}).Error, "marking job failed")
}

// Job returns the job record with the given uuid
func (c *Client) Job(uuid string) (database.Job, bool, error) {
	var job database.Job
	err := c.db.Where("uuid = ?", uuid).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.Job{}, false, nil
	} else if err != nil {
		return database.Job{}, false, errors.Wrap(err, "finding job")
	}

	return job, true, nil
}
