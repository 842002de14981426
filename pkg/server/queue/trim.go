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
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"gorm.io/gorm"
)

const (
	// defaultKeepCompleted is the number of most recent completed jobs
	// retained by a trim pass
	defaultKeepCompleted = 500
	// defaultKeepFailed is the number of most recent failed jobs retained
	// by a trim pass
	defaultKeepFailed = 200
)

// TrimResult reports how many job records a trim pass removed
type TrimResult struct {
	CompletedRemoved int64 `json:"completed_removed"`
	FailedRemoved    int64 `json:"failed_removed"`
}

// Trim deletes completed and failed job records beyond the most recent
// keepCompleted and keepFailed, respectively. Non-positive limits fall
// back to the defaults.
func (c *Client) Trim(keepCompleted, keepFailed int) (TrimResult, error) {
	if keepCompleted <= 0 {
		keepCompleted = defaultKeepCompleted
	}
	if keepFailed <= 0 {
		keepFailed = defaultKeepFailed
	}

	var result TrimResult

	err := c.db.Transaction(func(tx *gorm.DB) error {
		n, err := trimState(tx, database.JobStateCompleted, keepCompleted)
		if err != nil {
			return err
		}
		result.CompletedRemoved = n

		n, err = trimState(tx, database.JobStateFailed, keepFailed)
		if err != nil {
			return err
		}
		result.FailedRemoved = n

		return nil
	})
	if err != nil {
		return TrimResult{}, errors.Wrap(err, "trimming jobs")
	}

	return result, nil
}

// trimState deletes all jobs in the given terminal state except the keep
// most recently finished ones
func trimState(tx *gorm.DB, state string, keep int) (int64, error) {
	var cutoff database.Job
	err := tx.
		Where("state = ?", state).
		Order("id DESC").
		Offset(keep - 1).
		First(&cutoff).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// fewer than keep records exist
		return 0, nil
	} else if err != nil {
		return 0, errors.Wrapf(err, "finding %s cutoff", state)
	}

	res := tx.Where("state = ? AND id < ?", state, cutoff.ID).Delete(&database.Job{})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "deleting %s jobs", state)
	}

	return res.RowsAffected, nil
}

// StartTrimScheduler runs Trim on the given cron schedule until the
// returned cron is stopped
func (c *Client) StartTrimScheduler(schedule string, keepCompleted, keepFailed int) (*cron.Cron, error) {
	cr := cron.New()

	err := cr.AddFunc(schedule, func() {
		result, err := c.Trim(keepCompleted, keepFailed)
		if err != nil {
			log.ErrorWrap(err, "running scheduled trim")
			return
		}

		log.WithFields(log.Fields{
			"completed_removed": result.CompletedRemoved,
			"failed_removed":    result.FailedRemoved,
		}).Info("trimmed job records")
	})
	if err != nil {
		return nil, errors.Wrap(err, "scheduling trim")
	}

	cr.Start()

	return cr, nil
}
