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
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/pkg/errors"
)

const (
	// defaultConcurrency is the number of worker goroutines polling for jobs
	defaultConcurrency = 5
	// pollInterval is how often an idle worker checks for due jobs
	pollInterval = 500 * time.Millisecond
	// visibilityTimeout is how long a job may stay active before it is
	// presumed abandoned by a dead worker and made claimable again
	visibilityTimeout = 10 * time.Minute
	// reapInterval is how often abandoned jobs are swept
	reapInterval = time.Minute
)

// Worker polls the job table and dispatches claimed jobs to registered
// processors. Start and Stop are safe to call from any goroutine but not
// concurrently with each other.
type Worker struct {
	client      *Client
	registry    *Registry
	concurrency int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorker returns a worker over the given client and processor
// registry. A non-positive concurrency falls back to the default.
func NewWorker(client *Client, registry *Registry, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Worker{
		client:      client,
		registry:    registry,
		concurrency: concurrency,
	}
}

// Start launches the worker goroutines. It is a no-op if the worker is
// already running.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.run(ctx, id)
		}(i)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.reap(ctx)
	}()

	log.WithFields(log.Fields{
		"concurrency": w.concurrency,
	}).Info("queue worker started")
}

// Stop signals the worker goroutines to exit and waits for in-flight
// jobs to finish, or for ctx to expire, whichever comes first.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for workers to drain")
	}

	w.running = false
	log.Info("queue worker stopped")

	return nil
}

func (w *Worker) run(ctx context.Context, id int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain all due jobs before going back to sleep
		for {
			job, err := w.client.claim(w.client.clock.Now().UTC())
			if err != nil {
				log.WithFields(log.Fields{
					"worker": id,
				}).ErrorWrap(err, "claiming job")
				break
			}
			if job == nil {
				break
			}

			w.process(ctx, job)

			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

// reap periodically returns jobs stuck in the active state to the
// claimable pool. A job stays active past the visibility timeout only
// when the worker that claimed it died without transitioning it.
func (w *Worker) reap(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		n, err := w.client.ReclaimAbandoned(visibilityTimeout)
		if err != nil {
			log.ErrorWrap(err, "reclaiming abandoned jobs")
		} else if n > 0 {
			log.WithFields(log.Fields{
				"count": n,
			}).Warn("reclaimed abandoned jobs")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// process runs a claimed job through its processor and transitions it to
// a terminal or retry state. Processor panics are contained so a bad
// payload cannot take down the worker pool.
func (w *Worker) process(ctx context.Context, job *database.Job) {
	var msg Message
	if err := json.Unmarshal([]byte(job.Payload), &msg); err != nil {
		w.fail(job, errors.Wrap(err, "unmarshaling payload"))
		return
	}

	processor, ok := w.registry.Get(job.Kind)
	if !ok {
		w.fail(job, errors.Errorf("no processor for message type %s", job.Kind))
		return
	}

	result, err := w.invoke(ctx, processor, msg)
	if err != nil {
		if IsRetryable(err) && job.RetryCount < job.MaxRetries {
			if rerr := w.client.scheduleRetry(job, err); rerr != nil {
				log.ErrorWrap(rerr, "scheduling retry")
			}

			log.WithFields(log.Fields{
				"uuid":  job.UUID,
				"kind":  job.Kind,
				"retry": job.RetryCount + 1,
			}).Warn("job failed, scheduled for retry")
			return
		}

		w.fail(job, err)
		return
	}

	result.ProcessedAt = w.client.clock.Now().UTC()
	if err := w.client.markCompleted(job, result); err != nil {
		log.ErrorWrap(err, "marking job completed")
		return
	}

	log.WithFields(log.Fields{
		"uuid": job.UUID,
		"kind": job.Kind,
	}).Info("job completed")
}

func (w *Worker) invoke(ctx context.Context, processor Processor, msg Message) (result JobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("processor panic: %v", r)
		}
	}()

	return processor.Process(ctx, msg)
}

func (w *Worker) fail(job *database.Job, cause error) {
	result := JobResult{
		Success:     false,
		Error:       cause.Error(),
		Message:     fmt.Sprintf("processing %s failed", job.Kind),
		ProcessedAt: w.client.clock.Now().UTC(),
	}

	if err := w.client.markFailed(job, result, cause); err != nil {
		log.ErrorWrap(err, "marking job failed")
		return
	}

	log.WithFields(log.Fields{
		"uuid": job.UUID,
		"kind": job.Kind,
	}).ErrorWrap(cause, "job failed")
}
