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

package app

import "github.com/pkg/errors"

// Typed sentinel errors. Callers classify outcomes with errors.Is rather
// than by matching message text; in particular the queue worker's
// retryable set is ErrPlanNotFound and ErrPlanModified.
var (
	// ErrPlanNotFound is an error for a referenced plan that does not exist
	ErrPlanNotFound = errors.New("plan not found")
	// ErrPlanModified is an error for a version-stamp mismatch. It signals
	// an expected, recoverable conflict, not a hard failure.
	ErrPlanModified = errors.New("plan has been modified")
	// ErrPhaseNotFound is an error for a referenced phase that does not exist
	ErrPhaseNotFound = errors.New("phase not found")
	// ErrSessionNotFound is an error for a referenced session that does not exist
	ErrSessionNotFound = errors.New("session not found")
	// ErrExerciseNotFound is an error for a referenced plan exercise that does not exist
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrValidation is an error for malformed input
	ErrValidation = errors.New("invalid request")
	// ErrDeprecatedPath is an error for an operation that is retired by
	// design and must never execute
	ErrDeprecatedPath = errors.New("deprecated operation")
	// ErrLoginInvalid is an error for invalid credentials
	ErrLoginInvalid = errors.New("wrong email and password combination")
	// ErrDuplicateEmail is an error for an email that already has an account
	ErrDuplicateEmail = errors.New("account with the email already exists")
)
