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

// Package app implements the application core: plan synchronization, the
// granular plan operations replayed by queue workers, and user accounts.
package app

import (
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/clock"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/mailer"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrEmptyDB is an error for missing database connection in the app configuration
	ErrEmptyDB = errors.New("No database connection was provided")
	// ErrEmptyClock is an error for missing clock in the app configuration
	ErrEmptyClock = errors.New("No clock was provided")
	// ErrEmptyEmailBackend is an error for missing email backend in the app configuration
	ErrEmptyEmailBackend = errors.New("No email backend was provided")
)

// App is an application context
type App struct {
	DB                  *gorm.DB
	Clock               clock.Clock
	EmailBackend        mailer.Backend
	Queue               *queue.Client
	WebURL              string
	Port                string
	DisableRegistration bool
}

// Validate validates the app configuration
func (a *App) Validate() error {
	if a.DB == nil {
		return ErrEmptyDB
	}
	if a.Clock == nil {
		return ErrEmptyClock
	}
	if a.EmailBackend == nil {
		return ErrEmptyEmailBackend
	}

	return nil
}
