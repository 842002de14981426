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

package config

import (
	"fmt"
	"testing"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/pkg/errors"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		config      Config
		expectedErr error
	}{
		{
			config: Config{
				DBPath:            "test.db",
				WebURL:            "http://mock.url",
				Port:              "3000",
				WorkerConcurrency: 5,
			},
			expectedErr: nil,
		},
		{
			config: Config{
				DBPath:            "",
				WebURL:            "http://mock.url",
				Port:              "3000",
				WorkerConcurrency: 5,
			},
			expectedErr: ErrDBMissingPath,
		},
		{
			config: Config{
				DatabaseURL:       "postgres://localhost/gymflow",
				WebURL:            "http://mock.url",
				Port:              "3000",
				WorkerConcurrency: 5,
			},
			expectedErr: nil,
		},
		{
			config: Config{
				DBPath: "test.db",
			},
			expectedErr: ErrWebURLInvalid,
		},
		{
			config: Config{
				DBPath: "test.db",
				WebURL: "http://mock.url",
			},
			expectedErr: ErrPortInvalid,
		},
		{
			config: Config{
				DBPath: "test.db",
				WebURL: "http://mock.url",
				Port:   "3000",
			},
			expectedErr: ErrWorkerConcurrencyInvalid,
		},
	}

	for idx, tc := range testCases {
		t.Run(fmt.Sprintf("test case %d", idx), func(t *testing.T) {
			err := validate(tc.config)

			assert.Equal(t, errors.Cause(err), tc.expectedErr, "error mismatch")
		})
	}
}

func TestNewDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("WORKER_CONCURRENCY", "")

	c, err := New(Params{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	assert.Equal(t, c.AppEnv, AppEnvProduction, "app env mismatch")
	assert.Equal(t, c.Port, "3001", "port mismatch")
	assert.Equal(t, c.WorkerConcurrency, 5, "worker concurrency mismatch")
	assert.Equal(t, c.TrimKeepCompleted, 500, "trim keep completed mismatch")
	assert.Equal(t, c.TrimKeepFailed, 200, "trim keep failed mismatch")
	assert.Equal(t, c.IsProd(), true, "prod check mismatch")
}

func TestNewEnvFallback(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("WORKER_CONCURRENCY", "2")

	c, err := New(Params{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	assert.Equal(t, c.Port, "8080", "port mismatch")
	assert.Equal(t, c.WorkerConcurrency, 2, "worker concurrency mismatch")

	// explicit params win over the environment
	c, err = New(Params{Port: "9090", WorkerConcurrency: 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	assert.Equal(t, c.Port, "9090", "port mismatch")
	assert.Equal(t, c.WorkerConcurrency, 3, "worker concurrency mismatch")
}
