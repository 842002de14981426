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
	"net/url"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

const (
	// AppEnvProduction represents an app environment for production.
	AppEnvProduction string = "PRODUCTION"
	// DefaultDBPath is the default path to the SQLite database file
	DefaultDBPath = "gymflow.db"
)

var (
	// ErrDBMissingPath is an error for an incomplete configuration missing the database path
	ErrDBMissingPath = errors.New("DB Path is empty")
	// ErrWebURLInvalid is an error for an incomplete configuration with invalid web url
	ErrWebURLInvalid = errors.New("Invalid WebURL")
	// ErrPortInvalid is an error for an incomplete configuration with invalid port
	ErrPortInvalid = errors.New("Invalid Port")
	// ErrWorkerConcurrencyInvalid is an error for a non-positive worker concurrency
	ErrWorkerConcurrencyInvalid = errors.New("Invalid WorkerConcurrency")
)

func readBoolEnv(name string) bool {
	return os.Getenv(name) == "true"
}

// getOrEnv returns value if non-empty, otherwise env var, otherwise default
func getOrEnv(value, envKey, defaultVal string) string {
	if value != "" {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultVal
}

// getIntOrEnv returns value if positive, otherwise env var, otherwise default
func getIntOrEnv(value int, envKey string, defaultVal int) int {
	if value > 0 {
		return value
	}
	if env := os.Getenv(envKey); env != "" {
		if n, err := strconv.Atoi(env); err == nil {
			return n
		}
	}
	return defaultVal
}

// Config is an application configuration
type Config struct {
	AppEnv              string
	WebURL              string
	DisableRegistration bool
	Port                string
	DBPath              string
	DatabaseURL         string
	LogLevel            string
	LogFormat           string
	WorkerConcurrency   int
	TrimSchedule        string
	TrimKeepCompleted   int
	TrimKeepFailed      int
}

// Params are the configuration parameters for creating a new Config
type Params struct {
	AppEnv              string
	Port                string
	WebURL              string
	DBPath              string
	DatabaseURL         string
	DisableRegistration bool
	LogLevel            string
	LogFormat           string
	WorkerConcurrency   int
	TrimSchedule        string
	TrimKeepCompleted   int
	TrimKeepFailed      int
}

// New constructs and returns a new validated config.
// Empty string params will fall back to environment variables and defaults.
func New(p Params) (Config, error) {
	c := Config{
		AppEnv:              getOrEnv(p.AppEnv, "APP_ENV", AppEnvProduction),
		Port:                getOrEnv(p.Port, "PORT", "3001"),
		WebURL:              getOrEnv(p.WebURL, "WebURL", "http://localhost:3001"),
		DBPath:              getOrEnv(p.DBPath, "DBPath", DefaultDBPath),
		DatabaseURL:         getOrEnv(p.DatabaseURL, "DATABASE_URL", ""),
		DisableRegistration: p.DisableRegistration || readBoolEnv("DisableRegistration"),
		LogLevel:            getOrEnv(p.LogLevel, "LOG_LEVEL", "info"),
		LogFormat:           getOrEnv(p.LogFormat, "LOG_FORMAT", "json"),
		WorkerConcurrency:   getIntOrEnv(p.WorkerConcurrency, "WORKER_CONCURRENCY", 5),
		TrimSchedule:        getOrEnv(p.TrimSchedule, "TRIM_SCHEDULE", "@hourly"),
		TrimKeepCompleted:   getIntOrEnv(p.TrimKeepCompleted, "TRIM_KEEP_COMPLETED", 500),
		TrimKeepFailed:      getIntOrEnv(p.TrimKeepFailed, "TRIM_KEEP_FAILED", 200),
	}

	if err := validate(c); err != nil {
		return Config{}, err
	}

	return c, nil
}

// IsProd checks if the app environment is configured to be production.
func (c Config) IsProd() bool {
	return c.AppEnv == AppEnvProduction
}

func validate(c Config) error {
	if _, err := url.ParseRequestURI(c.WebURL); err != nil {
		return errors.Wrapf(ErrWebURLInvalid, "'%s'", c.WebURL)
	}
	if c.Port == "" {
		return ErrPortInvalid
	}

	if c.DBPath == "" && c.DatabaseURL == "" {
		return ErrDBMissingPath
	}

	if c.WorkerConcurrency <= 0 {
		return ErrWorkerConcurrencyInvalid
	}

	return nil
}
