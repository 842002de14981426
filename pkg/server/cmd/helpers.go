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

package cmd

import (
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/clock"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/config"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/mailer"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

func initDB(cfg config.Config) (*gorm.DB, error) {
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db = database.OpenPostgres(cfg.DatabaseURL)
	} else {
		db = database.Open(cfg.DBPath)
	}

	database.InitSchema(db)
	if err := database.Migrate(db); err != nil {
		return nil, errors.Wrap(err, "running migrations")
	}

	return db, nil
}

func getEmailBackend() mailer.Backend {
	defaultBackend, err := mailer.NewDefaultBackend()
	if err != nil {
		log.Debug("SMTP not configured, using StdoutBackend for emails")
		return mailer.NewStdoutBackend()
	}

	log.Debug("Email backend configured")
	return defaultBackend
}

func initApp(cfg config.Config) (app.App, error) {
	db, err := initDB(cfg)
	if err != nil {
		return app.App{}, err
	}

	c := clock.New()

	return app.App{
		DB:                  db,
		Clock:               c,
		EmailBackend:        getEmailBackend(),
		Queue:               queue.NewClient(db, c),
		WebURL:              cfg.WebURL,
		Port:                cfg.Port,
		DisableRegistration: cfg.DisableRegistration,
	}, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.Close()
	}
}
