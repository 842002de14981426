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

package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitSchema migrates database schema to reflect the latest model definition
func InitSchema(db *gorm.DB) {
	if err := db.AutoMigrate(
		&User{},
		&AuthSession{},
		&Exercise{},
		&Plan{},
		&Phase{},
		&Session{},
		&PlanExercise{},
		&Job{},
	); err != nil {
		panic(err)
	}
}

// Open initializes a SQLite database connection at the given path
func Open(dbPath string) *gorm.DB {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		panic(errors.Wrapf(err, "creating database directory at %s", dir))
	}

	// Foreign keys are off by default in SQLite. The schema relies on
	// cascading deletes from plans down to plan exercises.
	dsn := fmt.Sprintf("%s?_foreign_keys=on", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic(errors.Wrap(err, "opening database connection"))
	}

	return db
}

// OpenPostgres initializes a PostgreSQL database connection with the given URL
func OpenPostgres(databaseURL string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		panic(errors.Wrap(err, "opening postgres connection"))
	}

	return db
}
