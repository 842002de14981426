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

// Package testutils provides utilities used in tests
package testutils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitMemoryDB creates an in-memory SQLite database with the schema initialized
func InitMemoryDB(t *testing.T) *gorm.DB {
	// Use file-based in-memory database with unique UUID per test to avoid sharing
	uuid, err := helpers.GenUUID()
	if err != nil {
		t.Fatalf("failed to generate UUID for test database: %v", err)
	}
	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid)
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	database.InitSchema(db)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return db
}

// MustUUID generates a UUID and fails the test on error
func MustUUID(t *testing.T) string {
	uuid, err := helpers.GenUUID()
	if err != nil {
		t.Fatal(errors.Wrap(err, "Failed to generate UUID"))
	}
	return uuid
}

// SetupUserData creates and returns a new user with email and password for testing purposes
func SetupUserData(db *gorm.DB, email, password, role string) database.User {
	uuid, err := helpers.GenUUID()
	if err != nil {
		panic(errors.Wrap(err, "Failed to generate UUID"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(errors.Wrap(err, "Failed to hash password"))
	}

	user := database.User{
		UUID:     uuid,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}

	if err := db.Save(&user).Error; err != nil {
		panic(errors.Wrap(err, "Failed to prepare user"))
	}

	return user
}

// SetupPlanData creates a plan for the given trainer and client with the
// given version stamp
func SetupPlanData(t *testing.T, db *gorm.DB, trainerUUID, clientUUID string, updatedAt time.Time) database.Plan {
	plan := database.Plan{
		UUID:        MustUUID(t),
		TrainerUUID: trainerUUID,
		ClientUUID:  clientUUID,
		UpdatedAt:   updatedAt.UTC(),
	}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatal(errors.Wrap(err, "Failed to prepare plan"))
	}

	return plan
}

// SetupPhaseData creates a phase under the given plan
func SetupPhaseData(t *testing.T, db *gorm.DB, planUUID, name string, orderNumber int) database.Phase {
	phase := database.Phase{
		UUID:        MustUUID(t),
		PlanUUID:    planUUID,
		Name:        name,
		OrderNumber: orderNumber,
	}
	if err := db.Create(&phase).Error; err != nil {
		t.Fatal(errors.Wrap(err, "Failed to prepare phase"))
	}

	return phase
}

// SetupSessionData creates a workout session under the given phase
func SetupSessionData(t *testing.T, db *gorm.DB, phaseUUID, name string, orderNumber int) database.Session {
	session := database.Session{
		UUID:        MustUUID(t),
		PhaseUUID:   phaseUUID,
		Name:        name,
		OrderNumber: orderNumber,
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatal(errors.Wrap(err, "Failed to prepare session"))
	}

	return session
}

// SetupExerciseData creates a catalog exercise with the given name
func SetupExerciseData(t *testing.T, db *gorm.DB, name string) database.Exercise {
	exercise := database.Exercise{
		UUID: MustUUID(t),
		Name: name,
	}
	if err := db.Create(&exercise).Error; err != nil {
		t.Fatal(errors.Wrap(err, "Failed to prepare exercise"))
	}

	return exercise
}

// HTTPDo makes an HTTP request and returns a response
func HTTPDo(t *testing.T, req *http.Request) *http.Response {
	hc := http.Client{
		// Do not follow redirects.
		// e.g. /logout redirects to a page but we'd like to test the redirect
		// itself, not what happens after the redirect
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	res, err := hc.Do(req)
	if err != nil {
		t.Fatal(errors.Wrap(err, "performing http request"))
	}

	return res
}

// SetReqAuthHeader sets the authorization header in the given request for the given user with a specific DB
func SetReqAuthHeader(t *testing.T, db *gorm.DB, req *http.Request, user database.User) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		t.Fatal(errors.Wrap(err, "reading random bits"))
	}

	session := database.AuthSession{
		Key:       base64.StdEncoding.EncodeToString(b),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour * 10 * 24),
	}
	if err := db.Save(&session).Error; err != nil {
		t.Fatal(errors.Wrap(err, "Failed to prepare session"))
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", session.Key))
}

// HTTPAuthDo makes an HTTP request with an appropriate authorization header for a user with a specific DB
func HTTPAuthDo(t *testing.T, db *gorm.DB, req *http.Request, user database.User) *http.Response {
	SetReqAuthHeader(t, db, req, user)

	return HTTPDo(t, req)
}

// MakeReq makes an HTTP request and returns a response
func MakeReq(endpoint string, method, path, data string) *http.Request {
	u := fmt.Sprintf("%s%s", endpoint, path)

	req, err := http.NewRequest(method, u, strings.NewReader(data))

	if err != nil {
		panic(errors.Wrap(err, "constructing http request"))
	}

	if data != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req
}

// MustExec fails the test if the given database query has error
func MustExec(t *testing.T, db *gorm.DB, message string) {
	if err := db.Error; err != nil {
		t.Fatalf("%s: %s", message, err.Error())
	}
}

// MockEmail is a mock email data
type MockEmail struct {
	TemplateType string
	From         string
	To           []string
	Data         interface{}
}

// MockEmailbackendImplementation is an email backend that simply collects the emails
type MockEmailbackendImplementation struct {
	mu     sync.RWMutex
	Emails []MockEmail
}

// Clear clears the mock email queue
func (b *MockEmailbackendImplementation) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Emails = []MockEmail{}
}

// SendEmail is an implementation of Backend.SendEmail.
func (b *MockEmailbackendImplementation) SendEmail(templateType, from string, to []string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Emails = append(b.Emails, MockEmail{
		TemplateType: templateType,
		From:         from,
		To:           to,
		Data:         data,
	})

	return nil
}
