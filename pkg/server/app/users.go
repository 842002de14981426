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

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/helpers"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// user roles
const (
	// RoleTrainer is a user managing clients and plans
	RoleTrainer = "trainer"
	// RoleClient is a user a plan is assigned to
	RoleClient = "client"
)

// sessionDuration is how long an auth session lasts
const sessionDuration = time.Hour * 24 * 30

// CreateUser creates a new user account with the given role
func (a *App) CreateUser(email, password, role string) (database.User, error) {
	if email == "" || password == "" {
		return database.User{}, errors.Wrap(ErrValidation, "email and password are required")
	}
	if role != RoleTrainer && role != RoleClient {
		return database.User{}, errors.Wrapf(ErrValidation, "unknown role '%s'", role)
	}

	var count int64
	if err := a.DB.Model(&database.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return database.User{}, errors.Wrap(err, "counting users with the email")
	}
	if count > 0 {
		return database.User{}, ErrDuplicateEmail
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return database.User{}, errors.Wrap(err, "hashing password")
	}

	uuid, err := helpers.GenUUID()
	if err != nil {
		return database.User{}, err
	}

	user := database.User{
		UUID:     uuid,
		Email:    email,
		Password: string(hashed),
		Role:     role,
	}
	if err := a.DB.Create(&user).Error; err != nil {
		return database.User{}, errors.Wrap(err, "inserting user")
	}

	return user, nil
}

// Authenticate verifies the given credentials and returns the matching user
func (a *App) Authenticate(email, password string) (database.User, error) {
	var user database.User
	err := a.DB.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return database.User{}, ErrLoginInvalid
	} else if err != nil {
		return database.User{}, errors.Wrap(err, "finding user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return database.User{}, ErrLoginInvalid
	}

	return user, nil
}

// CreateAuthSession creates a new auth session for the user and returns it
func (a *App) CreateAuthSession(user database.User) (database.AuthSession, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return database.AuthSession{}, errors.Wrap(err, "reading random bits")
	}

	now := a.Clock.Now()
	session := database.AuthSession{
		UserID:     user.ID,
		Key:        base64.StdEncoding.EncodeToString(b),
		LastUsedAt: now,
		ExpiresAt:  now.Add(sessionDuration),
	}
	if err := a.DB.Create(&session).Error; err != nil {
		return database.AuthSession{}, errors.Wrap(err, "inserting auth session")
	}

	return session, nil
}

// DeleteAuthSession removes the auth session with the given key
func (a *App) DeleteAuthSession(key string) error {
	return errors.Wrap(a.DB.Where("key = ?", key).Delete(&database.AuthSession{}).Error, "deleting auth session")
}

// SignIn authenticates the user and returns a fresh auth session
func (a *App) SignIn(email, password string) (database.AuthSession, error) {
	user, err := a.Authenticate(email, password)
	if err != nil {
		return database.AuthSession{}, err
	}

	return a.CreateAuthSession(user)
}
