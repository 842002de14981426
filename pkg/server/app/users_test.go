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
	"testing"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/database"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/testutils"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser(t *testing.T) {
	a, _ := newTestApp(t)

	user, err := a.CreateUser("alice@example.com", "pass1234", RoleTrainer)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	assert.Equal(t, user.Email, "alice@example.com", "email mismatch")
	assert.Equal(t, user.Role, RoleTrainer, "role mismatch")
	assert.NotEqual(t, user.UUID, "", "uuid should be set")

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("pass1234")); err != nil {
		t.Error("password should be hashed with bcrypt")
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := a.CreateUser("alice@example.com", "other", RoleClient)
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := a.CreateUser("", "", RoleClient)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	a, _ := newTestApp(t)
	testutils.SetupUserData(a.DB, "alice@example.com", "pass1234", RoleTrainer)

	t.Run("valid credentials", func(t *testing.T) {
		user, err := a.Authenticate("alice@example.com", "pass1234")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		assert.Equal(t, user.Email, "alice@example.com", "email mismatch")
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := a.Authenticate("alice@example.com", "wrong")
		if !errors.Is(err, ErrLoginInvalid) {
			t.Fatalf("expected ErrLoginInvalid, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := a.Authenticate("nobody@example.com", "pass1234")
		if !errors.Is(err, ErrLoginInvalid) {
			t.Fatalf("expected ErrLoginInvalid, got %v", err)
		}
	})
}

func TestSignIn(t *testing.T) {
	a, _ := newTestApp(t)
	user := testutils.SetupUserData(a.DB, "alice@example.com", "pass1234", RoleTrainer)

	session, err := a.SignIn("alice@example.com", "pass1234")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}

	assert.Equal(t, session.UserID, user.ID, "user id mismatch")
	assert.NotEqual(t, session.Key, "", "session key should be set")
	if !session.ExpiresAt.After(a.Clock.Now()) {
		t.Error("session should expire in the future")
	}

	t.Run("signout deletes the session", func(t *testing.T) {
		if err := a.DeleteAuthSession(session.Key); err != nil {
			t.Fatalf("DeleteAuthSession failed: %v", err)
		}

		var count int64
		testutils.MustExec(t, a.DB.Model(&database.AuthSession{}).Where("key = ?", session.Key).Count(&count), "counting sessions")
		assert.Equal(t, count, int64(0), "session should be deleted")
	})
}
