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

package mailer

import (
	"strings"
	"testing"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/assert"
	"gopkg.in/gomail.v2"
)

type mockDialer struct {
	sentMessages []*gomail.Message
	err          error
}

func (m *mockDialer) DialAndSend(msgs ...*gomail.Message) error {
	m.sentMessages = append(m.sentMessages, msgs...)
	return m.err
}

func TestTemplatesExecute(t *testing.T) {
	templates := NewTemplates()

	testCases := []struct {
		emailType   string
		data        interface{}
		subject     string
		bodySnippet string
	}{
		{
			emailType:   EmailTypeWelcome,
			data:        struct{ Name string }{Name: "alice"},
			subject:     "Welcome to GymFlow!",
			bodySnippet: "Hi alice",
		},
		{
			emailType: EmailTypePlanUpdated,
			data: struct{ Name, TrainerName, Summary string }{
				Name:        "bob",
				TrainerName: "alice",
				Summary:     "added Week 2",
			},
			subject:     "Your workout plan was updated",
			bodySnippet: "updated by alice",
		},
		{
			emailType:   EmailTypeNotification,
			data:        struct{ Name, Body string }{Name: "bob", Body: "session tomorrow"},
			subject:     "Notification from GymFlow",
			bodySnippet: "session tomorrow",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.emailType, func(t *testing.T) {
			subject, body, err := templates.Execute(tc.emailType, EmailKindText, tc.data)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}

			assert.Equal(t, subject, tc.subject, "subject mismatch")
			if !strings.Contains(body, tc.bodySnippet) {
				t.Errorf("body %q does not contain %q", body, tc.bodySnippet)
			}
		})
	}
}

func TestTemplatesExecuteUnknownType(t *testing.T) {
	templates := NewTemplates()

	_, _, err := templates.Execute("nonexistent", EmailKindText, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown template type")
	}
}

func TestDefaultBackendSendEmail(t *testing.T) {
	mock := &mockDialer{}
	backend := &DefaultBackend{
		Dialer:    mock,
		Templates: NewTemplates(),
	}

	err := backend.SendEmail(EmailTypeWelcome, "noreply@example.com", []string{"alice@example.com"}, struct{ Name string }{Name: "alice"})
	if err != nil {
		t.Fatalf("SendEmail failed: %v", err)
	}

	assert.Equal(t, len(mock.sentMessages), 1, "message count mismatch")
}

func TestNewDefaultBackend(t *testing.T) {
	t.Run("with all env vars set", func(t *testing.T) {
		t.Setenv("SmtpHost", "smtp.example.com")
		t.Setenv("SmtpPort", "587")
		t.Setenv("SmtpUsername", "user@example.com")
		t.Setenv("SmtpPassword", "secret")

		backend, err := NewDefaultBackend()
		if err != nil {
			t.Fatalf("NewDefaultBackend failed: %v", err)
		}
		if backend == nil {
			t.Fatal("expected a backend")
		}
	})

	t.Run("without env vars", func(t *testing.T) {
		t.Setenv("SmtpHost", "")
		t.Setenv("SmtpPort", "")
		t.Setenv("SmtpUsername", "")
		t.Setenv("SmtpPassword", "")

		_, err := NewDefaultBackend()
		assert.Equal(t, err, ErrSMTPNotConfigured, "error mismatch")
	})
}
