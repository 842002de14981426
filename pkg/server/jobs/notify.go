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

package jobs

import (
	"context"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/mailer"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/queue"
	"github.com/pkg/errors"
)

// defaultSender is used when a message carries no from address
const defaultSender = "noreply@gymflow.app"

// email sends a templated email through the configured backend
func (p *Processors) email(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		TemplateType string                 `json:"templateType"`
		From         string                 `json:"from"`
		To           []string               `json:"to"`
		Data         map[string]interface{} `json:"data,omitempty"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if params.TemplateType == "" {
		return queue.JobResult{}, errors.New("templateType is required")
	}
	if len(params.To) == 0 {
		return queue.JobResult{}, errors.New("at least one recipient is required")
	}
	if params.From == "" {
		params.From = defaultSender
	}

	if err := p.app.EmailBackend.SendEmail(params.TemplateType, params.From, params.To, params.Data); err != nil {
		return queue.JobResult{}, errors.Wrap(err, "sending email")
	}

	return queue.JobResult{
		Success: true,
		Message: "email sent",
		Data: map[string]interface{}{
			"recipients": len(params.To),
		},
	}, nil
}

// notification emails the recipient when an address is present and falls
// back to a structured log line otherwise
func (p *Processors) notification(ctx context.Context, msg queue.Message) (queue.JobResult, error) {
	var params struct {
		Email string `json:"email,omitempty"`
		Name  string `json:"name,omitempty"`
		Body  string `json:"body"`
	}
	if err := decode(msg.Data, &params); err != nil {
		return queue.JobResult{}, err
	}

	if params.Email == "" {
		log.WithFields(log.Fields{
			"userId": msg.UserID,
			"body":   params.Body,
		}).Info("notification recorded")

		return queue.JobResult{Success: true, Message: "notification logged"}, nil
	}

	data := struct{ Name, Body string }{Name: params.Name, Body: params.Body}
	if err := p.app.EmailBackend.SendEmail(mailer.EmailTypeNotification, defaultSender, []string{params.Email}, data); err != nil {
		return queue.JobResult{}, errors.Wrap(err, "sending notification email")
	}

	return queue.JobResult{Success: true, Message: "notification emailed"}, nil
}
