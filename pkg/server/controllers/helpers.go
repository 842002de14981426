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

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/gorilla/schema"
	pkgErrors "github.com/pkg/errors"
)

var formDecoder = schema.NewDecoder()

func init() {
	formDecoder.IgnoreUnknownKeys(true)
}

// parseForm parses the request form data into the given destination
func parseForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return pkgErrors.Wrap(err, "parsing form")
	}

	if err := formDecoder.Decode(dst, r.PostForm); err != nil {
		return pkgErrors.Wrap(err, "decoding payload")
	}

	return nil
}

// parseRequestData parses the request payload into the given destination.
// JSON bodies are decoded as JSON and everything else is treated as form
// data.
func parseRequestData(r *http.Request, dst interface{}) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return pkgErrors.Wrap(err, "decoding json payload")
		}

		return nil
	}

	return parseForm(r, dst)
}

// statusCodeFromError translates application errors into HTTP status codes
func statusCodeFromError(err error) int {
	switch {
	case errors.Is(err, app.ErrLoginInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrDuplicateEmail),
		errors.Is(err, app.ErrPlanModified):
		return http.StatusConflict
	case errors.Is(err, app.ErrPlanNotFound),
		errors.Is(err, app.ErrPhaseNotFound),
		errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrExerciseNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrDeprecatedPath):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleJSONError logs the error and responds with a plain text message
func handleJSONError(w http.ResponseWriter, err error, msg string) {
	statusCode := statusCodeFromError(err)

	if statusCode >= 500 {
		log.ErrorWrap(err, msg)
	}

	http.Error(w, err.Error(), statusCode)
}

// respondJSON marshals the given payload into JSON and writes it to the
// response with the given status code
func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.ErrorWrap(err, "encoding response")
	}
}
