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

// Package middleware provides the HTTP middleware: session authentication
// and per-IP rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
	"github.com/pkg/errors"
)

// sessionCookieName is the name of the cookie carrying the session key for
// browser clients
const sessionCookieName = "id"

func getSessionKeyFromCookie(r *http.Request) (string, error) {
	c, err := r.Cookie(sessionCookieName)
	if err == http.ErrNoCookie {
		return "", nil
	} else if err != nil {
		return "", errors.Wrap(err, "reading cookie")
	}

	return c.Value, nil
}

func getSessionKeyFromAuth(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}

	payload := strings.SplitN(h, " ", 2)
	if len(payload) != 2 || strings.ToLower(payload[0]) != "bearer" {
		return "", errors.New("invalid authorization header")
	}

	return payload[1], nil
}

// GetCredential extracts the session key from the request, preferring the
// Authorization header over the session cookie
func GetCredential(r *http.Request) (string, error) {
	key, err := getSessionKeyFromAuth(r)
	if err != nil {
		return "", errors.Wrap(err, "getting session key from the authorization header")
	}
	if key != "" {
		return key, nil
	}

	key, err = getSessionKeyFromCookie(r)
	if err != nil {
		return "", errors.Wrap(err, "getting session key from the cookie")
	}

	return key, nil
}

// RespondUnauthorized responds with a 401
func RespondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// DoError logs the error and responds with the given status
func DoError(w http.ResponseWriter, msg string, err error, statusCode int) {
	log.WithFields(log.Fields{
		"statusCode": statusCode,
	}).ErrorWrap(err, msg)

	http.Error(w, http.StatusText(statusCode), statusCode)
}
