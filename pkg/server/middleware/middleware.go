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

package middleware

import (
	"net/http"

	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/app"
	"github.com/Enclave-Technologies/GymFlow-movement-sub002/pkg/server/log"
)

// Middleware is a middleware for web requests
type Middleware func(h http.HandlerFunc, app *app.App, rateLimit bool) http.Handler

// WebMw is the middleware for the web routes
func WebMw(h http.HandlerFunc, app *app.App, rateLimit bool) http.Handler {
	return ApplyLimit(h, rateLimit)
}

// APIMw is the middleware for the api routes
func APIMw(h http.HandlerFunc, app *app.App, rateLimit bool) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if app.WebURL != "" {
			w.Header().Set("Access-Control-Allow-Origin", app.WebURL)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		h(w, r)
	}

	return ApplyLimit(fn, rateLimit)
}

// NotSupported is a handler for routes that are no longer supported
func NotSupported(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "API version is not supported. Please upgrade your client.", http.StatusGone)
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func logging(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		inner.ServeHTTP(&sw, r)

		log.WithFields(log.Fields{
			"remoteAddr": lookupIP(r),
			"uri":        r.RequestURI,
			"statusCode": sw.statusCode,
			"method":     r.Method,
		}).Info("incoming request")
	})
}

func recoverPanic(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"uri":   r.RequestURI,
					"panic": rec,
				}).Error("recovered from panic while handling request")
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()

		inner.ServeHTTP(w, r)
	})
}

// Global applies the middleware that are used for all routes
func Global(h http.Handler) http.Handler {
	return recoverPanic(logging(h))
}
