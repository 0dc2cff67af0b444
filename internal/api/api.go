// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api exposes the interpreter over HTTP.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/platform/httpserver"
	"github.com/magpierre/dsb-interpreter/internal/platform/requestid"
	"github.com/magpierre/dsb-interpreter/internal/profile"
	"github.com/magpierre/dsb-interpreter/internal/service"
	"github.com/magpierre/dsb-interpreter/internal/session"
)

const (
	// SessionCookie names the cookie that carries the session id.
	SessionCookie = "sessionid"

	// DefaultMaxUpload caps uploaded files.
	DefaultMaxUpload = 100 << 20

	maxJSONBody = 4 << 20

	statusSuccess = "success"
	statusError   = "error"
)

// API holds the HTTP handlers.
type API struct {
	logger    *slog.Logger
	svc       *service.Interpreter
	sessions  *session.Store
	maxUpload int64
}

// New returns the handlers for svc. maxUpload of zero means DefaultMaxUpload.
func New(logger *slog.Logger, svc *service.Interpreter, sessions *session.Store, maxUpload int64) *API {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &API{
		logger:    logger,
		svc:       svc,
		sessions:  sessions,
		maxUpload: maxUpload,
	}
}

// Register adds every route to mux. Paths are served with and without the
// trailing slash.
func (api *API) Register(mux *http.ServeMux) {
	api.handle(mux, "POST", "/upload_data", api.handleUpload)
	api.handle(mux, "POST", "/upload_delta_sharing", api.handleDeltaSharing)
	api.handle(mux, "POST", "/execute_code", api.handleExecute)
	api.handle(mux, "GET", "/export_data", api.handleExport)
	api.handle(mux, "POST", "/generate_code", api.handleGenerateCode)
	api.handle(mux, "POST", "/transcribe", api.handleTranscribe)
	api.handle(mux, "POST", "/add_history", api.handleAddHistory)
	api.handle(mux, "GET", "/get_history", api.handleGetHistory)
	api.handle(mux, "POST", "/delete_history", api.handleDeleteHistory)
	api.handle(mux, "GET", "/metadata", api.handleMetadata)
}

func (api *API) handle(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path, h)
	mux.HandleFunc(method+" "+path+"/{$}", h)
}

// session returns the caller's session, issuing a cookie for new ones.
func (api *API) session(w http.ResponseWriter, r *http.Request) *session.State {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	s, created := api.sessions.Acquire(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

type resultEnvelope struct {
	Type string              `json:"type"`
	Data []artifact.Artifact `json:"data"`
}

type executeResponse struct {
	Status   string           `json:"status"`
	Result   resultEnvelope   `json:"result"`
	Metadata *profile.Profile `json:"metadata"`
}

type metadataResponse struct {
	Status   string           `json:"status"`
	Metadata *profile.Profile `json:"metadata"`
}

type softError struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ErrorClass string `json:"error_class"`
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *API) writeJSON(w http.ResponseWriter, status int, body any) {
	httpserver.WriteJSON(w, status, body)
}

func (api *API) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	api.writeJSON(w, status, map[string]any{
		"status":     statusError,
		"message":    message,
		"request_id": r.Header.Get(requestid.Header),
	})
}

func (api *API) writeSuccess(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"status": statusSuccess}
	for k, v := range fields {
		body[k] = v
	}
	api.writeJSON(w, http.StatusOK, body)
}
