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

package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/backend"
	"github.com/magpierre/dsb-interpreter/internal/datafile"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/sandbox"
	"github.com/magpierre/dsb-interpreter/internal/service"
)

type executeRequest struct {
	Code string `json:"code"`
}

type generateRequest struct {
	Command   string `json:"command"`
	UserInput string `json:"user_input"`
}

type historyRequest struct {
	Command string `json:"command"`
	Code    string `json:"code"`
}

// formFile opens the multipart field "file", bounded by the upload limit.
// The returned status is non-zero when the request must be rejected.
func (api *API) formFile(w http.ResponseWriter, r *http.Request) (file multipart.File, name string, status int, msg string) {
	r.Body = http.MaxBytesReader(w, r.Body, api.maxUpload)
	f, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", tooLarge.Limit)
		}
		return nil, "", http.StatusBadRequest, "No file uploaded"
	}
	return f, header.Filename, 0, ""
}

func (api *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	f, name, status, msg := api.formFile(w, r)
	if status != 0 {
		api.writeError(w, r, status, msg)
		return
	}
	defer f.Close()

	meta, err := api.svc.Upload(s, name, f)
	if err != nil {
		if errors.Is(err, datafile.ErrUnsupportedFileType) || errors.Is(err, datafile.ErrMalformed) {
			api.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		api.logger.Error("upload failed", "session", s.ID(), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	api.writeJSON(w, http.StatusOK, metadataResponse{Status: statusSuccess, Metadata: meta})
}

func (api *API) handleDeltaSharing(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	var req datafile.DeltaSharingRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "Invalid request")
		return
	}

	meta, err := api.svc.ImportDeltaSharing(r.Context(), s, req)
	if err != nil {
		switch {
		case errors.Is(err, datafile.ErrInvalidRequest),
			errors.Is(err, datafile.ErrInvalidProfile),
			errors.Is(err, datafile.ErrShareNotFound),
			errors.Is(err, datafile.ErrTableNotFound),
			errors.Is(err, datafile.ErrFileNotFound),
			errors.Is(err, datafile.ErrNoColumns):
			api.writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			api.logger.Warn("delta sharing import failed", "session", s.ID(), "error", err)
			api.writeError(w, r, http.StatusBadGateway, err.Error())
		}
		return
	}
	api.writeJSON(w, http.StatusOK, metadataResponse{Status: statusSuccess, Metadata: meta})
}

func (api *API) handleExecute(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "Invalid request")
		return
	}

	res, err := api.svc.Execute(r.Context(), s, req.Code)
	if err != nil {
		var execErr *sandbox.ExecError
		if errors.As(err, &execErr) {
			api.writeJSON(w, http.StatusOK, softError{
				Status:     statusError,
				Message:    execErr.Message,
				ErrorClass: string(execErr.Class),
			})
			return
		}
		api.logger.Error("execution environment failed", "session", s.ID(), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	api.writeJSON(w, http.StatusOK, executeResponse{
		Status:   statusSuccess,
		Result:   resultEnvelope{Type: "multi", Data: orEmpty(res.Artifacts)},
		Metadata: res.Metadata,
	})
}

func orEmpty(a []artifact.Artifact) []artifact.Artifact {
	if a == nil {
		return []artifact.Artifact{}
	}
	return a
}

func (api *API) handleExport(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	format, err := datafile.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="dataset%s"`, format.Extension()))
	if err := api.svc.Export(s, w, format); err != nil {
		if errors.Is(err, frame.ErrNoDataset) {
			w.Header().Del("Content-Disposition")
			api.writeError(w, r, http.StatusNotFound, "No dataset loaded")
			return
		}
		// headers are gone once streaming has started
		api.logger.Error("export failed", "session", s.ID(), "format", format.Extension(), "error", err)
	}
}

func (api *API) handleGenerateCode(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "Invalid request")
		return
	}

	resp, err := api.svc.GenerateCode(r.Context(), s, req.Command, req.UserInput)
	if err != nil {
		api.writeBackendError(w, r, err)
		return
	}
	api.writeSuccess(w, map[string]any{"code": resp.Code, "message": resp.Message})
}

func (api *API) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	f, name, status, msg := api.formFile(w, r)
	if status != 0 {
		api.writeError(w, r, status, msg)
		return
	}
	defer f.Close()

	text, err := api.svc.Transcribe(r.Context(), name, f)
	if err != nil {
		api.writeBackendError(w, r, err)
		return
	}
	api.writeSuccess(w, map[string]any{"text": text})
}

// writeBackendError answers 400 when the backend rejected the request and
// 500 when it could not be reached.
func (api *API) writeBackendError(w http.ResponseWriter, r *http.Request, err error) {
	var statusErr *backend.StatusError
	switch {
	case errors.As(err, &statusErr):
		api.writeError(w, r, http.StatusBadRequest, statusErr.Body)
	case errors.Is(err, backend.ErrEmptyRequest):
		api.writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		if !errors.Is(err, service.ErrNoBackend) {
			api.logger.Error("backend call failed", "error", err)
		}
		api.writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

func (api *API) handleAddHistory(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	var req historyRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "Invalid request")
		return
	}
	if strings.TrimSpace(req.Command) == "" && strings.TrimSpace(req.Code) == "" {
		api.writeError(w, r, http.StatusBadRequest, "command or code is required")
		return
	}
	api.svc.AddHistory(s, req.Command, req.Code)
	api.writeSuccess(w, nil)
}

func (api *API) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	api.writeSuccess(w, map[string]any{"history": api.svc.History(s)})
}

func (api *API) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	api.svc.ClearHistory(s)
	api.writeSuccess(w, nil)
}

func (api *API) handleMetadata(w http.ResponseWriter, r *http.Request) {
	s := api.session(w, r)
	api.writeJSON(w, http.StatusOK, metadataResponse{Status: statusSuccess, Metadata: api.svc.Profile(s)})
}
