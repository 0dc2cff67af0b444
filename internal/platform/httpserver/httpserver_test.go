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

package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWrapSetsRequestIDWhenMissing(t *testing.T) {
	var seen string
	h := Wrap(quietLogger(), "testsvc", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFromContext(r.Context())
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	got := rec.Header().Get("X-Request-Id")
	assert.Len(t, got, 32)
	assert.Equal(t, got, seen)
}

func TestWrapPreservesRequestID(t *testing.T) {
	h := Wrap(quietLogger(), "testsvc", http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "rid-123")
	rec := serve(h, req)
	assert.Equal(t, "rid-123", rec.Header().Get("X-Request-Id"))
}

func TestWrapReplacesUnprintableRequestID(t *testing.T) {
	h := Wrap(quietLogger(), "testsvc", http.NotFoundHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "bad id")
	rec := serve(h, req)
	assert.NotEqual(t, "bad id", rec.Header().Get("X-Request-Id"))
}

func TestWrapRecoversPanic(t *testing.T) {
	h := Wrap(quietLogger(), "testsvc", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}

func TestReadyz(t *testing.T) {
	ok := Readyz("testsvc", ReadinessCheck{Name: "always-ok", Check: func(context.Context) error { return nil }})
	rec := serve(ok, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	failing := Readyz("testsvc", ReadinessCheck{Name: "down", Check: func(context.Context) error { return errors.New("down") }})
	rec = serve(failing, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_ready"`)
}

func TestHealthz(t *testing.T) {
	rec := serve(Healthz("testsvc"), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"service":"testsvc","status":"ok"}`, rec.Body.String())
}

func TestRunRequiresAddr(t *testing.T) {
	err := Run(context.Background(), quietLogger(), Config{Service: "svc"}, http.NotFoundHandler())
	assert.EqualError(t, err, "addr is required")
}
