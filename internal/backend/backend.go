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

// Package backend is the client for the code generation and transcription
// service.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/magpierre/dsb-interpreter/internal/profile"
)

// DefaultTimeout bounds one backend call when the caller supplies no client.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of a failed response is kept.
const maxErrorBody = 64 << 10

// ErrEmptyRequest is returned when neither a command nor user input is given.
var ErrEmptyRequest = errors.New("command or user_input is required")

// StatusError is returned when the backend answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// GenerateRequest asks the backend for code. History is opaque to this
// service and passed through unchanged.
type GenerateRequest struct {
	Command             string           `json:"command,omitempty"`
	UserInput           string           `json:"user_input,omitempty"`
	Metadata            *profile.Profile `json:"metadata"`
	ConversationHistory json.RawMessage  `json:"conversation_history,omitempty"`
}

type GenerateResponse struct {
	Code           string          `json:"code"`
	Message        string          `json:"message,omitempty"`
	UpdatedHistory json.RawMessage `json:"updated_history,omitempty"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Client talks to the backend at BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client whose calls are bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// GenerateCode posts the request to /generate_code.
func (c *Client) GenerateCode(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if strings.TrimSpace(req.Command) == "" && strings.TrimSpace(req.UserInput) == "" {
		return nil, ErrEmptyRequest
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate_code", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out GenerateResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transcribe uploads audio as the multipart field "file" to /transcribe
// and returns the recognised text.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var out transcribeResponse
	if err := c.do(httpReq, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("backend unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode backend response: %w", err)
	}
	return nil
}
