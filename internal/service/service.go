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

// Package service implements the interpreter operations on top of a
// session: loading datasets, running snippets and proxying to the backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/backend"
	"github.com/magpierre/dsb-interpreter/internal/datafile"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/profile"
	"github.com/magpierre/dsb-interpreter/internal/sandbox"
	"github.com/magpierre/dsb-interpreter/internal/session"
)

// ErrNoBackend is returned by backend operations when none is configured.
var ErrNoBackend = errors.New("no code generation backend configured")

// Backend generates code and transcribes audio.
type Backend interface {
	GenerateCode(ctx context.Context, req backend.GenerateRequest) (*backend.GenerateResponse, error)
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// SourceFunc opens a Delta Sharing server from a profile.
type SourceFunc func(profile string) (datafile.TableSource, error)

// Options configures an Interpreter.
type Options struct {
	Engine     *sandbox.Engine
	Classifier *artifact.Classifier
	Backend    Backend
	// Sharing defaults to datafile.NewSharingClient with SharingTimeout.
	Sharing        SourceFunc
	SharingTimeout time.Duration
	Logger         *slog.Logger
}

// Interpreter runs every operation of one session.
type Interpreter struct {
	engine     *sandbox.Engine
	classifier *artifact.Classifier
	backend    Backend
	sharing    SourceFunc
	log        *slog.Logger
}

// ExecuteResult is what a successful run returns to the caller.
type ExecuteResult struct {
	Artifacts []artifact.Artifact
	Metadata  *profile.Profile
	// DatasetChanged is set when the run replaced or modified the dataset.
	DatasetChanged bool
	Output         string
}

// New creates an Interpreter. A nil Engine or Classifier gets defaults.
func New(opts Options) (*Interpreter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine := opts.Engine
	if engine == nil {
		var err error
		engine, err = sandbox.New(sandbox.Options{Logger: logger})
		if err != nil {
			return nil, err
		}
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = artifact.NewClassifier(logger)
	}

	sharing := opts.Sharing
	if sharing == nil {
		timeout := opts.SharingTimeout
		sharing = func(profile string) (datafile.TableSource, error) {
			return datafile.NewSharingClient(profile, timeout)
		}
	}

	return &Interpreter{
		engine:     engine,
		classifier: classifier,
		backend:    opts.Backend,
		sharing:    sharing,
		log:        logger,
	}, nil
}

// Upload parses a data file and makes it the session dataset.
func (in *Interpreter) Upload(s *session.State, filename string, r io.Reader) (*profile.Profile, error) {
	f, err := datafile.Parse(filename, r)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()
	p := s.SetDataset(f)
	in.log.Info("dataset uploaded", "session", s.ID(), "file", filename, "rows", f.NumRows(), "columns", f.NumCols())
	return p, nil
}

// ImportDeltaSharing loads a shared table and makes it the session dataset.
func (in *Interpreter) ImportDeltaSharing(ctx context.Context, s *session.State, req datafile.DeltaSharingRequest) (*profile.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	src, err := in.sharing(req.Profile)
	if err != nil {
		return nil, err
	}

	f, err := datafile.LoadDeltaSharing(ctx, src, req)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()
	p := s.SetDataset(f)
	in.log.Info("dataset imported", "session", s.ID(), "share", req.Share, "schema", req.Schema,
		"table", req.Table, "rows", f.NumRows())
	return p, nil
}

// Execute runs code against the session dataset. Snippet failures are
// returned as *sandbox.ExecError.
func (in *Interpreter) Execute(ctx context.Context, s *session.State, code string) (*ExecuteResult, error) {
	s.Lock()
	defer s.Unlock()

	df, _ := s.Dataset()
	before := df.Version()

	run, err := in.engine.Execute(ctx, code, df)
	if err != nil {
		// a failed snippet may still have modified the frame in place
		if df != nil && df.Version() != before {
			s.SetDataset(df)
		}
		var execErr *sandbox.ExecError
		if errors.As(err, &execErr) {
			in.log.Info("snippet failed", "session", s.ID(), "class", execErr.Class)
		}
		return nil, err
	}

	result := &ExecuteResult{
		Artifacts:      in.classifier.Collect(run.Candidates),
		DatasetChanged: run.DatasetChanged,
		Output:         run.Output,
	}
	if run.DatasetChanged {
		result.Metadata = s.SetDataset(run.Dataset)
	} else {
		result.Metadata = s.Profile()
	}

	in.log.Debug("snippet executed", "session", s.ID(), "artifacts", len(result.Artifacts),
		"dataset_changed", run.DatasetChanged)
	return result, nil
}

// Export writes the session dataset to w. It fails with frame.ErrNoDataset
// before writing anything when no dataset is loaded.
func (in *Interpreter) Export(s *session.State, w io.Writer, format datafile.ExportFormat) error {
	s.Lock()
	defer s.Unlock()

	df, _ := s.Dataset()
	if df == nil {
		return frame.ErrNoDataset
	}
	if err := datafile.Export(w, df, format); err != nil {
		return fmt.Errorf("failed to export dataset: %w", err)
	}
	return nil
}

// GenerateCode asks the backend for code for a command or free text,
// sending the dataset profile and the stored conversation.
func (in *Interpreter) GenerateCode(ctx context.Context, s *session.State, command, userInput string) (*backend.GenerateResponse, error) {
	if in.backend == nil {
		return nil, ErrNoBackend
	}

	resp, err := in.backend.GenerateCode(ctx, backend.GenerateRequest{
		Command:             command,
		UserInput:           userInput,
		Metadata:            s.Profile(),
		ConversationHistory: s.Conversation(),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.UpdatedHistory) > 0 {
		s.SetConversation(resp.UpdatedHistory)
	}
	return resp, nil
}

// Transcribe converts recorded audio to text through the backend.
func (in *Interpreter) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if in.backend == nil {
		return "", ErrNoBackend
	}
	return in.backend.Transcribe(ctx, filename, audio)
}

func (in *Interpreter) AddHistory(s *session.State, command, code string) {
	s.AddHistory(command, code)
}

func (in *Interpreter) History(s *session.State) []session.HistoryEntry {
	return s.History()
}

func (in *Interpreter) ClearHistory(s *session.State) {
	s.ClearHistory()
}

// Profile returns the profile of the session dataset, or nil.
func (in *Interpreter) Profile(s *session.State) *profile.Profile {
	return s.Profile()
}
