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

// Package session holds per-user state: the current dataset with its
// profile, the command history and the code generation conversation.
package session

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/profile"
)

// HistoryEntry is one logged command.
type HistoryEntry struct {
	Command string `json:"command"`
	Code    string `json:"code"`
}

// State is the state of one session. Lock and Unlock serialize work that
// reads and then replaces the dataset; the accessors are safe on their own.
type State struct {
	id   string
	exec sync.Mutex

	mu           sync.RWMutex
	dataset      *frame.Frame
	profile      *profile.Profile
	history      []HistoryEntry
	conversation json.RawMessage
}

func newState(id string) *State {
	return &State{id: id}
}

// ID returns the session identifier.
func (s *State) ID() string { return s.id }

// Lock acquires the session's execution lock.
func (s *State) Lock() { s.exec.Lock() }

// Unlock releases the session's execution lock.
func (s *State) Unlock() { s.exec.Unlock() }

// Dataset returns the current dataset and its profile. Both are nil until
// a dataset is loaded.
func (s *State) Dataset() (*frame.Frame, *profile.Profile) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset, s.profile
}

// Profile returns the profile of the current dataset.
func (s *State) Profile() *profile.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SetDataset replaces the dataset and recomputes its profile.
func (s *State) SetDataset(f *frame.Frame) *profile.Profile {
	p := profile.Compute(f)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = f
	s.profile = p
	return p
}

// AddHistory appends a command to the history.
func (s *State) AddHistory(command, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, HistoryEntry{Command: command, Code: code})
}

// History returns a copy of the history in insertion order.
func (s *State) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory drops the command history and the conversation.
func (s *State) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.conversation = nil
}

// Conversation returns the code generation conversation, or nil.
func (s *State) Conversation() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversation
}

// SetConversation stores the conversation returned by the backend.
func (s *State) SetConversation(c json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversation = c
}

// Store maps session identifiers to their state.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*State
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*State)}
}

// Get returns the state for id, if any.
func (st *Store) Get(id string) (*State, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Acquire returns the state for id, creating it when missing. Identifiers
// that are not UUIDs are replaced by a fresh one; created reports whether
// the caller must hand the identifier back to the client.
func (st *Store) Acquire(id string) (s *State, created bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s, false
	}
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	s = newState(id)
	st.sessions[id] = s
	return s, true
}

// Len returns the number of sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
