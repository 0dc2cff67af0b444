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

package frame

import (
	"errors"
	"fmt"
)

// Common errors returned by the frame package.
var (
	// ErrColumnNotFound is returned when a column name is not found.
	ErrColumnNotFound = errors.New("column not found")

	// ErrTypeMismatch is returned when an operation does not apply to a column kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrLengthMismatch is returned when columns of different lengths are combined.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrInvalidQuery is returned when a query expression cannot be parsed.
	ErrInvalidQuery = errors.New("invalid query expression")

	// ErrNoDataset is returned when an operation runs against a nil frame.
	ErrNoDataset = errors.New("no dataset loaded")

	// ErrDuplicateColumn is returned when two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column")
)

// KeyError reports a reference to a column that does not exist.
// Snippet-facing methods panic with a *KeyError.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("column '%s' not found", e.Key)
}

func (e *KeyError) Unwrap() error { return ErrColumnNotFound }

// TypeError reports an operation applied to an incompatible column kind.
type TypeError struct {
	Op     string
	Detail string
}

func (e *TypeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported operation %s", e.Op)
	}
	return fmt.Sprintf("unsupported operation %s: %s", e.Op, e.Detail)
}

func (e *TypeError) Unwrap() error { return ErrTypeMismatch }

func missing(name string) {
	panic(&KeyError{Key: name})
}

func typeMismatch(op string, format string, args ...any) {
	panic(&TypeError{Op: op, Detail: fmt.Sprintf(format, args...)})
}
