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

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/traefik/yaegi/interp"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

// Class groups snippet failures by what the user most likely did wrong.
type Class string

const (
	ClassMissingKey   Class = "missing_key"
	ClassTypeMismatch Class = "type_mismatch"
	ClassExecution    Class = "execution"
)

// ExecError is a snippet failure. It is reported to the caller as a
// recoverable error, not as a service failure.
type ExecError struct {
	Class   Class
	Message string
	Cause   error
}

func (e *ExecError) Error() string { return e.Message }

func (e *ExecError) Unwrap() error { return e.Cause }

// Compiler diagnostics that indicate an operation on incompatible types.
var typeDiagnostics = []string{
	"mismatched types",
	"cannot use",
	"invalid operation",
	"cannot convert",
	"interface conversion",
}

// classify turns an interpreter error into an ExecError.
func classify(err error, timeout string) *ExecError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExecError{
			Class:   ClassExecution,
			Message: fmt.Sprintf("Error executing code: execution exceeded the time limit of %s", timeout),
			Cause:   err,
		}
	}

	cause := err
	var pv interp.Panic
	var pp *interp.Panic
	switch {
	case errors.As(err, &pv):
		cause = panicError(pv.Value)
	case errors.As(err, &pp):
		cause = panicError(pp.Value)
	}

	var keyErr *frame.KeyError
	if errors.As(cause, &keyErr) {
		return &ExecError{
			Class: ClassMissingKey,
			Message: fmt.Sprintf("KeyError: %s. Check that the variable or column name is spelled and used correctly.",
				keyErr.Error()),
			Cause: cause,
		}
	}

	if isTypeError(cause) {
		return &ExecError{
			Class: ClassTypeMismatch,
			Message: fmt.Sprintf("TypeError: %s. Make sure all required variables are initialized with the expected types.",
				cause.Error()),
			Cause: cause,
		}
	}

	return &ExecError{
		Class:   ClassExecution,
		Message: fmt.Sprintf("Error executing code: %s", cause.Error()),
		Cause:   cause,
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("%v", v)
}

func isTypeError(err error) bool {
	if errors.Is(err, frame.ErrTypeMismatch) {
		return true
	}
	var rtErr runtime.Error
	if errors.As(err, &rtErr) && strings.Contains(rtErr.Error(), "interface conversion") {
		return true
	}
	msg := err.Error()
	for _, d := range typeDiagnostics {
		if strings.Contains(msg, d) {
			return true
		}
	}
	return false
}
