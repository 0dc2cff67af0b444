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

// Package sandbox runs user snippets in an embedded Go interpreter whose
// only reachable names are the dataset and the analysis libraries.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"testing/fstest"
	"time"

	"github.com/traefik/yaegi/interp"

	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/plot"
)

const (
	// DefaultAlias is the name the dataset is bound to.
	DefaultAlias = "df"
	// DefaultTimeout bounds a run when no timeout is configured.
	DefaultTimeout = 60 * time.Second
)

// ErrInvalidAlias is returned for a dataset alias that is not a usable identifier.
var ErrInvalidAlias = errors.New("invalid dataset alias")

const prelude = `import (
	"frame"
	"num"
	"plot"
	"chart"
	` + runtimeID + ` "` + runtimePkg + `"
)`

// Options configures an Engine.
type Options struct {
	// Alias is the identifier the dataset is bound to. Defaults to "df".
	Alias string
	// Timeout bounds each run. Zero means DefaultTimeout, negative disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Engine executes snippets. It is safe for concurrent use; every run gets
// its own interpreter and charting surface.
type Engine struct {
	alias   string
	timeout time.Duration
	log     *slog.Logger
}

// Run is the outcome of a successful execution.
type Run struct {
	artifact.Candidates

	// Dataset is the frame bound to the alias after the run.
	Dataset *frame.Frame
	// DatasetChanged is set when the alias was rebound or the frame mutated.
	DatasetChanged bool
	// Output is everything the snippet printed.
	Output string
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	alias := opts.Alias
	if alias == "" {
		alias = DefaultAlias
	}
	if !token.IsIdentifier(alias) || alias == "_" || alias == runtimeID || slices.Contains(Libraries, alias) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAlias, alias)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{alias: alias, timeout: timeout, log: logger}, nil
}

// Alias returns the identifier the dataset is bound to.
func (e *Engine) Alias() string { return e.alias }

// Execute sanitizes and runs code against df. Snippet failures are returned
// as *ExecError; any other error means the environment could not be built.
func (e *Engine) Execute(ctx context.Context, code string, df *frame.Frame) (*Run, error) {
	code = Sanitize(code)
	block, expr := Split(code)

	stmts, err := parseBlock(block)
	if err != nil && expr != "" {
		// the last line continues the previous statement
		if all, allErr := parseBlock(code); allErr == nil {
			stmts, expr, err = all, "", nil
		}
	}
	if err == nil && expr != "" {
		err = checkExpression(expr, exprLine(block))
	}
	if err != nil {
		return nil, classify(err, e.timeout.String())
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	out := &syncBuffer{}
	surface := plot.NewSurface()
	defer surface.CloseAll()

	i := interp.New(interp.Options{
		Stdout:               out,
		Stderr:               out,
		SourcecodeFilesystem: fstest.MapFS{},
	})
	for _, exports := range []interp.Exports{Symbols, surfaceSymbols(surface), datasetSymbols(df)} {
		if err := i.Use(exports); err != nil {
			return nil, fmt.Errorf("failed to load symbols: %w", err)
		}
	}

	if _, err := i.EvalWithContext(ctx, prelude); err != nil {
		return nil, fmt.Errorf("failed to import libraries: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, fmt.Sprintf("var %s = %s.Dataset()", e.alias, runtimeID)); err != nil {
		return nil, fmt.Errorf("failed to bind dataset: %w", err)
	}

	version := df.Version()
	run := &Run{Dataset: df}

	for _, st := range stmts {
		if _, err := i.EvalWithContext(ctx, st.source); err != nil {
			e.logOutput(out)
			return nil, classify(err, e.timeout.String())
		}
	}

	if expr != "" {
		src := evalSource(expr)
		if prog, ok := compileValue(i, src); ok {
			v, err := i.ExecuteWithContext(ctx, prog)
			if err != nil {
				e.logOutput(out)
				return nil, classify(err, e.timeout.String())
			}
			run.Result, run.HasResult = valueOf(v)
			run.ResultName = identifier(expr)
		} else if _, err := i.EvalWithContext(ctx, src); err != nil {
			e.logOutput(out)
			return nil, classify(err, e.timeout.String())
		}
	}

	for _, name := range bindings(stmts, e.reserved()) {
		v, err := i.EvalWithContext(ctx, name)
		if err != nil {
			continue
		}
		if val, ok := valueOf(v); ok {
			run.Bindings = append(run.Bindings, artifact.Named{Name: name, Value: val})
		}
	}

	if v, err := i.EvalWithContext(ctx, e.alias); err == nil {
		if val, ok := valueOf(v); ok {
			if f, ok := val.(*frame.Frame); ok && (f != df || f.Version() != version) {
				run.Dataset = f
				run.DatasetChanged = true
			}
		}
	}

	for _, fig := range surface.Drain() {
		run.Charts = append(run.Charts, fig)
	}

	run.Output = out.String()
	e.logOutput(out)
	return run, nil
}

func (e *Engine) reserved() []string {
	return append([]string{e.alias, runtimeID, "_"}, Libraries...)
}

func (e *Engine) logOutput(out *syncBuffer) {
	if s := out.String(); s != "" {
		e.log.Debug("snippet output", "alias", e.alias, "output", s)
	}
}

// compileValue compiles expr as the argument of a single-valued call. It
// fails for calls that return nothing, which then run as statements with
// no result.
func compileValue(i *interp.Interpreter, expr string) (prog *interp.Program, ok bool) {
	defer func() {
		if recover() != nil {
			prog, ok = nil, false
		}
	}()
	prog, err := i.Compile(fmt.Sprintf("%s.Value(%s)", runtimeID, expr))
	return prog, err == nil
}

// exprLine is the line of a trailing expression that follows block.
func exprLine(block string) int {
	if block == "" {
		return 1
	}
	return strings.Count(block, "\n") + 2
}

// valueOf unwraps an interpreter result. Invalid results and nil
// interfaces have no value.
func valueOf(v reflect.Value) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.CanInterface() {
		return nil, false
	}
	return v.Interface(), true
}
