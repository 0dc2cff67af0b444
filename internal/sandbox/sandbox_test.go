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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/plot"
)

func dataset(t *testing.T) *frame.Frame {
	t.Helper()
	amount, err := frame.NewSeries("amount", frame.KindFloat, []any{10.5, nil, 20.25})
	require.NoError(t, err)
	return frame.New(
		frame.Ints("id", 1, 2, 3),
		frame.Strings("name", "a", "b", "c"),
		amount,
	)
}

func engine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{})
	require.NoError(t, err)
	return e
}

func execError(t *testing.T, err error) *ExecError {
	t.Helper()
	var ee *ExecError
	require.True(t, errors.As(err, &ee), "expected ExecError, got %v", err)
	return ee
}

func TestSanitize(t *testing.T) {
	in := "import \"os\"\n  import (\nimportant := 1\nx := 2 // import\n\timport\"net\""
	assert.Equal(t, "important := 1\nx := 2 // import", Sanitize(in))
}

func TestIsPureExpression(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`df.Col("amount").Sum()`, true},
		{`x`, true},
		{`df.Query("name == 'a'")`, true},
		{`a == b`, true},
		{`x := 1`, false},
		{`x = 1`, false},
		{`x += 1`, false},
		{`i++`, false},
		{`println(x)`, false},
		{`print("a")`, false},
		{`plot.Plot(nil, xs)`, false},
		{`chart.Bar("t", l, v)`, false},
		{`for i := range xs {`, false},
		{`if ok {`, false},
		{`}`, false},
		{`df.Query("amount >= 10")`, true},
		{`var y = 2`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPureExpression(tt.line), tt.line)
	}
}

func TestSplit(t *testing.T) {
	block, expr := Split("x := 1\ny := 2\nx + y\n\n")
	assert.Equal(t, "x := 1\ny := 2", block)
	assert.Equal(t, "x + y", expr)

	block, expr = Split("x := 1")
	assert.Equal(t, "x := 1", block)
	assert.Empty(t, expr)

	block, expr = Split("df.NumRows()")
	assert.Empty(t, block)
	assert.Equal(t, "df.NumRows()", expr)
}

func TestHasAssignmentIgnoresStrings(t *testing.T) {
	assert.False(t, HasAssignment(`df.Query("a = 1")`))
	assert.False(t, HasAssignment("df.Query(`a = 1`) // b = 2"))
	assert.False(t, HasAssignment(`x <= y`))
	assert.True(t, HasAssignment(`x <<= 1`))
}

func TestNewRejectsBadAlias(t *testing.T) {
	for _, alias := range []string{"1x", "frame", "for", "_"} {
		_, err := New(Options{Alias: alias})
		assert.ErrorIs(t, err, ErrInvalidAlias, alias)
	}
}

func TestExecuteSingleExpression(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), `df.Col("amount").Sum()`, dataset(t))
	require.NoError(t, err)
	require.True(t, run.HasResult)
	assert.Equal(t, 30.75, run.Result)
	assert.False(t, run.DatasetChanged)
}

func TestExecuteBlockThenExpression(t *testing.T) {
	code := `
top := df.SortBy("id", false)
var n = 2
top.Head(n)
`
	run, err := engine(t).Execute(context.Background(), code, dataset(t))
	require.NoError(t, err)
	require.True(t, run.HasResult)
	head, ok := run.Result.(*frame.Frame)
	require.True(t, ok)
	assert.Equal(t, 2, head.NumRows())
	assert.Equal(t, int64(3), head.Cell(0, "id"))

	require.Len(t, run.Bindings, 2)
	assert.Equal(t, "top", run.Bindings[0].Name)
	assert.Equal(t, "n", run.Bindings[1].Name)
}

func TestExecuteBareIdentifierResult(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), "x := df.NumRows()\nx", dataset(t))
	require.NoError(t, err)
	assert.Equal(t, "x", run.ResultName)
	assert.Equal(t, 3, run.Result)
}

func TestExecuteBindingOrder(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), "b := 1\na := 2\nb = 3\ndf = df", dataset(t))
	require.NoError(t, err)
	names := []string{}
	for _, b := range run.Bindings {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"b", "a"}, names)
	assert.Equal(t, 3, run.Bindings[0].Value)
	assert.False(t, run.DatasetChanged)
}

func TestExecuteMissingKey(t *testing.T) {
	_, err := engine(t).Execute(context.Background(), `df.Col("nope").Sum()`, dataset(t))
	ee := execError(t, err)
	assert.Equal(t, ClassMissingKey, ee.Class)
	assert.Equal(t, "KeyError: column 'nope' not found. Check that the variable or column name is spelled and used correctly.", ee.Message)
}

func TestExecuteTypeMismatch(t *testing.T) {
	_, err := engine(t).Execute(context.Background(), `df.Col("name").Sum()`, dataset(t))
	ee := execError(t, err)
	assert.Equal(t, ClassTypeMismatch, ee.Class)
	assert.Contains(t, ee.Message, "TypeError: ")
	assert.Contains(t, ee.Message, "Make sure all required variables are initialized with the expected types.")
}

func TestExecuteGenericFailure(t *testing.T) {
	_, err := engine(t).Execute(context.Background(), "x := 1\npanic(\"boom\")", dataset(t))
	ee := execError(t, err)
	assert.Equal(t, ClassExecution, ee.Class)
	assert.Equal(t, "Error executing code: boom", ee.Message)
}

func TestExecuteSyntaxError(t *testing.T) {
	_, err := engine(t).Execute(context.Background(), "x := (\ny := 2", dataset(t))
	ee := execError(t, err)
	assert.Equal(t, ClassExecution, ee.Class)
	assert.Contains(t, ee.Message, "syntax error at line")
}

func TestImportsAreUnavailable(t *testing.T) {
	_, err := engine(t).Execute(context.Background(), "import \"os\"\nos.Exit(1)", dataset(t))
	ee := execError(t, err)
	assert.Equal(t, ClassExecution, ee.Class)
}

func TestExecuteRebindsDataset(t *testing.T) {
	df := dataset(t)
	run, err := engine(t).Execute(context.Background(), "df = df.DropNA()", df)
	require.NoError(t, err)
	require.True(t, run.DatasetChanged)
	assert.Equal(t, 2, run.Dataset.NumRows())
	assert.Equal(t, 3, df.NumRows())
	assert.Empty(t, run.Bindings)
}

func TestExecuteDetectsInPlaceMutation(t *testing.T) {
	df := dataset(t)
	run, err := engine(t).Execute(context.Background(), `df.Set("double", df.Col("id").Scale(2))`, df)
	require.NoError(t, err)
	assert.False(t, run.HasResult)
	assert.True(t, run.DatasetChanged)
	assert.Same(t, df, run.Dataset)
	assert.True(t, run.Dataset.Has("double"))
}

func TestExecuteDrainsCharts(t *testing.T) {
	code := `
plot.Bar(df.Col("name"), df.Col("amount"))
fig := plot.New("second")
fig.Current().Plot([]float64{1, 2}, []float64{3, 4})
total := 3
`
	run, err := engine(t).Execute(context.Background(), code, dataset(t))
	require.NoError(t, err)
	require.Len(t, run.Charts, 2)
	for _, c := range run.Charts {
		fig, ok := c.(*plot.Figure)
		require.True(t, ok)
		assert.True(t, fig.Closed())
	}
	assert.Equal(t, "second", run.Charts[1].(*plot.Figure).Title())

	out := artifact.NewClassifier(nil).Collect(run.Candidates)
	require.Len(t, out, 3)
	assert.Equal(t, artifact.KindPlot, out[0].Type)
	assert.Equal(t, artifact.KindPlot, out[1].Type)
	assert.Equal(t, artifact.Artifact{Type: artifact.KindText, Data: "3"}, out[2])
}

func TestExecuteCapturesOutput(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), "println(\"hello\")\nx := 1", dataset(t))
	require.NoError(t, err)
	assert.Contains(t, run.Output, "hello")
}

func TestExecuteTimeout(t *testing.T) {
	e, err := New(Options{Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = e.Execute(context.Background(), "for {\n}", dataset(t))
	ee := execError(t, err)
	assert.Equal(t, ClassExecution, ee.Class)
	assert.Contains(t, ee.Message, "time limit")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecuteWithoutDataset(t *testing.T) {
	_, err := engine(t).Execute(context.Background(), "df.NumRows()", nil)
	ee := execError(t, err)
	assert.Equal(t, ClassExecution, ee.Class)
	assert.Contains(t, ee.Message, frame.ErrNoDataset.Error())

	run, err := engine(t).Execute(context.Background(), `df = frame.New(frame.Ints("a", 1))`, nil)
	require.NoError(t, err)
	assert.True(t, run.DatasetChanged)
	assert.Equal(t, []string{"a"}, run.Dataset.Columns())
}

func TestExecuteContinuationLine(t *testing.T) {
	code := "total := df.Col(\"id\").\n\tSum()"
	run, err := engine(t).Execute(context.Background(), code, dataset(t))
	require.NoError(t, err)
	assert.False(t, run.HasResult)
	require.Len(t, run.Bindings, 1)
	assert.Equal(t, 6.0, run.Bindings[0].Value)
}

func TestNumLibrary(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), "num.Mean([]float64{1, 2, 3}) * num.Pi / num.Pi", dataset(t))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, run.Result, 1e-9)
}

func TestExecuteCallWithoutValueHasNoResult(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), "fig := plot.New(\"t\")\nfig.Close()", dataset(t))
	require.NoError(t, err)
	assert.False(t, run.HasResult)
	assert.Nil(t, run.Result)

	df := dataset(t)
	run, err = engine(t).Execute(context.Background(), "x := 1\ndf.Set(\"double\", df.Col(\"id\").Scale(2))", df)
	require.NoError(t, err)
	assert.False(t, run.HasResult)
	out := artifact.NewClassifier(nil).Collect(run.Candidates)
	assert.Equal(t, []artifact.Artifact{{Type: artifact.KindText, Data: "1"}}, out)
}

func TestExecuteRejectsGoStatements(t *testing.T) {
	snippets := map[string]string{
		"statement":  "go func() {\n\tdf.Set(\"id\", df.Col(\"id\"))\n}()\nx := 1",
		"in closure": "f := func() {\n\tgo println()\n}\nf()",
		"in decl":    "func spin() {\n\tgo spin()\n}\nx := 1",
		"expression": "func() { go println() }()",
	}
	for name, code := range snippets {
		t.Run(name, func(t *testing.T) {
			df := dataset(t)
			_, err := engine(t).Execute(context.Background(), code, df)
			ee := execError(t, err)
			assert.Equal(t, ClassExecution, ee.Class)
			assert.ErrorIs(t, err, ErrGoStatement)
			assert.Zero(t, df.Version())
		})
	}

	_, err := engine(t).Execute(context.Background(), "x := 1\ny := 2\ngo println(x, y)", dataset(t))
	assert.Contains(t, execError(t, err).Message, "(line 3)")
}

func TestExecuteFunctionDeclarations(t *testing.T) {
	run, err := engine(t).Execute(context.Background(), "func double(x int) int { return x * 2 }\ndouble(21)", dataset(t))
	require.NoError(t, err)
	assert.Equal(t, 42, run.Result)
	assert.Empty(t, run.Bindings)

	code := `
base := 1
func fact(n int) int {
	if n < 2 {
		return base
	}
	return n * fact(n-1)
}
type pair struct{ a, b int }
func (p pair) sum() int { return p.a + p.b }
s := pair{1, 2}.sum()
fact(5)
`
	run, err = engine(t).Execute(context.Background(), code, dataset(t))
	require.NoError(t, err)
	assert.Equal(t, 120, run.Result)
	require.Len(t, run.Bindings, 2)
	assert.Equal(t, artifact.Named{Name: "s", Value: 3}, run.Bindings[1])
}

func TestFuncDecls(t *testing.T) {
	block := "x := func() int { return 1 }()\nfunc f() map[string]struct{} {\n\treturn nil\n}\nfunc (p pair) g() (int, error) { return 0, nil }\nfunc h[T any](v T) T { return v }"
	got := funcDecls(block)
	require.Len(t, got, 3)
	assert.True(t, strings.HasPrefix(block[got[0].start:got[0].end], "func f()"))
	assert.True(t, strings.HasSuffix(block[got[0].start:got[0].end], "return nil\n}"))
	assert.Equal(t, "func (p pair) g() (int, error) { return 0, nil }", block[got[1].start:got[1].end])
	assert.Equal(t, "func h[T any](v T) T { return v }", block[got[2].start:got[2].end])
}
