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

package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	delta_sharing "github.com/magpierre/go_delta_sharing_client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/dsb-interpreter/internal/artifact"
	"github.com/magpierre/dsb-interpreter/internal/backend"
	"github.com/magpierre/dsb-interpreter/internal/datafile"
	"github.com/magpierre/dsb-interpreter/internal/frame"
	"github.com/magpierre/dsb-interpreter/internal/sandbox"
	"github.com/magpierre/dsb-interpreter/internal/session"
)

const orders = "id,name,amount\n1,ann,10.5\n2,bob,\n3,cid,20.25\n"

type fakeBackend struct {
	req   backend.GenerateRequest
	resp  *backend.GenerateResponse
	err   error
	audio string
}

func (b *fakeBackend) GenerateCode(_ context.Context, req backend.GenerateRequest) (*backend.GenerateResponse, error) {
	b.req = req
	return b.resp, b.err
}

func (b *fakeBackend) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	data, err := io.ReadAll(audio)
	b.audio = string(data)
	return "transcribed", err
}

type tableSource struct{ f *frame.Frame }

func (s tableSource) Shares(context.Context) ([]string, error) { return []string{"s"}, nil }

func (s tableSource) Tables(context.Context) ([]delta_sharing.Table, error) {
	return []delta_sharing.Table{{Name: "t", Share: "s", Schema: "d"}}, nil
}

func (s tableSource) Files(context.Context, delta_sharing.Table) ([]string, error) {
	return []string{"only"}, nil
}

func (s tableSource) Load(context.Context, delta_sharing.Table, string) (arrow.Table, error) {
	return s.f.Table(), nil
}

func newInterpreter(t *testing.T, b Backend) *Interpreter {
	t.Helper()
	in, err := New(Options{
		Backend: b,
		Sharing: func(profile string) (datafile.TableSource, error) {
			if profile != "valid" {
				return nil, datafile.ErrInvalidProfile
			}
			return tableSource{f: frame.New(frame.Ints("n", 1, 2, 3, 4))}, nil
		},
	})
	require.NoError(t, err)
	return in
}

func loaded(t *testing.T, in *Interpreter) *session.State {
	t.Helper()
	s, _ := session.NewStore().Acquire("")
	_, err := in.Upload(s, "orders.csv", strings.NewReader(orders))
	require.NoError(t, err)
	return s
}

func TestUploadProfilesDataset(t *testing.T) {
	in := newInterpreter(t, nil)
	s, _ := session.NewStore().Acquire("")

	p, err := in.Upload(s, "orders.csv", strings.NewReader(orders))
	require.NoError(t, err)

	dtypes, _ := json.Marshal(p.Dtypes)
	assert.JSONEq(t, `{"id":"int64","name":"object","amount":"float64"}`, string(dtypes))
	r, ok := p.NumericalRanges.Get("amount")
	require.True(t, ok)
	assert.Equal(t, 10.5, r.Min)
	assert.Equal(t, 20.25, r.Max)
	assert.Same(t, p, in.Profile(s))
}

func TestUploadRejectsUnsupported(t *testing.T) {
	in := newInterpreter(t, nil)
	s, _ := session.NewStore().Acquire("")

	_, err := in.Upload(s, "notes.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, datafile.ErrUnsupportedFileType)
	assert.Nil(t, in.Profile(s))
}

func TestExecuteSum(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	res, err := in.Execute(context.Background(), s, `df.Col("amount").Sum()`)
	require.NoError(t, err)
	assert.Equal(t, []artifact.Artifact{{Type: artifact.KindText, Data: "30.75"}}, res.Artifacts)
	assert.False(t, res.DatasetChanged)
	assert.Same(t, in.Profile(s), res.Metadata)
}

func TestExecuteMissingColumn(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	_, err := in.Execute(context.Background(), s, `df.Col("price").Sum()`)
	var execErr *sandbox.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, sandbox.ClassMissingKey, execErr.Class)
}

func TestExecuteDropNAUpdatesProfile(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	res, err := in.Execute(context.Background(), s, "df = df.DropNA()")
	require.NoError(t, err)
	assert.True(t, res.DatasetChanged)
	assert.Equal(t, []artifact.Artifact{{Type: artifact.KindText, Data: artifact.NoOutput}}, res.Artifacts)

	df, p := s.Dataset()
	assert.Equal(t, 2, df.NumRows())
	assert.Len(t, p.SampleRows, 2)
	assert.Same(t, p, res.Metadata)
}

func TestExecuteChartThenScalar(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	res, err := in.Execute(context.Background(), s, "plot.Hist(df.Col(\"amount\"), 5)\nmaxID := df.Col(\"id\").Max()")
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 2)
	assert.Equal(t, artifact.KindPlot, res.Artifacts[0].Type)
	assert.Equal(t, artifact.Artifact{Type: artifact.KindText, Data: "3"}, res.Artifacts[1])
}

func TestFailedRunKeepsProfileInStep(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	_, err := in.Execute(context.Background(), s, "df.Set(\"twice\", df.Col(\"id\").Scale(2))\npanic(\"late\")")
	require.Error(t, err)

	p := in.Profile(s)
	assert.Equal(t, []string{"id", "name", "amount", "twice"}, p.Columns)
}

func TestImportDeltaSharing(t *testing.T) {
	in := newInterpreter(t, nil)
	s, _ := session.NewStore().Acquire("")

	p, err := in.ImportDeltaSharing(context.Background(), s, datafile.DeltaSharingRequest{
		Profile: "valid", Share: "s", Schema: "d", Table: "t", Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, p.Columns)
	df, _ := s.Dataset()
	assert.Equal(t, 2, df.NumRows())

	_, err = in.ImportDeltaSharing(context.Background(), s, datafile.DeltaSharingRequest{
		Profile: "nope", Share: "s", Schema: "d", Table: "t",
	})
	assert.ErrorIs(t, err, datafile.ErrInvalidProfile)
}

func TestExport(t *testing.T) {
	in := newInterpreter(t, nil)
	empty, _ := session.NewStore().Acquire("")
	var buf bytes.Buffer
	assert.ErrorIs(t, in.Export(empty, &buf, datafile.FormatCSV), frame.ErrNoDataset)
	assert.Zero(t, buf.Len())

	s := loaded(t, in)
	require.NoError(t, in.Export(s, &buf, datafile.FormatCSV))
	assert.Equal(t, orders, buf.String())
}

func TestGenerateCodeKeepsConversation(t *testing.T) {
	b := &fakeBackend{resp: &backend.GenerateResponse{Code: "df.Head(3)", UpdatedHistory: json.RawMessage(`[1]`)}}
	in := newInterpreter(t, b)
	s := loaded(t, in)

	resp, err := in.GenerateCode(context.Background(), s, "", "show rows")
	require.NoError(t, err)
	assert.Equal(t, "df.Head(3)", resp.Code)
	assert.Equal(t, "show rows", b.req.UserInput)
	assert.Same(t, in.Profile(s), b.req.Metadata)
	assert.Nil(t, b.req.ConversationHistory)

	b.resp = &backend.GenerateResponse{Code: "df"}
	_, err = in.GenerateCode(context.Background(), s, "again", "")
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage(`[1]`), b.req.ConversationHistory)
	assert.Equal(t, json.RawMessage(`[1]`), s.Conversation())

	in.ClearHistory(s)
	assert.Nil(t, s.Conversation())
}

func TestGenerateCodeErrors(t *testing.T) {
	s, _ := session.NewStore().Acquire("")

	_, err := newInterpreter(t, nil).GenerateCode(context.Background(), s, "x", "")
	assert.ErrorIs(t, err, ErrNoBackend)

	failing := &fakeBackend{err: errors.New("down")}
	_, err = newInterpreter(t, failing).GenerateCode(context.Background(), s, "x", "")
	assert.EqualError(t, err, "down")
}

func TestTranscribeAndHistory(t *testing.T) {
	b := &fakeBackend{}
	in := newInterpreter(t, b)
	s, _ := session.NewStore().Acquire("")

	text, err := in.Transcribe(context.Background(), "a.webm", strings.NewReader("pcm"))
	require.NoError(t, err)
	assert.Equal(t, "transcribed", text)
	assert.Equal(t, "pcm", b.audio)

	in.AddHistory(s, "sum", "df.Col(\"id\").Sum()")
	assert.Equal(t, []session.HistoryEntry{{Command: "sum", Code: "df.Col(\"id\").Sum()"}}, in.History(s))
	in.ClearHistory(s)
	assert.Empty(t, in.History(s))
}

func TestExecuteIsDeterministic(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)
	code := "plot.Scatter(df.Col(\"id\"), df.Col(\"amount\"))\ntop := df.SortBy(\"amount\", false).Head(1)\nn := df.NumRows()"

	first, err := in.Execute(context.Background(), s, code)
	require.NoError(t, err)
	second, err := in.Execute(context.Background(), s, code)
	require.NoError(t, err)

	require.Len(t, first.Artifacts, 3)
	assert.Equal(t, first.Artifacts, second.Artifacts)
}

func TestSharedChartIsEmittedOnce(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	res, err := in.Execute(context.Background(), s, "fig := plot.New(\"totals\")\nsame := fig\nfig.Current().Plot(nil, df.Col(\"id\"))")
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 1)
	assert.Equal(t, artifact.KindPlot, res.Artifacts[0].Type)
}

func TestInPlaceSetYieldsNoOutput(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)

	res, err := in.Execute(context.Background(), s, `df.Set("double", df.Col("id").Scale(2))`)
	require.NoError(t, err)
	assert.Equal(t, []artifact.Artifact{{Type: artifact.KindText, Data: artifact.NoOutput}}, res.Artifacts)
	assert.True(t, res.DatasetChanged)
	assert.Contains(t, res.Metadata.Columns, "double")
}

func TestGoStatementLeavesDatasetAlone(t *testing.T) {
	in := newInterpreter(t, nil)
	s := loaded(t, in)
	before, _ := s.Dataset()

	_, err := in.Execute(context.Background(), s, "go func() {\n\tdf.Set(\"id\", df.Col(\"id\"))\n}()\nx := 1")
	var execErr *sandbox.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, sandbox.ClassExecution, execErr.Class)

	after, _ := s.Dataset()
	assert.Same(t, before, after)
	assert.Equal(t, before.Version(), after.Version())
}
