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

package session

import (
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magpierre/dsb-interpreter/internal/frame"
)

func TestAcquire(t *testing.T) {
	st := NewStore()

	s, created := st.Acquire("")
	require.True(t, created)
	_, err := uuid.Parse(s.ID())
	require.NoError(t, err)

	again, created := st.Acquire(s.ID())
	assert.False(t, created)
	assert.Same(t, s, again)

	known := uuid.NewString()
	s2, created := st.Acquire(known)
	assert.True(t, created)
	assert.Equal(t, known, s2.ID())

	s3, _ := st.Acquire("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", s3.ID())
	assert.Equal(t, 3, st.Len())

	_, ok := st.Get("missing")
	assert.False(t, ok)
}

func TestSetDatasetComputesProfile(t *testing.T) {
	s, _ := NewStore().Acquire("")
	f, p := s.Dataset()
	assert.Nil(t, f)
	assert.Nil(t, p)

	p = s.SetDataset(frame.New(frame.Ints("a", 3, 1)))
	require.NotNil(t, p)
	r, ok := p.NumericalRanges.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Min)
	assert.Same(t, p, s.Profile())
}

func TestHistory(t *testing.T) {
	s, _ := NewStore().Acquire("")
	s.AddHistory("sum", "df.Col(\"a\").Sum()")
	s.AddHistory("head", "df.Head(5)")
	s.SetConversation(json.RawMessage(`[{"role":"user"}]`))

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, HistoryEntry{Command: "head", Code: "df.Head(5)"}, h[1])

	h[0].Command = "changed"
	assert.Equal(t, "sum", s.History()[0].Command)

	s.ClearHistory()
	assert.Empty(t, s.History())
	assert.Nil(t, s.Conversation())
}

func TestConcurrentHistory(t *testing.T) {
	s, _ := NewStore().Acquire("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddHistory("c", "x")
		}()
	}
	wg.Wait()
	assert.Len(t, s.History(), 50)
}
