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

package requestid

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	id, err := New()
	require.NoError(t, err)
	assert.Len(t, id, 32)
	_, err = hex.DecodeString(id)
	assert.NoError(t, err)
}

func TestAccept(t *testing.T) {
	assert.True(t, Accept("rid-123"))
	assert.False(t, Accept(""))
	assert.False(t, Accept("has space"))
	assert.False(t, Accept("line\nbreak"))
	assert.False(t, Accept(strings.Repeat("a", maxLen+1)))
}
