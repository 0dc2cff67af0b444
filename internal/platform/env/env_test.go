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

package env

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	assert.Equal(t, "fallback", String("ENV_STRING_DOES_NOT_EXIST", "fallback"))

	t.Setenv("ENV_STRING_KEY", "value")
	assert.Equal(t, "value", String("ENV_STRING_KEY", "fallback"))
}

func TestDuration(t *testing.T) {
	got, err := Duration("ENV_DURATION_DOES_NOT_EXIST", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, got)

	t.Setenv("ENV_DURATION_KEY", "250ms")
	got, err = Duration("ENV_DURATION_KEY", 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got)

	t.Setenv("ENV_DURATION_KEY_INVALID", "not-a-duration")
	_, err = Duration("ENV_DURATION_KEY_INVALID", 5*time.Second)
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	got, err := Bool("ENV_BOOL_DOES_NOT_EXIST", true)
	require.NoError(t, err)
	assert.True(t, got)

	t.Setenv("ENV_BOOL_KEY", "false")
	got, err = Bool("ENV_BOOL_KEY", true)
	require.NoError(t, err)
	assert.False(t, got)

	t.Setenv("ENV_BOOL_KEY_INVALID", "nope")
	_, err = Bool("ENV_BOOL_KEY_INVALID", false)
	assert.Error(t, err)
}

func TestInt(t *testing.T) {
	got, err := Int("ENV_INT_DOES_NOT_EXIST", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	t.Setenv("ENV_INT_KEY", "7")
	got, err = Int("ENV_INT_KEY", 42)
	require.NoError(t, err)
	assert.Equal(t, 7, got)

	t.Setenv("ENV_INT_KEY_INVALID", "nope")
	_, err = Int("ENV_INT_KEY_INVALID", 42)
	assert.Error(t, err)
}

func TestLevel(t *testing.T) {
	got, err := Level("ENV_LEVEL_DOES_NOT_EXIST", slog.LevelInfo)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, got)

	t.Setenv("ENV_LEVEL_KEY", "debug")
	got, err = Level("ENV_LEVEL_KEY", slog.LevelInfo)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, got)

	t.Setenv("ENV_LEVEL_KEY_INVALID", "loud")
	_, err = Level("ENV_LEVEL_KEY_INVALID", slog.LevelInfo)
	assert.Error(t, err)
}
