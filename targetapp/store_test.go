// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package targetapp

import (
	"testing"

	"github.com/c2FmZQ/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestStorePersistence(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(storage.New(dir, nil), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, st.AddUser("Alice@Example.com", "Alice", "s3cret"))
	require.NoError(t, st.SetPoints("alice", 10))
	require.NoError(t, st.SetPoints("bob", 30))
	require.NoError(t, st.SetPoints("alice", 50))
	require.NoError(t, st.SetQuestion(Question{Title: "Two Sum", Link: "https://codeforces.com/x"}))

	reopened, err := NewStore(storage.New(dir, nil), bcrypt.MinCost)
	require.NoError(t, err)

	u, ok := reopened.CheckPassword("alice@example.com", "s3cret")
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Name)
	_, ok = reopened.CheckPassword("alice@example.com", "nope")
	assert.False(t, ok)
	_, ok = reopened.CheckPassword("nobody@example.com", "s3cret")
	assert.False(t, ok)

	assert.Equal(t, []Entry{{"alice", 50}, {"bob", 30}}, reopened.Leaderboard())
	q, ok := reopened.Question()
	assert.True(t, ok)
	assert.Equal(t, "Two Sum", q.Title)
}

func TestStoreSeed(t *testing.T) {
	st, err := NewStore(storage.New(t.TempDir(), nil), bcrypt.MinCost)
	require.NoError(t, err)
	_, ok := st.Question()
	assert.False(t, ok)

	require.NoError(t, st.Seed(DefaultDemoEmail, DefaultDemoPassword))
	_, ok = st.CheckPassword(DefaultDemoEmail, DefaultDemoPassword)
	assert.True(t, ok)

	board := st.Leaderboard()
	require.Len(t, board, 5)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Points, board[i].Points)
	}
	// Ties are ordered by name.
	assert.Equal(t, "PES1UG22CS042", board[1].Name)
	assert.Len(t, st.Submissions(), 3)

	// Seeding a store with users is a no-op.
	require.NoError(t, st.SetPoints("extra", 1))
	require.NoError(t, st.Seed("other@example.com", "x"))
	_, ok = st.User("other@example.com")
	assert.False(t, ok)
	assert.Len(t, st.Leaderboard(), 6)
}

func TestStoreRenders(t *testing.T) {
	st, err := NewStore(storage.New(t.TempDir(), nil), bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, 0, st.CountRender("a"))
	assert.Equal(t, 1, st.CountRender("a"))
	assert.Equal(t, 0, st.CountRender("b"))
	st.ResetRenders("a")
	assert.Equal(t, 0, st.CountRender("a"))
}

func TestStoreRejectsEmptyCredentials(t *testing.T) {
	st, err := NewStore(storage.New(t.TempDir(), nil), bcrypt.MinCost)
	require.NoError(t, err)
	assert.Error(t, st.AddUser(" ", "x", "pw"))
	assert.Error(t, st.AddUser("a@example.com", "x", ""))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "u***@example.com", maskEmail("user@example.com"))
	assert.Equal(t, "<empty>", maskEmail(""))
	assert.Equal(t, "****", maskEmail("nope"))
}
