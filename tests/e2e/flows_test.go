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

package e2e

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/qotd-e2e/flows"
	"github.com/ttbt-io/qotd-e2e/targetapp"
	"github.com/ttbt-io/qotd-e2e/verify"
	"github.com/ttbt-io/qotd-e2e/wait"
)

func TestAuthentication(t *testing.T) {
	ts := startTestServer(t, targetapp.Options{})
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			res := flows.Authenticate(t.Context(), e.open(t), flowConfig(t, e.baseURL(ts)))
			logResult(t, res)
			require.True(t, res.Passed())
			assert.Equal(t, []flows.State{flows.Init, flows.Navigating, flows.Authenticating, flows.AwaitingContent, flows.Verified}, res.Transitions)
		})
	}
}

func TestAuthenticationWrongPassword(t *testing.T) {
	ts := startTestServer(t, targetapp.Options{})
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			cfg := flowConfig(t, e.baseURL(ts))
			cfg.Password = "not-the-password"
			cfg.NavigationTimeout = time.Second

			res := flows.Authenticate(t.Context(), e.open(t), cfg)
			logResult(t, res)
			require.False(t, res.Passed())
			assert.Equal(t, flows.Failed, res.Final)

			var se *flows.StepError
			require.ErrorAs(t, res.Err, &se)
			assert.Equal(t, "dashboard reached", se.Step)
			var te *wait.TimeoutExceeded
			assert.ErrorAs(t, res.Err, &te)
			assert.NotEmpty(t, res.Artifacts)
		})
	}
}

func TestLeaderboard(t *testing.T) {
	ts := startTestServer(t, targetapp.Options{})
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			rows, res := flows.Leaderboard(t.Context(), e.open(t), flowConfig(t, e.baseURL(ts)))
			logResult(t, res)
			require.True(t, res.Passed())
			VerifyGolden(t, "leaderboard.txt", rowsText(rows))
		})
	}
}

func TestLeaderboardUnsorted(t *testing.T) {
	ts := startTestServer(t, targetapp.Options{UnsortedLeaderboard: true})
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			_, res := flows.Leaderboard(t.Context(), e.open(t), flowConfig(t, e.baseURL(ts)))
			logResult(t, res)
			require.False(t, res.Passed())

			var se *flows.StepError
			require.ErrorAs(t, res.Err, &se)
			assert.Equal(t, "ranking order", se.Step)
			assert.Equal(t, flows.AwaitingContent, se.State)
			var af *verify.AssertionFailed
			require.ErrorAs(t, res.Err, &af)
			assert.Contains(t, af.Error(), "PES1UG22CS001 140")
		})
	}
}

func TestQuestionOfTheDay(t *testing.T) {
	ts := startTestServer(t, targetapp.Options{
		LoadingRenders: 2,
		QOTDDelay:      500 * time.Millisecond,
	})
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			q, res := flows.QuestionOfTheDay(t.Context(), e.open(t), flowConfig(t, e.baseURL(ts)))
			logResult(t, res)
			require.True(t, res.Passed())
			assert.Equal(t, "Theatre Square", q.Title)
			require.NotNil(t, q.Link)
			assert.Equal(t, "codeforces.com", q.Link.Hostname())
			assert.Equal(t, "/problemset/problem/1/A", q.Link.Path)
		})
	}
}

func TestQuestionOfTheDayFailure(t *testing.T) {
	ts := startTestServer(t, targetapp.Options{FailQOTD: true})
	for _, e := range engines() {
		t.Run(e.name, func(t *testing.T) {
			start := time.Now()
			_, res := flows.QuestionOfTheDay(t.Context(), e.open(t), flowConfig(t, e.baseURL(ts)))
			logResult(t, res)
			require.False(t, res.Passed())

			var se *flows.StepError
			require.ErrorAs(t, res.Err, &se)
			assert.Equal(t, "question title loaded", se.Step)
			var te *wait.TimeoutExceeded
			assert.False(t, errors.As(res.Err, &te), "error markers fail without waiting for the timeout")
			assert.Less(t, time.Since(start), 10*time.Second)
		})
	}
}

func TestQuestionOfTheDayUpdated(t *testing.T) {
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	ts := startTestServer(t, targetapp.Options{QOTDDelay: 2 * time.Second})
	next := targetapp.Question{Title: "Watermelon", Link: "https://codeforces.com/problemset/problem/4/A"}
	require.NoError(t, ts.SetQuestion(next))

	e := chromeEngine()
	q, res := flows.QuestionOfTheDay(t.Context(), e.open(t), flowConfig(t, e.baseURL(ts)))
	logResult(t, res)
	require.True(t, res.Passed())
	assert.Equal(t, next.Title, q.Title)
	assert.Equal(t, next.Link, q.Link.String())
}
