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

package report

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/qotd-e2e/flows"
	"github.com/ttbt-io/qotd-e2e/verify"
)

func passed(name string) *flows.Result {
	return &flows.Result{
		Flow:        name,
		Final:       flows.Verified,
		Transitions: []flows.State{flows.Init, flows.Navigating, flows.Verified},
		Steps:       make([]flows.StepRecord, 3),
		Duration:    1500 * time.Millisecond,
	}
}

func failed(name string) *flows.Result {
	cause := &verify.AssertionFailed{
		Check:    "ranking",
		Message:  "rows 0 and 1 are out of order",
		Observed: verify.Inversion{I: 0, J: 1},
		Detail:   "--- Expected\n+++ Rendered",
	}
	return &flows.Result{
		Flow:      name,
		Final:     flows.Failed,
		Steps:     make([]flows.StepRecord, 2),
		Duration:  2 * time.Second,
		Err:       &flows.StepError{Flow: name, Step: "ranking order", State: flows.AwaitingContent, Err: cause},
		Artifacts: []string{"/tmp/a.png"},
	}
}

func TestFromResult(t *testing.T) {
	fr := FromResult(failed(flows.LeaderboardFlow))
	assert.False(t, fr.Passed)
	assert.Equal(t, "Failed", fr.Final)
	assert.Equal(t, "ranking order", fr.FailedStep)
	assert.Equal(t, "AwaitingContent", fr.FailedState)
	assert.Contains(t, fr.Message, "ranking check failed")
	assert.NotContains(t, fr.Message, "flow failed at step")
	assert.Equal(t, 2, fr.Steps)

	fr = FromResult(passed(flows.AuthFlow))
	assert.True(t, fr.Passed)
	assert.Empty(t, fr.FailedStep)
	assert.Empty(t, fr.Message)

	fr = FromResult(&flows.Result{Flow: "x", Final: flows.Failed, Err: errors.New("boom")})
	assert.Equal(t, "boom", fr.Message)
	assert.Empty(t, fr.FailedStep)
}

func TestRunPassed(t *testing.T) {
	r := NewRun("http://localhost:3000", "static")
	assert.False(t, r.Passed(), "an empty run does not pass")
	r.Add(passed(flows.AuthFlow))
	assert.True(t, r.Passed())
	r.Add(failed(flows.LeaderboardFlow))
	assert.False(t, r.Passed())
	assert.Equal(t, []string{flows.LeaderboardFlow}, r.Failed())
}

func TestWriteSummary(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	r := NewRun("http://localhost:3000", "static")
	r.Add(passed(flows.AuthFlow))
	r.Add(failed(flows.LeaderboardFlow))

	var buf bytes.Buffer
	require.NoError(t, r.WriteSummary(&buf))
	out := buf.String()
	assert.Contains(t, out, "PASS authentication (1.5s)\n")
	assert.Contains(t, out, `FAIL leaderboard (2s) at step "ranking order" [AwaitingContent]`)
	assert.Contains(t, out, "     --- Expected\n     +++ Rendered\n")
	assert.Contains(t, out, "artifacts: /tmp/a.png")
	assert.Contains(t, out, "1 passed, 1 failed (run "+r.ID.String()+")")
}

func TestRegressions(t *testing.T) {
	prev := NewRun("", "")
	prev.Add(passed(flows.AuthFlow))
	prev.Add(passed(flows.LeaderboardFlow))
	prev.Add(failed(flows.QOTDFlow))

	cur := NewRun("", "")
	cur.Add(passed(flows.AuthFlow))
	cur.Add(failed(flows.LeaderboardFlow))
	cur.Add(failed(flows.QOTDFlow))

	assert.Equal(t, []string{flows.LeaderboardFlow}, cur.Regressions(prev))
	assert.Nil(t, cur.Regressions(nil))
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	h := OpenHistory(dir)

	latest, err := h.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := NewRun("http://localhost:3000", "static")
	first.Started = time.Now().UTC().Add(-time.Hour)
	first.Add(passed(flows.AuthFlow))
	second := NewRun("http://localhost:3000", "chrome")
	second.Add(failed(flows.LeaderboardFlow))
	require.NoError(t, h.Save(second))
	require.NoError(t, h.Save(first))

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "runs", "notes.txt"), []byte("x"), 0600))

	runs, err := h.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.ID, runs[0].ID)
	assert.Equal(t, second.ID, runs[1].ID)
	assert.True(t, second.Started.Equal(runs[1].Started))
	assert.Equal(t, "chrome", runs[1].Engine)
	require.Len(t, runs[1].Flows, 1)
	assert.Equal(t, "ranking order", runs[1].Flows[0].FailedStep)
	assert.Equal(t, 2*time.Second, runs[1].Flows[0].Duration)

	latest, err = h.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = h.Load(uuid.New())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
