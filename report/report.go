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

// Package report collects the results of the flows of one run, prints them,
// and keeps a history of past runs.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/ttbt-io/qotd-e2e/flows"
)

// FlowResult is the outcome of one flow, reduced to plain values.
type FlowResult struct {
	Flow        string        `json:"flow"`
	Passed      bool          `json:"passed"`
	Final       string        `json:"final"`
	FailedStep  string        `json:"failedStep,omitempty"`
	FailedState string        `json:"failedState,omitempty"`
	Message     string        `json:"message,omitempty"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
	Artifacts   []string      `json:"artifacts,omitempty"`
}

// FromResult converts the result of a flow.
func FromResult(res *flows.Result) FlowResult {
	fr := FlowResult{
		Flow:      res.Flow,
		Passed:    res.Passed(),
		Final:     res.Final.String(),
		Steps:     len(res.Steps),
		Duration:  res.Duration,
		Artifacts: res.Artifacts,
	}
	if res.Err != nil {
		fr.Message = res.Err.Error()
		var se *flows.StepError
		if errors.As(res.Err, &se) {
			fr.FailedStep = se.Step
			fr.FailedState = se.State.String()
			fr.Message = se.Err.Error()
		}
	}
	return fr
}

// Run is one invocation of the harness.
type Run struct {
	ID      uuid.UUID    `json:"id"`
	Started time.Time    `json:"started"`
	BaseURL string       `json:"baseUrl"`
	Engine  string       `json:"engine"`
	Flows   []FlowResult `json:"flows"`
}

// NewRun starts a run against baseURL.
func NewRun(baseURL, engine string) *Run {
	return &Run{
		ID:      uuid.New(),
		Started: time.Now().UTC(),
		BaseURL: baseURL,
		Engine:  engine,
	}
}

// Add records the result of a flow.
func (r *Run) Add(res *flows.Result) {
	r.Flows = append(r.Flows, FromResult(res))
}

// Passed reports whether at least one flow ran and every flow passed.
func (r *Run) Passed() bool {
	if len(r.Flows) == 0 {
		return false
	}
	for _, f := range r.Flows {
		if !f.Passed {
			return false
		}
	}
	return true
}

// Failed returns the names of the flows that did not pass.
func (r *Run) Failed() []string {
	var out []string
	for _, f := range r.Flows {
		if !f.Passed {
			out = append(out, f.Flow)
		}
	}
	return out
}

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

// WriteSummary prints one line per flow and a closing tally.
func (r *Run) WriteSummary(w io.Writer) error {
	var passed, failed int
	for _, f := range r.Flows {
		if f.Passed {
			passed++
			passColor.Fprint(w, "PASS")
			fmt.Fprintf(w, " %s (%s)\n", f.Flow, f.Duration.Round(time.Millisecond))
			continue
		}
		failed++
		failColor.Fprint(w, "FAIL")
		fmt.Fprintf(w, " %s (%s) at step %q [%s]\n", f.Flow, f.Duration.Round(time.Millisecond), f.FailedStep, f.FailedState)
		for _, line := range strings.Split(f.Message, "\n") {
			fmt.Fprintf(w, "     %s\n", line)
		}
		if len(f.Artifacts) > 0 {
			dimColor.Fprintf(w, "     artifacts: %s\n", strings.Join(f.Artifacts, ", "))
		}
	}
	_, err := fmt.Fprintf(w, "%d passed, %d failed (run %s)\n", passed, failed, r.ID)
	return err
}

// Regressions returns the flows that passed in prev and fail in r.
func (r *Run) Regressions(prev *Run) []string {
	if prev == nil {
		return nil
	}
	before := make(map[string]bool, len(prev.Flows))
	for _, f := range prev.Flows {
		before[f.Flow] = f.Passed
	}
	var out []string
	for _, f := range r.Flows {
		if !f.Passed && before[f.Flow] {
			out = append(out, f.Flow)
		}
	}
	return out
}
