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

// Package flows drives the user journeys checked by the harness. A flow is
// an ordered list of steps run against one browser.Session. The first step
// that fails ends the flow; the failure names the flow, the step and the
// state the flow was in.
package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ttbt-io/qotd-e2e/browser"
)

// State is the progress of a flow.
type State int

const (
	Init State = iota
	Navigating
	Authenticating
	AwaitingContent
	Verified
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Navigating:
		return "Navigating"
	case Authenticating:
		return "Authenticating"
	case AwaitingContent:
		return "AwaitingContent"
	case Verified:
		return "Verified"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no step can follow s.
func (s State) Terminal() bool {
	return s == Verified || s == Failed
}

// StepError is the failure of one step of a flow.
type StepError struct {
	Flow  string
	Step  string
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s flow failed at step %q (%s): %v", e.Flow, e.Step, e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepRecord is what happened during one step.
type StepRecord struct {
	Name     string
	State    State
	Duration time.Duration
	Err      error
}

// Result is the outcome of one flow run.
type Result struct {
	Flow  string
	Final State
	// Transitions lists every state the flow went through, Init first.
	Transitions []State
	Steps       []StepRecord
	Started     time.Time
	Duration    time.Duration
	// Err is a *StepError when Final is Failed.
	Err error
	// Artifacts lists the debug files saved when the flow failed.
	Artifacts []string
}

// Passed reports whether the flow reached Verified.
func (r *Result) Passed() bool {
	return r.Final == Verified
}

type step struct {
	name  string
	state State
	run   func(ctx context.Context) error
}

// runner executes steps in order and tracks the state machine.
type runner struct {
	flow string
	s    browser.Session
	cfg  Config
	log  logrus.FieldLogger
	res  *Result
}

func newRunner(flow string, s browser.Session, cfg Config) *runner {
	return &runner{
		flow: flow,
		s:    s,
		cfg:  cfg,
		log:  cfg.logger().WithField("flow", flow),
		res: &Result{
			Flow:        flow,
			Final:       Init,
			Transitions: []State{Init},
			Started:     time.Now(),
		},
	}
}

func (r *runner) enter(s State) {
	if r.res.Final == s {
		return
	}
	r.log.WithFields(logrus.Fields{"from": r.res.Final, "to": s}).Debug("state")
	r.res.Final = s
	r.res.Transitions = append(r.res.Transitions, s)
}

// run executes steps until one fails. It always returns r.res.
func (r *runner) run(ctx context.Context, steps ...step) *Result {
	defer func() { r.res.Duration = time.Since(r.res.Started) }()
	for _, st := range steps {
		r.enter(st.state)
		log := r.log.WithFields(logrus.Fields{"step": st.name, "state": st.state})
		log.Infof("STEP: %s", st.name)
		start := time.Now()
		err := st.run(ctx)
		rec := StepRecord{Name: st.name, State: st.state, Duration: time.Since(start), Err: err}
		r.res.Steps = append(r.res.Steps, rec)
		if err != nil {
			log.WithError(err).Errorf("STEP FAILED: %s", st.name)
			r.res.Err = &StepError{Flow: r.flow, Step: st.name, State: st.state, Err: err}
			r.enter(Failed)
			r.saveArtifacts(ctx, st.name)
			return r.res
		}
	}
	r.enter(Verified)
	r.log.Info("verified")
	return r.res
}

func (r *runner) saveArtifacts(ctx context.Context, stepName string) {
	if r.cfg.ArtifactsDir == "" {
		return
	}
	// The flow context may already be past its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	name := fmt.Sprintf("%s-%s-%d", r.flow, slug(stepName), time.Now().Unix())
	paths, err := browser.SaveArtifacts(ctx, r.s, r.cfg.ArtifactsDir, name)
	if err != nil {
		r.log.WithError(err).Warn("cannot save artifacts")
	}
	for _, p := range paths {
		r.log.Infof("Saved %s", p)
	}
	r.res.Artifacts = paths
}

func slug(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b = append(b, c)
		case c >= 'A' && c <= 'Z':
			b = append(b, c+'a'-'A')
		case len(b) > 0 && b[len(b)-1] != '-':
			b = append(b, '-')
		}
	}
	for len(b) > 0 && b[len(b)-1] == '-' {
		b = b[:len(b)-1]
	}
	return string(b)
}

// Flow is a named journey.
type Flow struct {
	Name string
	Run  func(ctx context.Context, s browser.Session, cfg Config) *Result
}

const (
	AuthFlow        = "authentication"
	LeaderboardFlow = "leaderboard"
	QOTDFlow        = "question-of-the-day"
)

// All returns every flow, in the order they are run by default.
func All() []Flow {
	return []Flow{
		{Name: AuthFlow, Run: Authenticate},
		{Name: LeaderboardFlow, Run: func(ctx context.Context, s browser.Session, cfg Config) *Result {
			_, res := Leaderboard(ctx, s, cfg)
			return res
		}},
		{Name: QOTDFlow, Run: func(ctx context.Context, s browser.Session, cfg Config) *Result {
			_, res := QuestionOfTheDay(ctx, s, cfg)
			return res
		}},
	}
}

// Lookup returns the flow called name.
func Lookup(name string) (Flow, bool) {
	for _, f := range All() {
		if f.Name == name {
			return f, true
		}
	}
	return Flow{}, false
}
