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

// Package wait blocks until a condition over the live document holds.
//
// A Condition is evaluated against the session repeatedly. It either produces
// a value, reports that it is still pending, or fails. Lookups that find
// nothing yet are pending: the document is expected to change while a wait is
// in progress. Each call to Wait starts from scratch.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ttbt-io/qotd-e2e/browser"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// Condition is a named predicate over the current document.
type Condition[T any] struct {
	Description string
	// Check returns the outcome, or an error. Errors made with Pendingf, and
	// browser.ErrNotFound / browser.ErrStale, mean "not yet".
	Check func(ctx context.Context, s browser.Session) (T, error)
}

func (c Condition[T]) String() string {
	return c.Description
}

// Spec bounds a wait.
type Spec struct {
	Timeout  time.Duration
	Interval time.Duration
	Logger   logrus.FieldLogger
}

// Validate checks 0 < Interval < Timeout.
func (s Spec) Validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("wait: timeout must be positive, got %v", s.Timeout)
	}
	if s.Interval <= 0 || s.Interval >= s.Timeout {
		return fmt.Errorf("wait: interval %v must be positive and shorter than timeout %v", s.Interval, s.Timeout)
	}
	return nil
}

// Option adjusts a Spec.
type Option func(*Spec)

// WithTimeout sets the deadline of the wait.
func WithTimeout(d time.Duration) Option {
	return func(s *Spec) { s.Timeout = d }
}

// WithInterval sets the delay between two evaluations.
func WithInterval(d time.Duration) Option {
	return func(s *Spec) { s.Interval = d }
}

// WithLogger logs every pending evaluation at debug level.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Spec) { s.Logger = l }
}

// WithSpec replaces the whole spec. Later options still apply.
func WithSpec(spec Spec) Option {
	return func(s *Spec) { *s = spec }
}

// Wait evaluates cond until it yields a value, fails, or the timeout
// elapses. A successful first evaluation returns without delay.
func Wait[T any](ctx context.Context, s browser.Session, cond Condition[T], opts ...Option) (T, error) {
	var zero T
	spec := Spec{Timeout: DefaultTimeout, Interval: DefaultInterval}
	for _, o := range opts {
		o(&spec)
	}
	if err := spec.Validate(); err != nil {
		return zero, err
	}

	start := time.Now()
	deadline := start.Add(spec.Timeout)
	probeCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var (
		lastState string
		attempts  int
	)
	for {
		attempts++
		v, err := cond.Check(probeCtx, s)
		if err == nil {
			return v, nil
		}
		switch {
		case isPending(err):
			lastState = err.Error()
		case ctx.Err() != nil:
			return zero, fmt.Errorf("%s: %w", cond.Description, ctx.Err())
		case probeCtx.Err() != nil:
			// The probe itself ran into the deadline.
			lastState = err.Error()
		default:
			return zero, fmt.Errorf("%s: %w", cond.Description, err)
		}
		if spec.Logger != nil {
			spec.Logger.WithFields(logrus.Fields{
				"condition": cond.Description,
				"attempt":   attempts,
				"elapsed":   time.Since(start).Round(time.Millisecond),
			}).Debugf("pending: %s", lastState)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, &TimeoutExceeded{
				Condition: cond.Description,
				Elapsed:   time.Since(start),
				Timeout:   spec.Timeout,
				LastState: lastState,
				Attempts:  attempts,
			}
		}
		timer := time.NewTimer(min(spec.Interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%s: %w", cond.Description, ctx.Err())
		case <-timer.C:
		}
	}
}

func isPending(err error) bool {
	var p *pendingError
	return errors.As(err, &p) || browser.IsTransient(err)
}
