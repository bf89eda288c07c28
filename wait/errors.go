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

package wait

import (
	"fmt"
	"time"
)

// TimeoutExceeded is returned when a condition never resolved in time.
type TimeoutExceeded struct {
	Condition string
	Elapsed   time.Duration
	Timeout   time.Duration
	// LastState is the last pending state the condition reported.
	LastState string
	Attempts  int
}

func (e *TimeoutExceeded) Error() string {
	msg := fmt.Sprintf("timed out after %v waiting for %s (%d attempts)", e.Elapsed.Round(time.Millisecond), e.Condition, e.Attempts)
	if e.LastState != "" {
		msg += ": last state: " + e.LastState
	}
	return msg
}

type pendingError struct {
	state string
}

func (e *pendingError) Error() string {
	return e.state
}

// Pendingf reports that a condition does not hold yet. The message is kept
// as the last known state if the wait times out.
func Pendingf(format string, args ...any) error {
	return &pendingError{state: fmt.Sprintf(format, args...)}
}
