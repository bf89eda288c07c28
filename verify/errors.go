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

// Package verify holds the checks run on data extracted from the document.
// Every function is pure: it never touches the session.
package verify

import (
	"fmt"
	"strings"
)

// AssertionFailed reports an invariant that does not hold on extracted data.
type AssertionFailed struct {
	Check    string
	Message  string
	Observed any
	Expected any
	// Detail is an optional multi-line explanation, e.g. a diff.
	Detail string
}

func (e *AssertionFailed) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s check failed: %s", e.Check, e.Message)
	if e.Observed != nil {
		fmt.Fprintf(&b, " (observed %v", e.Observed)
		if e.Expected != nil {
			fmt.Fprintf(&b, ", expected %v", e.Expected)
		}
		b.WriteByte(')')
	}
	if e.Detail != "" {
		b.WriteString("\n")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// StaleExtraction reports text that does not have the expected shape. The
// document had already settled when it was read, so it is never retried.
type StaleExtraction struct {
	What string
	Raw  string
	Err  error
}

func (e *StaleExtraction) Error() string {
	return fmt.Sprintf("cannot extract %s from %q: %v", e.What, e.Raw, e.Err)
}

func (e *StaleExtraction) Unwrap() error {
	return e.Err
}
