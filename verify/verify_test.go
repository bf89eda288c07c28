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

package verify

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRanking(t *testing.T) {
	tests := []struct {
		name string
		rows []Row
		inv  *Inversion
	}{
		{name: "empty"},
		{name: "single", rows: []Row{{"alice", 50}}},
		{name: "descending", rows: []Row{{"bob", 80}, {"alice", 50}}},
		{name: "ties", rows: []Row{{"bob", 80}, {"carol", 80}, {"alice", 50}}},
		{name: "inverted", rows: []Row{{"alice", 50}, {"bob", 80}}, inv: &Inversion{0, 1}},
		{name: "first inversion wins", rows: []Row{{"a", 9}, {"b", 3}, {"c", 7}, {"d", 1}, {"e", 5}}, inv: &Inversion{1, 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Ranking(tc.rows)
			if tc.inv == nil {
				assert.NoError(t, err)
				return
			}
			var af *AssertionFailed
			require.ErrorAs(t, err, &af)
			assert.Equal(t, "ranking", af.Check)
			inv, ok := FirstInversion(err)
			require.True(t, ok)
			assert.Equal(t, *tc.inv, inv)
			inv, ok = FirstInversion(fmt.Errorf("leaderboard: %w", err))
			require.True(t, ok)
			assert.Equal(t, *tc.inv, inv)
			assert.Contains(t, af.Detail, "--- Expected")
			assert.Contains(t, af.Detail, "+++ Rendered")
		})
	}
}

func TestParseRow(t *testing.T) {
	r, err := ParseRow(" bob ", " 80\n")
	require.NoError(t, err)
	assert.Equal(t, Row{Label: "bob", Score: 80}, r)

	_, err = ParseRow("bob", "eighty")
	var se *StaleExtraction
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "eighty", se.Raw)
	var ne *strconv.NumError
	assert.True(t, errors.As(err, &ne))
}

func TestNonEmpty(t *testing.T) {
	assert.NoError(t, NonEmpty("question", "Two Sum"))
	err := NonEmpty("question", "  \n\t")
	var af *AssertionFailed
	require.ErrorAs(t, err, &af)
	assert.Contains(t, af.Error(), "question is empty")
}

func TestLinkDomain(t *testing.T) {
	allow := []string{"codeforces.com"}
	tests := []struct {
		link string
		ok   bool
	}{
		{"https://codeforces.com/problemset/problem/1/A", true},
		{"http://www.codeforces.com/contest/1", true},
		{"https://CodeForces.com./x", true},
		{"https://leetcode.com/problems/two-sum", false},
		{"https://codeforces.com.evil.example/x", false},
		{"https://notcodeforces.com/x", false},
		{"javascript:alert(1)", false},
		{"/relative/path", false},
	}
	for _, tc := range tests {
		t.Run(tc.link, func(t *testing.T) {
			u, err := LinkDomain(tc.link, allow)
			if tc.ok {
				require.NoError(t, err)
				assert.NotNil(t, u)
				return
			}
			var af *AssertionFailed
			assert.ErrorAs(t, err, &af)
		})
	}
}

func TestLinkDomainMalformed(t *testing.T) {
	_, err := LinkDomain("http://[::1", []string{"codeforces.com"})
	var se *StaleExtraction
	assert.ErrorAs(t, err, &se)
}
