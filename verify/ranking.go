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
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Row is one leaderboard line, in rendered order.
type Row struct {
	Label string
	Score int
}

func (r Row) String() string {
	return fmt.Sprintf("%s %d", r.Label, r.Score)
}

// ParseRow builds a Row from the raw text of its two cells.
func ParseRow(label, score string) (Row, error) {
	raw := strings.TrimSpace(score)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Row{}, &StaleExtraction{What: "score of " + strings.TrimSpace(label), Raw: raw, Err: err}
	}
	return Row{Label: strings.TrimSpace(label), Score: n}, nil
}

// Inversion is a pair of adjacent rows ranked in the wrong order.
type Inversion struct {
	I, J int
}

// Ranking checks that scores are non-increasing in rendered order. The
// returned error reports the first inverted pair.
func Ranking(rows []Row) error {
	for i := 1; i < len(rows); i++ {
		if rows[i].Score > rows[i-1].Score {
			return &AssertionFailed{
				Check:    "ranking",
				Message:  fmt.Sprintf("rows %d and %d are out of order (%s before %s)", i-1, i, rows[i-1], rows[i]),
				Observed: Inversion{I: i - 1, J: i},
				Detail:   rankingDiff(rows),
			}
		}
	}
	return nil
}

// FirstInversion returns the first inverted pair reported by err or any
// error it wraps.
func FirstInversion(err error) (Inversion, bool) {
	var af *AssertionFailed
	if !errors.As(err, &af) {
		return Inversion{}, false
	}
	inv, ok := af.Observed.(Inversion)
	return inv, ok
}

func rankingDiff(rows []Row) string {
	want := slices.Clone(rows)
	slices.SortStableFunc(want, func(a, b Row) int { return cmp.Compare(b.Score, a.Score) })
	lines := func(rs []Row) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.String() + "\n"
		}
		return out
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        lines(want),
		B:        lines(rows),
		FromFile: "Expected",
		ToFile:   "Rendered",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return diff
}
