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

package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/ttbt-io/qotd-e2e/browser"
	"github.com/ttbt-io/qotd-e2e/verify"
	"github.com/ttbt-io/qotd-e2e/wait"
)

// Leaderboard signs in, reads the leaderboard table and checks that it is
// ranked by score.
func Leaderboard(ctx context.Context, s browser.Session, cfg Config) ([]verify.Row, *Result) {
	cfg = cfg.WithDefaults()
	r := newRunner(LeaderboardFlow, s, cfg)
	sel := cfg.Selectors

	header := browser.CSS(sel.HeaderRow).Has(sel.HeaderCell).Containing(sel.UserColumn, sel.PointsColumn)
	rowsLoc := header.Closest(sel.Table).Find(sel.Rows)

	var (
		cols columns
		rows []verify.Row
	)
	steps := append(r.authSteps(Authenticating),
		step{"leaderboard header visible", AwaitingContent, func(ctx context.Context) (err error) {
			cols, err = wait.Wait(ctx, r.s, headerColumns(header, sel), cfg.waitFor(cfg.ContentTimeout, r.log)...)
			return err
		}},
		step{"leaderboard rows", AwaitingContent, func(ctx context.Context) (err error) {
			rows, err = wait.Wait(ctx, r.s, tableRows(rowsLoc, sel.Cell, cols), cfg.waitFor(0, r.log)...)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return &verify.AssertionFailed{Check: "leaderboard", Message: "table has no rows", Observed: 0}
			}
			r.log.WithField("rows", len(rows)).Debugf("leaderboard: %v", rows)
			return nil
		}},
		step{"ranking order", AwaitingContent, func(ctx context.Context) error {
			return verify.Ranking(rows)
		}},
	)
	res := r.run(ctx, steps...)
	return rows, res
}

// columns holds the positions of the label and score cells in a row.
type columns struct {
	user, points int
}

// headerColumns holds once the header row is visible, and yields the
// positions of its user and points columns.
func headerColumns(header browser.Locator, sel Selectors) wait.Condition[columns] {
	visible := wait.Visible(header)
	return wait.Condition[columns]{
		Description: visible.Description,
		Check: func(ctx context.Context, s browser.Session) (columns, error) {
			row, err := visible.Check(ctx, s)
			if err != nil {
				return columns{}, err
			}
			cells, err := row.Query(ctx, sel.HeaderCell)
			if err != nil {
				return columns{}, err
			}
			cols := columns{user: -1, points: -1}
			var labels []string
			for i, c := range cells {
				txt, err := c.Text(ctx)
				if err != nil {
					return columns{}, err
				}
				txt = strings.TrimSpace(txt)
				labels = append(labels, txt)
				if cols.user < 0 && strings.Contains(txt, sel.UserColumn) {
					cols.user = i
				}
				if cols.points < 0 && strings.Contains(txt, sel.PointsColumn) {
					cols.points = i
				}
			}
			if cols.user < 0 || cols.points < 0 {
				return columns{}, wait.Pendingf("header cells %q lack %q or %q", labels, sel.UserColumn, sel.PointsColumn)
			}
			return cols, nil
		},
	}
}

// tableRows holds once rowsLoc matches at least one row, and extracts the
// label and score of every row. A score that is not an integer fails the
// wait at once.
func tableRows(rowsLoc browser.Locator, cell string, cols columns) wait.Condition[[]verify.Row] {
	present := wait.PresentAll(rowsLoc)
	return wait.Condition[[]verify.Row]{
		Description: present.Description,
		Check: func(ctx context.Context, s browser.Session) ([]verify.Row, error) {
			els, err := present.Check(ctx, s)
			if err != nil {
				return nil, err
			}
			rows := make([]verify.Row, 0, len(els))
			need := max(cols.user, cols.points) + 1
			for i, el := range els {
				cells, err := el.Query(ctx, cell)
				if err != nil {
					return nil, err
				}
				if len(cells) < need {
					return nil, &verify.StaleExtraction{
						What: fmt.Sprintf("row %d", i),
						Raw:  fmt.Sprintf("%d cells", len(cells)),
						Err:  fmt.Errorf("want at least %d cells", need),
					}
				}
				label, err := cells[cols.user].Text(ctx)
				if err != nil {
					return nil, err
				}
				score, err := cells[cols.points].Text(ctx)
				if err != nil {
					return nil, err
				}
				row, err := verify.ParseRow(label, score)
				if err != nil {
					return nil, err
				}
				rows = append(rows, row)
			}
			return rows, nil
		},
	}
}
