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
	"net/url"

	"github.com/ttbt-io/qotd-e2e/browser"
	"github.com/ttbt-io/qotd-e2e/verify"
	"github.com/ttbt-io/qotd-e2e/wait"
)

// QOTD is the question of the day as rendered on the dashboard.
type QOTD struct {
	Title string
	Link  *url.URL
}

// QuestionOfTheDay signs in, waits for the question title to replace its
// placeholder, and checks the "Solve Now" link.
func QuestionOfTheDay(ctx context.Context, s browser.Session, cfg Config) (QOTD, *Result) {
	cfg = cfg.WithDefaults()
	r := newRunner(QOTDFlow, s, cfg)
	sel := cfg.Selectors

	heading := browser.CSS(sel.QOTDHeading).Containing(sel.QOTDHeadingText)
	var opts []wait.ContentOption
	if len(cfg.ErrorMarkers) > 0 {
		opts = append(opts, wait.FailOn(cfg.ErrorMarkers...))
	}
	if cfg.AcceptTitle != nil {
		opts = append(opts, wait.AcceptOnly(cfg.AcceptTitle))
	}

	var (
		q    QOTD
		link browser.Element
		href string
	)
	steps := append(r.authSteps(Authenticating),
		step{"question heading visible", AwaitingContent, func(ctx context.Context) error {
			_, err := wait.Wait(ctx, r.s, wait.Visible(heading), cfg.waitFor(cfg.ContentTimeout, r.log)...)
			return err
		}},
		step{"question title loaded", AwaitingContent, func(ctx context.Context) (err error) {
			q.Title, err = wait.Wait(ctx, r.s, wait.ContentReady(heading.Next(sel.QOTDTitle), cfg.InvalidMarkers, opts...), cfg.waitFor(cfg.ContentTimeout, r.log)...)
			return err
		}},
		step{"question title not empty", AwaitingContent, func(ctx context.Context) error {
			return verify.NonEmpty("question title", q.Title)
		}},
		step{"solve link clickable", AwaitingContent, func(ctx context.Context) (err error) {
			link, err = wait.Wait(ctx, r.s, wait.Clickable(browser.CSS(sel.SolveLink).Containing(sel.SolveLinkText)), cfg.waitFor(0, r.log)...)
			return err
		}},
		step{"solve link target", AwaitingContent, func(ctx context.Context) error {
			v, ok, err := link.Attribute(ctx, "href")
			if err != nil {
				return err
			}
			if !ok || v == "" {
				return &verify.AssertionFailed{Check: "link", Message: sel.SolveLinkText + " link has no target"}
			}
			href = v
			return nil
		}},
		step{"solve link domain", AwaitingContent, func(ctx context.Context) (err error) {
			q.Link, err = verify.LinkDomain(href, cfg.AllowedDomains)
			return err
		}},
	)
	res := r.run(ctx, steps...)
	return q, res
}
