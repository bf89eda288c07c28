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

	"github.com/ttbt-io/qotd-e2e/browser"
	"github.com/ttbt-io/qotd-e2e/wait"
)

// Authenticate signs in through the login form and waits for the dashboard.
func Authenticate(ctx context.Context, s browser.Session, cfg Config) *Result {
	cfg = cfg.WithDefaults()
	r := newRunner(AuthFlow, s, cfg)
	return r.run(ctx, r.authSteps(AwaitingContent)...)
}

// authSteps signs in. The final wait for the dashboard runs in landing.
func (r *runner) authSteps(landing State) []step {
	cfg, sel := r.cfg, r.cfg.Selectors
	var email, password, submit browser.Element

	fill := func(el *browser.Element, text string) func(context.Context) error {
		return func(ctx context.Context) error {
			if err := (*el).Clear(ctx); err != nil {
				return err
			}
			return (*el).SendKeys(ctx, text)
		}
	}

	return []step{
		{"clear cookies", Navigating, func(ctx context.Context) error {
			if cr, ok := r.s.(browser.CookieResetter); ok {
				return cr.ClearCookies(ctx)
			}
			return nil
		}},
		{"open login page", Navigating, func(ctx context.Context) error {
			return r.s.Navigate(ctx, cfg.url(cfg.LoginPath))
		}},
		{"email field visible", Authenticating, func(ctx context.Context) (err error) {
			email, err = wait.Wait(ctx, r.s, wait.Visible(browser.CSS(sel.Email)), cfg.waitFor(0, r.log)...)
			return err
		}},
		{"enter email", Authenticating, fill(&email, cfg.Email)},
		{"password field visible", Authenticating, func(ctx context.Context) (err error) {
			password, err = wait.Wait(ctx, r.s, wait.Visible(browser.CSS(sel.Password)), cfg.waitFor(0, r.log)...)
			return err
		}},
		{"enter password", Authenticating, fill(&password, cfg.Password)},
		{"submit clickable", Authenticating, func(ctx context.Context) (err error) {
			submit, err = wait.Wait(ctx, r.s, wait.Clickable(browser.CSS(sel.Submit)), cfg.waitFor(0, r.log)...)
			return err
		}},
		{"submit", Authenticating, func(ctx context.Context) error {
			return submit.Click(ctx)
		}},
		{"dashboard reached", landing, func(ctx context.Context) error {
			_, err := wait.Wait(ctx, r.s, wait.URLContains(cfg.DashboardPath), cfg.waitFor(cfg.NavigationTimeout, r.log)...)
			return err
		}},
	}
}
