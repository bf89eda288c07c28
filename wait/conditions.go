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
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ttbt-io/qotd-e2e/browser"
	"github.com/ttbt-io/qotd-e2e/verify"
)

// Present holds once loc matches an element, visible or not.
func Present(loc browser.Locator) Condition[browser.Element] {
	return Condition[browser.Element]{
		Description: "presence of " + loc.String(),
		Check: func(ctx context.Context, s browser.Session) (browser.Element, error) {
			return loc.First(ctx, s)
		},
	}
}

// PresentAll holds once loc matches at least one element and returns all of
// them.
func PresentAll(loc browser.Locator) Condition[[]browser.Element] {
	return Condition[[]browser.Element]{
		Description: "presence of all " + loc.String(),
		Check: func(ctx context.Context, s browser.Session) ([]browser.Element, error) {
			els, err := loc.All(ctx, s)
			if err != nil {
				return nil, err
			}
			if len(els) == 0 {
				return nil, Pendingf("no element matches %s", loc)
			}
			return els, nil
		},
	}
}

// Visible holds once one of the elements matched by loc is rendered with a
// non-zero size, and returns the first such element.
func Visible(loc browser.Locator) Condition[browser.Element] {
	return Condition[browser.Element]{
		Description: "visibility of " + loc.String(),
		Check: func(ctx context.Context, s browser.Session) (browser.Element, error) {
			return firstMatching(ctx, s, loc, "visible", visible)
		},
	}
}

// Clickable holds once one of the elements matched by loc is visible, enabled
// and not covered by another element.
func Clickable(loc browser.Locator) Condition[browser.Element] {
	return Condition[browser.Element]{
		Description: "clickability of " + loc.String(),
		Check: func(ctx context.Context, s browser.Session) (browser.Element, error) {
			return firstMatching(ctx, s, loc, "clickable", func(ctx context.Context, e browser.Element) (bool, error) {
				if ok, err := visible(ctx, e); !ok || err != nil {
					return false, err
				}
				if ok, err := e.Enabled(ctx); !ok || err != nil {
					return false, err
				}
				covered, err := e.Obscured(ctx)
				return !covered, err
			})
		},
	}
}

func visible(ctx context.Context, e browser.Element) (bool, error) {
	return e.Visible(ctx)
}

func firstMatching(ctx context.Context, s browser.Session, loc browser.Locator, what string, ok func(context.Context, browser.Element) (bool, error)) (browser.Element, error) {
	els, err := loc.All(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, Pendingf("no element matches %s", loc)
	}
	for _, e := range els {
		good, err := ok(ctx, e)
		if err != nil {
			if browser.IsTransient(err) {
				continue
			}
			return nil, err
		}
		if good {
			return e, nil
		}
	}
	return nil, Pendingf("%d element(s) match %s, none %s", len(els), loc, what)
}

// URLContains holds once the current URL contains sub. It returns the URL.
func URLContains(sub string) Condition[string] {
	return Condition[string]{
		Description: fmt.Sprintf("URL containing %q", sub),
		Check: func(ctx context.Context, s browser.Session) (string, error) {
			u, err := s.URL(ctx)
			if err != nil {
				return "", err
			}
			if !strings.Contains(u, sub) {
				return "", Pendingf("URL is %s", u)
			}
			return u, nil
		},
	}
}

type contentRules struct {
	failOn []string
	accept *regexp.Regexp
}

// ContentOption refines ContentReady.
type ContentOption func(*contentRules)

// FailOn makes text containing any of markers a terminal failure instead of
// a pending state. Use it for error placeholders that will never turn into
// real content.
func FailOn(markers ...string) ContentOption {
	return func(r *contentRules) { r.failOn = append(r.failOn, markers...) }
}

// AcceptOnly requires the final text to match re. Text that does not match
// yet is pending.
func AcceptOnly(re *regexp.Regexp) ContentOption {
	return func(r *contentRules) { r.accept = re }
}

// ContentReady holds once the trimmed text of loc's first element is
// non-empty and contains none of invalidMarkers. It re-reads the text on
// every evaluation. Empty text is never ready.
func ContentReady(loc browser.Locator, invalidMarkers []string, opts ...ContentOption) Condition[string] {
	var rules contentRules
	for _, o := range opts {
		o(&rules)
	}
	return Condition[string]{
		Description: "content of " + loc.String(),
		Check: func(ctx context.Context, s browser.Session) (string, error) {
			el, err := loc.First(ctx, s)
			if err != nil {
				return "", err
			}
			txt, err := el.Text(ctx)
			if err != nil {
				return "", err
			}
			txt = strings.TrimSpace(txt)
			if txt == "" {
				return "", Pendingf("%s is empty", loc)
			}
			for _, m := range rules.failOn {
				if m != "" && strings.Contains(txt, m) {
					return "", &verify.AssertionFailed{
						Check:    "content",
						Message:  fmt.Sprintf("%s shows error state %q", loc, m),
						Observed: txt,
					}
				}
			}
			for _, m := range invalidMarkers {
				if m != "" && strings.Contains(txt, m) {
					return "", Pendingf("%s shows placeholder %q", loc, txt)
				}
			}
			if rules.accept != nil && !rules.accept.MatchString(txt) {
				return "", Pendingf("%s text %q does not match %s", loc, txt, rules.accept)
			}
			return txt, nil
		},
	}
}
