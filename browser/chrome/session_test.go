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

package chrome

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/qotd-e2e/browser"
)

var withChromeDP = flag.String("with-chromedp", "", "The url of the remote debugging port")

func TestClassify(t *testing.T) {
	stale := classify(errors.New("Could not find object with given id (-32000)"))
	assert.ErrorIs(t, stale, browser.ErrStale)
	assert.True(t, browser.IsTransient(stale))

	other := errors.New("SyntaxError: unexpected token")
	assert.Same(t, other, classify(other))
}

const page = `<!DOCTYPE html>
<html><body>
  <table id="noise"><tr><th>Name</th><th>Points</th></tr><tr><td>x</td><td>1</td></tr></table>
  <table>
    <thead><tr><th>User</th><th>Points</th></tr></thead>
    <tbody><tr><td>bob</td><td>80</td></tr><tr><td>alice</td><td>50</td></tr></tbody>
  </table>
  <h2>Question of the Day</h2>
  <p id="q">Loading...</p>
  <a href="https://codeforces.com/problemset/problem/1/A">Solve Now</a>
  <input id="email" name="email">
  <div id="cover-target" style="position:relative;width:100px;height:40px">
    <button id="covered">Hidden behind</button>
    <div style="position:absolute;top:0;left:0;width:100px;height:40px;background:#fff"></div>
  </div>
  <script>setTimeout(() => { document.getElementById('q').textContent = 'Two Sum'; }, 300);</script>
</body></html>`

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	if *withChromeDP == "" {
		t.Skip("--with-chromedp not set")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	t.Cleanup(srv.Close)

	s, err := New(t.Context(), Options{RemoteURL: *withChromeDP, NoAnimations: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, srv.URL
}

func TestSession(t *testing.T) {
	s, url := newTestSession(t)
	ctx, cancel := context.WithTimeout(t.Context(), 30*time.Second)
	defer cancel()

	require.NoError(t, s.Navigate(ctx, url))

	rows, err := browser.CSS("thead tr").Containing("User", "Points").Closest("table").Find("tbody tr").All(ctx, s)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	cells, err := rows[0].Query(ctx, "td")
	require.NoError(t, err)
	require.Len(t, cells, 2)
	txt, err := cells[1].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "80", txt)

	link, err := browser.CSS("h2").Containing("Question of the Day").Next("a").First(ctx, s)
	require.NoError(t, err)
	href, ok, err := link.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://codeforces.com/problemset/problem/1/A", href)

	email, err := browser.CSS("#email").First(ctx, s)
	require.NoError(t, err)
	require.NoError(t, email.SendKeys(ctx, "qa@example.com"))
	v, _, err := email.Attribute(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "qa@example.com", v)

	covered, err := browser.CSS("#covered").First(ctx, s)
	require.NoError(t, err)
	vis, err := covered.Visible(ctx)
	require.NoError(t, err)
	assert.True(t, vis)
	obscured, err := covered.Obscured(ctx)
	require.NoError(t, err)
	assert.True(t, obscured)

	require.NoError(t, s.Navigate(ctx, url))
	_, err = email.Text(ctx)
	assert.True(t, browser.IsTransient(err), "handle from the previous document: %v", err)
}
