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

package static_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/qotd-e2e/browser"
	"github.com/ttbt-io/qotd-e2e/browser/static"
)

const loginPage = `<!DOCTYPE html>
<html><head><title>Sign in</title></head>
<body>
  <form method="post" action="/login">
    <input name="email" type="email">
    <input name="password" type="password" value="">
    <input type="hidden" name="csrf" value="tok">
    <button type="submit" name="go" value="1">Sign in</button>
  </form>
</body></html>`

const dashboardPage = `<!DOCTYPE html>
<html><head><title>Dashboard</title></head><body>
  <div id="banner" style="display: none">Welcome</div>
  <section>
    <h2>Question of the <b>Day</b></h2>
    <div><p>%s</p></div>
    <a href="/solve?id=1">Solve Now</a>
  </section>
  <fieldset disabled><button type="button">Later</button></fieldset>
  <p class="hidden">secret</p>
</body></html>`

func newServer(t *testing.T, body func() string) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var posted atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage)
	})
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		posted.Store(r.PostForm)
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	mux.HandleFunc("GET /dashboard", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err != nil || c.Value != "ok" {
			http.Redirect(w, r, "/auth", http.StatusSeeOther)
			return
		}
		fmt.Fprintf(w, dashboardPage, body())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &posted
}

func newSession(t *testing.T) *static.Session {
	t.Helper()
	s, err := static.New(static.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func first(t *testing.T, s browser.Session, css string) browser.Element {
	t.Helper()
	els, err := s.Query(t.Context(), css)
	require.NoError(t, err)
	require.NotEmpty(t, els, css)
	return els[0]
}

func TestFormSubmit(t *testing.T) {
	srv, posted := newServer(t, func() string { return "Two Sum" })
	s := newSession(t)
	ctx := t.Context()

	require.NoError(t, s.Navigate(ctx, srv.URL+"/auth"))
	require.NoError(t, first(t, s, "input[name='email']").SendKeys(ctx, "qa@example.com"))
	pw := first(t, s, "input[name='password']")
	require.NoError(t, pw.SendKeys(ctx, "wrong"))
	require.NoError(t, pw.Clear(ctx))
	require.NoError(t, pw.SendKeys(ctx, "hunter2"))

	v, ok, err := first(t, s, "input[name='email']").Attribute(ctx, "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "qa@example.com", v)

	require.NoError(t, first(t, s, "button[type='submit']").Click(ctx))

	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/dashboard", u)

	form := posted.Load().(url.Values)
	assert.Equal(t, []string{"qa@example.com"}, form["email"])
	assert.Equal(t, []string{"hunter2"}, form["password"])
	assert.Equal(t, []string{"tok"}, form["csrf"])
	assert.Equal(t, []string{"1"}, form["go"])
}

func TestDashboardWithoutCookieRedirects(t *testing.T) {
	srv, _ := newServer(t, func() string { return "Two Sum" })
	s := newSession(t)
	require.NoError(t, s.Navigate(t.Context(), srv.URL+"/dashboard"))
	u, err := s.URL(t.Context())
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth", u)
}

func login(t *testing.T, s *static.Session, base string) {
	t.Helper()
	ctx := t.Context()
	require.NoError(t, s.Navigate(ctx, base+"/auth"))
	require.NoError(t, first(t, s, "input[name='email']").SendKeys(ctx, "qa@example.com"))
	require.NoError(t, first(t, s, "button").Click(ctx))
}

func TestTextVisibilityAndLinks(t *testing.T) {
	srv, _ := newServer(t, func() string { return "  Two\n   Sum " })
	s := newSession(t)
	ctx := t.Context()
	login(t, s, srv.URL)

	h2 := first(t, s, "h2")
	txt, err := h2.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Question of the Day", txt)

	p, err := h2.Following(ctx, "p")
	require.NoError(t, err)
	txt, err = p.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", txt)

	link, err := p.Following(ctx, "a")
	require.NoError(t, err)
	href, ok, err := link.Attribute(ctx, "href")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, srv.URL+"/solve?id=1", href)

	for css, want := range map[string]bool{
		"#banner":   false,
		"p.hidden":  false,
		"title":     false,
		"section a": true,
	} {
		vis, err := first(t, s, css).Visible(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, vis, css)
	}

	enabled, err := first(t, s, "fieldset button").Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestFollowingSkipsDescendants(t *testing.T) {
	srv, _ := newServer(t, func() string { return "Two Sum" })
	s := newSession(t)
	ctx := t.Context()
	login(t, s, srv.URL)

	section := first(t, s, "section")
	_, err := section.Following(ctx, "a")
	assert.ErrorIs(t, err, browser.ErrNotFound)

	table, err := first(t, s, "b").Closest(ctx, "section")
	require.NoError(t, err)
	els, err := table.Query(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, els, 1)
}

func TestReloadMakesElementsStale(t *testing.T) {
	var n atomic.Int32
	srv, _ := newServer(t, func() string {
		if n.Add(1) < 3 {
			return "Loading..."
		}
		return "Two Sum"
	})
	s := newSession(t)
	ctx := t.Context()
	login(t, s, srv.URL)

	old := first(t, s, "h2")
	fresh := first(t, s, "h2")
	_, err := old.Text(ctx)
	assert.ErrorIs(t, err, browser.ErrStale)
	assert.True(t, browser.IsTransient(err))
	_, err = fresh.Text(ctx)
	assert.NoError(t, err)

	p := first(t, s, "section p")
	txt, err := p.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Two Sum", txt)
}

func TestRefreshInterval(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<p>x</p>`)
	}))
	t.Cleanup(srv.Close)

	s, err := static.New(static.Options{Refresh: time.Hour})
	require.NoError(t, err)
	require.NoError(t, s.Navigate(t.Context(), srv.URL))
	for range 3 {
		first(t, s, "p")
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestInvalidSelector(t *testing.T) {
	s := newSession(t)
	_, err := s.Query(t.Context(), "p[")
	assert.Error(t, err)
}

func TestClearCookies(t *testing.T) {
	srv, _ := newServer(t, func() string { return "Two Sum" })
	s := newSession(t)
	ctx := t.Context()
	login(t, s, srv.URL)
	require.NoError(t, s.ClearCookies(ctx))
	require.NoError(t, s.Navigate(ctx, srv.URL+"/dashboard"))
	u, err := s.URL(ctx)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth", u)

	html, err := s.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, `name="password"`)
}
