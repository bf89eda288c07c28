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

// Package static implements browser.Session without a browser: documents are
// fetched over HTTP and parsed with goquery. Scripts never run, so dynamic
// content is only observed when the server renders it. Every document-level
// query reloads the current page (subject to Options.Refresh), which is what
// lets a polling wait observe server-side state changes.
package static

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/ttbt-io/qotd-e2e/browser"
)

// Options configure a static Session.
type Options struct {
	// Client is used for every request. Its Jar is replaced by a fresh
	// cookie jar. Defaults to a client with a 10s timeout.
	Client *http.Client
	// Refresh is the minimum age of the current document before a
	// document-level query reloads it. Zero reloads on every query.
	Refresh time.Duration
	// UserAgent is sent with every request when set.
	UserAgent string
}

// Session is a browser.Session backed by net/http and goquery.
type Session struct {
	mu       sync.Mutex
	client   *http.Client
	opts     Options
	url      *url.URL
	method   string
	doc      *goquery.Document
	loadedAt time.Time
	gen      int
	// typed holds the values entered with SendKeys, keyed by field name.
	typed map[string]string
}

var _ browser.Session = (*Session)(nil)

// New returns a Session with an empty cookie jar and no document.
func New(opts Options) (*Session, error) {
	c := opts.Client
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookiejar.New: %w", err)
	}
	cp := *c
	cp.Jar = jar
	return &Session{
		client: &cp,
		opts:   opts,
		typed:  make(map[string]string),
	}, nil
}

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("navigate %q: %w", rawURL, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url != nil {
		u = s.url.ResolveReference(u)
	}
	if err := s.load(ctx, http.MethodGet, u, nil); err != nil {
		return err
	}
	s.typed = make(map[string]string)
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url == nil {
		return "about:blank", nil
	}
	return s.url.String(), nil
}

func (s *Session) Query(ctx context.Context, css string) ([]browser.Element, error) {
	m, err := compile(css)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, nil
	}
	if s.method == http.MethodGet && time.Since(s.loadedAt) >= s.opts.Refresh {
		if err := s.load(ctx, http.MethodGet, s.url, nil); err != nil {
			return nil, err
		}
	}
	return s.wrap(s.doc.FindMatcher(m)), nil
}

// ClearCookies drops every cookie the session collected.
func (s *Session) ClearCookies(ctx context.Context) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client.Jar = jar
	return nil
}

// HTML returns the serialized current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", nil
	}
	return goquery.OuterHtml(s.doc.Selection)
}

func (s *Session) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// load fetches u and replaces the current document. Non-2xx responses are
// rendered like a browser would; only transport failures are errors.
// s.mu must be held.
func (s *Session) load(ctx context.Context, method string, u *url.URL, form url.Values) error {
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "text/html")
	if s.opts.UserAgent != "" {
		req.Header.Set("User-Agent", s.opts.UserAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", resp.Request.URL, err)
	}
	doc.Url = resp.Request.URL
	s.doc = doc
	s.url = resp.Request.URL
	s.method = resp.Request.Method
	s.loadedAt = time.Now()
	s.gen++
	return nil
}

func (s *Session) wrap(sel *goquery.Selection) []browser.Element {
	out := make([]browser.Element, 0, sel.Length())
	for i := range sel.Nodes {
		out = append(out, &element{s: s, sel: sel.Eq(i), gen: s.gen})
	}
	return out
}

func compile(css string) (cascadia.Selector, error) {
	m, err := cascadia.Compile(css)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", css, err)
	}
	return m, nil
}
