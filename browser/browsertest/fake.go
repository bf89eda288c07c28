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

// Package browsertest provides a scripted in-memory browser.Session for unit
// tests. Nodes answer to an explicit list of selectors instead of a CSS
// engine, which keeps test documents short and their matching obvious.
package browsertest

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/ttbt-io/qotd-e2e/browser"
)

// Node is one element of a fake document.
type Node struct {
	// Selectors lists the CSS selectors this node matches.
	Selectors []string
	Text      string
	// TextFunc, when set, overrides Text and is called on every read.
	TextFunc func() string
	Attrs    map[string]string
	Hidden   bool
	Disabled bool
	Covered  bool
	// Err, when set, is returned by every operation on the node.
	Err      error
	OnClick  func()
	Children []*Node

	mu     sync.Mutex
	value  string
	parent *Node
}

// El is a shorthand constructor.
func El(selectors string, text string, children ...*Node) *Node {
	return &Node{Selectors: strings.Split(selectors, ","), Text: text, Children: children}
}

// Value returns the text typed into the node.
func (n *Node) Value() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.value
}

func (n *Node) link(parent *Node) {
	n.parent = parent
	for _, c := range n.Children {
		c.link(n)
	}
}

func (n *Node) matches(css string) bool {
	return slices.Contains(n.Selectors, css)
}

func (n *Node) text() string {
	var parts []string
	if n.TextFunc != nil {
		parts = append(parts, n.TextFunc())
	} else if n.Text != "" {
		parts = append(parts, n.Text)
	}
	for _, c := range n.Children {
		if t := c.text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// walk visits the subtree below n in document order, n excluded.
func (n *Node) walk(fn func(*Node) bool) bool {
	for _, c := range n.Children {
		if !fn(c) || !c.walk(fn) {
			return false
		}
	}
	return true
}

// Session is a fake browser.Session over a tree of Nodes.
type Session struct {
	mu          sync.Mutex
	root        *Node
	url         string
	navigations []string
	closed      bool

	// Pages maps a navigated URL to the document it loads. Navigating to an
	// unknown URL loads an empty document.
	Pages map[string]*Node
	// QueryErr, when set, is returned by every Session.Query call.
	QueryErr error
}

// NewSession returns a session showing root at url.
func NewSession(url string, root *Node) *Session {
	s := &Session{Pages: map[string]*Node{}}
	s.load(url, root)
	return s
}

func (s *Session) load(url string, root *Node) {
	if root == nil {
		root = &Node{}
	}
	root.link(nil)
	s.mu.Lock()
	s.url = url
	s.root = root
	s.mu.Unlock()
}

// SetURL changes the current URL without touching the document, the way a
// client-side router does.
func (s *Session) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
}

// Navigations returns every URL passed to Navigate.
func (s *Session) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.navigations)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.navigations = append(s.navigations, url)
	page := s.Pages[url]
	s.mu.Unlock()
	s.load(url, page)
	return ctx.Err()
}

func (s *Session) URL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *Session) Query(ctx context.Context, css string) ([]browser.Element, error) {
	s.mu.Lock()
	root, qerr := s.root, s.QueryErr
	s.mu.Unlock()
	if qerr != nil {
		return nil, qerr
	}
	return (&element{s: s, n: root}).Query(ctx, css)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type element struct {
	s *Session
	n *Node
}

func (e *element) Text(ctx context.Context) (string, error) {
	if e.n.Err != nil {
		return "", e.n.Err
	}
	return e.n.text(), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if e.n.Err != nil {
		return "", false, e.n.Err
	}
	if name == "value" {
		return e.n.Value(), true, nil
	}
	v, ok := e.n.Attrs[name]
	return v, ok, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	if e.n.Err != nil {
		return false, e.n.Err
	}
	for n := e.n; n != nil; n = n.parent {
		if n.Hidden {
			return false, nil
		}
	}
	return true, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	return !e.n.Disabled, e.n.Err
}

func (e *element) Obscured(ctx context.Context) (bool, error) {
	return e.n.Covered, e.n.Err
}

func (e *element) Click(ctx context.Context) error {
	if e.n.Err != nil {
		return e.n.Err
	}
	if e.n.OnClick != nil {
		e.n.OnClick()
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if e.n.Err != nil {
		return e.n.Err
	}
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	e.n.value += text
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	if e.n.Err != nil {
		return e.n.Err
	}
	e.n.mu.Lock()
	defer e.n.mu.Unlock()
	e.n.value = ""
	return nil
}

func (e *element) Query(ctx context.Context, css string) ([]browser.Element, error) {
	if e.n.Err != nil {
		return nil, e.n.Err
	}
	var out []browser.Element
	e.n.walk(func(n *Node) bool {
		if n.matches(css) {
			out = append(out, &element{s: e.s, n: n})
		}
		return true
	})
	return out, nil
}

func (e *element) Closest(ctx context.Context, css string) (browser.Element, error) {
	if e.n.Err != nil {
		return nil, e.n.Err
	}
	for n := e.n; n != nil; n = n.parent {
		if n.matches(css) {
			return &element{s: e.s, n: n}, nil
		}
	}
	return nil, browser.ErrNotFound
}

func (e *element) Following(ctx context.Context, css string) (browser.Element, error) {
	if e.n.Err != nil {
		return nil, e.n.Err
	}
	e.s.mu.Lock()
	root := e.s.root
	e.s.mu.Unlock()

	var (
		found  *Node
		passed bool
	)
	inside := map[*Node]bool{}
	e.n.walk(func(n *Node) bool { inside[n] = true; return true })
	root.walk(func(n *Node) bool {
		if n == e.n {
			passed = true
			return true
		}
		if passed && !inside[n] && n.matches(css) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil, browser.ErrNotFound
	}
	return &element{s: e.s, n: found}, nil
}
