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

package static

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ttbt-io/qotd-e2e/browser"
)

type element struct {
	s   *Session
	sel *goquery.Selection
	gen int
}

func (e *element) node() *html.Node {
	return e.sel.Nodes[0]
}

// check fails with browser.ErrStale once the document the element came from
// has been replaced. s.mu must be held.
func (e *element) check() error {
	if e.gen != e.s.gen {
		return fmt.Errorf("<%s>: %w", e.node().Data, browser.ErrStale)
	}
	return nil
}

func (e *element) lock() (func(), error) {
	e.s.mu.Lock()
	if err := e.check(); err != nil {
		e.s.mu.Unlock()
		return nil, err
	}
	return e.s.mu.Unlock, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	unlock, err := e.lock()
	if err != nil {
		return "", err
	}
	defer unlock()
	var b strings.Builder
	renderedText(&b, e.node())
	return strings.Join(strings.Fields(b.String()), " "), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	unlock, err := e.lock()
	if err != nil {
		return "", false, err
	}
	defer unlock()
	if name == "value" {
		if v, ok := e.s.typed[fieldKey(e.node())]; ok {
			return v, true, nil
		}
	}
	v, ok := e.sel.Attr(name)
	if !ok {
		return "", false, nil
	}
	switch name {
	case "href", "src", "action":
		ref, err := url.Parse(strings.TrimSpace(v))
		if err != nil {
			return v, true, nil
		}
		return e.s.url.ResolveReference(ref).String(), true, nil
	}
	return v, true, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	unlock, err := e.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	for n := e.node(); n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenNode(n) {
			return false, nil
		}
	}
	return true, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	unlock, err := e.lock()
	if err != nil {
		return false, err
	}
	defer unlock()
	n := e.node()
	if hasAttr(n, "disabled") || attr(n, "aria-disabled") == "true" {
		return false, nil
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Fieldset && hasAttr(p, "disabled") {
			return false, nil
		}
	}
	return true, nil
}

// Obscured is always false: there is no layout without a rendering engine.
func (e *element) Obscured(ctx context.Context) (bool, error) {
	unlock, err := e.lock()
	if err != nil {
		return false, err
	}
	unlock()
	return false, nil
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	unlock, err := e.lock()
	if err != nil {
		return err
	}
	defer unlock()
	key := fieldKey(e.node())
	if key == "" {
		return fmt.Errorf("<%s> has neither name nor id", e.node().Data)
	}
	if _, ok := e.s.typed[key]; !ok {
		e.s.typed[key] = attr(e.node(), "value")
	}
	e.s.typed[key] += text
	return nil
}

func (e *element) Clear(ctx context.Context) error {
	unlock, err := e.lock()
	if err != nil {
		return err
	}
	defer unlock()
	if key := fieldKey(e.node()); key != "" {
		e.s.typed[key] = ""
	}
	return nil
}

// Click follows links and submits forms. Other elements have no behavior
// without scripts.
func (e *element) Click(ctx context.Context) error {
	unlock, err := e.lock()
	if err != nil {
		return err
	}
	defer unlock()

	n := e.node()
	if isSubmitter(n) {
		if form := e.sel.Closest("form"); form.Length() > 0 {
			return e.s.submit(ctx, form, n)
		}
		return nil
	}
	if link := e.sel.Closest("a[href]"); link.Length() > 0 {
		href, _ := link.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return fmt.Errorf("link %q: %w", href, err)
		}
		if err := e.s.load(ctx, http.MethodGet, e.s.url.ResolveReference(ref), nil); err != nil {
			return err
		}
		e.s.typed = make(map[string]string)
	}
	return nil
}

func (e *element) Query(ctx context.Context, css string) ([]browser.Element, error) {
	m, err := compile(css)
	if err != nil {
		return nil, err
	}
	unlock, err := e.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return e.s.wrap(e.sel.FindMatcher(m)), nil
}

func (e *element) Closest(ctx context.Context, css string) (browser.Element, error) {
	m, err := compile(css)
	if err != nil {
		return nil, err
	}
	unlock, err := e.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	c := e.sel.ClosestMatcher(m)
	if c.Length() == 0 {
		return nil, fmt.Errorf("closest %q: %w", css, browser.ErrNotFound)
	}
	return &element{s: e.s, sel: c, gen: e.gen}, nil
}

func (e *element) Following(ctx context.Context, css string) (browser.Element, error) {
	m, err := compile(css)
	if err != nil {
		return nil, err
	}
	unlock, err := e.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	order := make(map[*html.Node]int)
	for i, n := range e.s.doc.Find("*").Nodes {
		order[n] = i
	}
	// Descendants are numbered right after the anchor.
	after := order[e.node()] + e.sel.Find("*").Length()
	matches := e.s.doc.FindMatcher(m)
	for i, n := range matches.Nodes {
		if order[n] > after {
			return &element{s: e.s, sel: matches.Eq(i), gen: e.gen}, nil
		}
	}
	return nil, fmt.Errorf("following %q: %w", css, browser.ErrNotFound)
}

// submit posts form the way a browser does for a successful submitter.
// s.mu must be held.
func (s *Session) submit(ctx context.Context, form *goquery.Selection, submitter *html.Node) error {
	values := url.Values{}
	form.Find("input, textarea, select").Each(func(_ int, f *goquery.Selection) {
		n := f.Nodes[0]
		name := attr(n, "name")
		if name == "" || hasAttr(n, "disabled") {
			return
		}
		switch n.DataAtom {
		case atom.Input:
			switch strings.ToLower(attr(n, "type")) {
			case "submit", "button", "reset", "image", "file":
				return
			case "checkbox", "radio":
				if !hasAttr(n, "checked") {
					return
				}
				v := attr(n, "value")
				if v == "" {
					v = "on"
				}
				values.Add(name, v)
				return
			}
			if v, ok := s.typed[fieldKey(n)]; ok {
				values.Add(name, v)
				return
			}
			values.Add(name, attr(n, "value"))
		case atom.Textarea:
			if v, ok := s.typed[fieldKey(n)]; ok {
				values.Add(name, v)
				return
			}
			values.Add(name, f.Text())
		case atom.Select:
			opt := f.Find("option[selected]").First()
			if opt.Length() == 0 {
				opt = f.Find("option").First()
			}
			if v, ok := opt.Attr("value"); ok {
				values.Add(name, v)
			} else {
				values.Add(name, strings.TrimSpace(opt.Text()))
			}
		}
	})
	if name := attr(submitter, "name"); name != "" {
		values.Add(name, attr(submitter, "value"))
	}

	action := s.url
	if a, ok := form.Attr("action"); ok && strings.TrimSpace(a) != "" {
		ref, err := url.Parse(strings.TrimSpace(a))
		if err != nil {
			return fmt.Errorf("form action %q: %w", a, err)
		}
		action = s.url.ResolveReference(ref)
	}

	var err error
	if strings.EqualFold(attr(form.Nodes[0], "method"), http.MethodPost) {
		err = s.load(ctx, http.MethodPost, action, values)
	} else {
		u := *action
		u.RawQuery = values.Encode()
		err = s.load(ctx, http.MethodGet, &u, nil)
	}
	if err != nil {
		return err
	}
	s.typed = make(map[string]string)
	return nil
}

func isSubmitter(n *html.Node) bool {
	t := strings.ToLower(attr(n, "type"))
	switch n.DataAtom {
	case atom.Button:
		return t == "" || t == "submit"
	case atom.Input:
		return t == "submit" || t == "image"
	}
	return false
}

func fieldKey(n *html.Node) string {
	if name := attr(n, "name"); name != "" {
		return "name:" + name
	}
	if id := attr(n, "id"); id != "" {
		return "id:" + id
	}
	return ""
}

func hiddenNode(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Head, atom.Script, atom.Style, atom.Template, atom.Noscript, atom.Title:
		return true
	case atom.Input:
		if strings.EqualFold(attr(n, "type"), "hidden") {
			return true
		}
	}
	if hasAttr(n, "hidden") {
		return true
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == "hidden" {
			return true
		}
	}
	style := strings.ReplaceAll(strings.ToLower(attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// renderedText approximates innerText: text of visible nodes, block elements
// separated by whitespace.
func renderedText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if hiddenNode(n) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderedText(b, c)
		if c.Type == html.ElementNode {
			b.WriteByte(' ')
		}
	}
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, a := range n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}
