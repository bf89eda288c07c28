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

package browser

import (
	"context"
	"fmt"
	"strings"
)

type relation int

const (
	relRoot relation = iota
	relFind
	relClosest
	relNext
)

// Locator describes how to find elements in the current document. A locator
// is either rooted at the document (CSS) or relative to the first match of an
// anchor locator (Find, Closest, Next). Locators are values and are resolved
// afresh on every call, so they survive re-renders.
type Locator struct {
	anchor *Locator
	rel    relation
	css    string
	has    []string
	texts  []string
}

// CSS returns a locator for the elements of the document matching sel.
func CSS(sel string) Locator {
	return Locator{rel: relRoot, css: sel}
}

// Containing keeps only the elements whose trimmed text contains every one of
// texts, in the given order.
func (l Locator) Containing(texts ...string) Locator {
	out := l
	out.texts = append(append([]string(nil), l.texts...), texts...)
	return out
}

// Has keeps only the elements with at least one descendant matching css.
func (l Locator) Has(css string) Locator {
	out := l
	out.has = append(append([]string(nil), l.has...), css)
	return out
}

// Find returns a locator for the descendants of l's first match.
func (l Locator) Find(css string) Locator {
	return l.derive(relFind, css)
}

// Closest returns a locator for the nearest ancestor of l's first match.
func (l Locator) Closest(css string) Locator {
	return l.derive(relClosest, css)
}

// Next returns a locator for the first element after l's first match.
func (l Locator) Next(css string) Locator {
	return l.derive(relNext, css)
}

func (l Locator) derive(rel relation, css string) Locator {
	anchor := l
	return Locator{anchor: &anchor, rel: rel, css: css}
}

// String describes the locator chain for diagnostics.
func (l Locator) String() string {
	var b strings.Builder
	if l.anchor != nil {
		b.WriteString(l.anchor.String())
		switch l.rel {
		case relFind:
			b.WriteString(" >> ")
		case relClosest:
			b.WriteString(" >> closest ")
		case relNext:
			b.WriteString(" >> next ")
		}
	}
	b.WriteString(l.css)
	for _, h := range l.has {
		fmt.Fprintf(&b, ":has(%s)", h)
	}
	for _, t := range l.texts {
		fmt.Fprintf(&b, ":contains(%q)", t)
	}
	return b.String()
}

// All resolves the locator. An unresolvable anchor yields ErrNotFound; an
// empty result is not an error.
func (l Locator) All(ctx context.Context, s Session) ([]Element, error) {
	var candidates []Element
	switch l.rel {
	case relRoot:
		els, err := s.Query(ctx, l.css)
		if err != nil {
			return nil, err
		}
		candidates = els
	default:
		a, err := l.anchor.First(ctx, s)
		if err != nil {
			return nil, err
		}
		switch l.rel {
		case relFind:
			candidates, err = a.Query(ctx, l.css)
		case relClosest:
			var e Element
			if e, err = a.Closest(ctx, l.css); err == nil {
				candidates = []Element{e}
			}
		case relNext:
			var e Element
			if e, err = a.Following(ctx, l.css); err == nil {
				candidates = []Element{e}
			}
		}
		if err != nil {
			if IsTransient(err) {
				return nil, nil
			}
			return nil, err
		}
	}
	candidates, err := l.filterHas(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(l.texts) == 0 {
		return candidates, nil
	}
	out := candidates[:0:0]
	for _, e := range candidates {
		txt, err := e.Text(ctx)
		if err != nil {
			if IsTransient(err) {
				continue
			}
			return nil, err
		}
		if containsInOrder(strings.TrimSpace(txt), l.texts) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l Locator) filterHas(ctx context.Context, candidates []Element) ([]Element, error) {
	if len(l.has) == 0 {
		return candidates, nil
	}
	out := candidates[:0:0]
next:
	for _, e := range candidates {
		for _, css := range l.has {
			found, err := e.Query(ctx, css)
			if err != nil {
				if IsTransient(err) {
					continue next
				}
				return nil, err
			}
			if len(found) == 0 {
				continue next
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// First resolves the locator and returns its first match, or ErrNotFound.
func (l Locator) First(ctx context.Context, s Session) (Element, error) {
	els, err := l.All(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", l, ErrNotFound)
	}
	return els[0], nil
}

func containsInOrder(s string, parts []string) bool {
	for _, p := range parts {
		i := strings.Index(s, p)
		if i < 0 {
			return false
		}
		s = s[i+len(p):]
	}
	return true
}
