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

// Package browser defines the handle the verification flows use to drive a
// live document. Implementations live in the chrome and static subpackages.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup matched nothing. The document is
	// expected to mutate while a wait is polling, so callers treat it as
	// transient.
	ErrNotFound = errors.New("element not found")

	// ErrStale is returned when an element handle no longer refers to a node
	// of the current document (e.g. after a navigation or a re-render).
	ErrStale = errors.New("stale element reference")
)

// IsTransient reports whether err only means "not yet".
func IsTransient(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStale)
}

// Session is a live handle to one browser instance and its current document.
// A Session is driven by one flow at a time and must not be shared between
// concurrent runs.
type Session interface {
	// Navigate loads url and returns once the navigation committed.
	Navigate(ctx context.Context, url string) error
	// URL returns the URL of the current document.
	URL(ctx context.Context) (string, error)
	// Query returns every element of the current document matching the CSS
	// selector, in document order. No match is not an error.
	Query(ctx context.Context, css string) ([]Element, error)
	// Close releases the browser resources held by the session.
	Close() error
}

// Element is a handle to one node of the current document.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	// Attribute returns the named property or attribute. For links this is
	// the resolved absolute URL.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
	// Obscured reports whether another element sits on top of the center of
	// this one.
	Obscured(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Clear(ctx context.Context) error

	// Query returns the descendants matching css.
	Query(ctx context.Context, css string) ([]Element, error)
	// Closest returns the nearest ancestor (or the element itself) matching
	// css, or ErrNotFound.
	Closest(ctx context.Context, css string) (Element, error)
	// Following returns the first element matching css that comes after this
	// one in document order, descendants excluded, or ErrNotFound.
	Following(ctx context.Context, css string) (Element, error)
}

// CookieResetter is implemented by sessions that can drop their cookies.
type CookieResetter interface {
	ClearCookies(ctx context.Context) error
}

// Screenshotter is implemented by sessions that can render the viewport.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// HTMLDumper is implemented by sessions that can serialize the document.
type HTMLDumper interface {
	HTML(ctx context.Context) (string, error)
}
