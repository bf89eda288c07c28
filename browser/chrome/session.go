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

// Package chrome implements browser.Session on top of a Chrome tab driven
// through the DevTools protocol.
//
// Elements are held as remote object handles. Every operation on an element
// is a small JavaScript function called on that handle, so the page is never
// searched again once an element was found. A handle that no longer resolves
// (the page navigated, or the node was garbage collected) reports
// browser.ErrStale.
package chrome

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/ttbt-io/qotd-e2e/browser"
)

const objectGroup = "qotd-e2e"

// Options configures a Session.
type Options struct {
	// RemoteURL is the DevTools endpoint of an already running browser, e.g.
	// ws://127.0.0.1:9222. When empty a local headless Chrome is started.
	RemoteURL string
	// Headful shows the browser window of a locally started Chrome.
	Headful bool
	// NoAnimations injects a stylesheet that disables CSS transitions and
	// animations after every navigation.
	NoAnimations bool
	// ConsoleErrors, when set, receives every console.error call and uncaught
	// exception of the page.
	ConsoleErrors func(msg string)
	Logger        logrus.FieldLogger
}

// Session is a browser.Session backed by one Chrome tab.
type Session struct {
	tab    context.Context
	cancel context.CancelFunc
	opts   Options
	log    logrus.FieldLogger

	mu     sync.Mutex
	closed bool
}

var _ browser.Session = (*Session)(nil)

// New starts (or attaches to) a browser and opens a tab. The tab lives until
// Close is called or ctx is cancelled.
func New(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var (
		allocCtx    context.Context
		cancelAlloc context.CancelFunc
	)
	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", !opts.Headful),
			chromedp.WindowSize(1280, 1024),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, allocOpts...)
	}
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(logger.Errorf),
		chromedp.WithLogf(logger.Debugf),
	)
	s := &Session{
		tab: tab,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
		opts: opts,
		log:  logger,
	}
	// Starts the browser.
	if err := chromedp.Run(tab); err != nil {
		s.cancel()
		return nil, fmt.Errorf("chrome: cannot start browser: %w", err)
	}
	if opts.ConsoleErrors != nil {
		chromedp.ListenTarget(tab, s.listen)
	}
	return s, nil
}

func (s *Session) listen(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeError {
			return
		}
		args := make([]string, len(ev.Args))
		for i, arg := range ev.Args {
			if len(arg.Value) > 0 {
				args[i] = string(arg.Value)
			} else {
				args[i] = arg.Description
			}
		}
		s.opts.ConsoleErrors("console error: " + strings.Join(args, " "))
	case *runtime.EventExceptionThrown:
		msg := ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
			msg += " " + ev.ExceptionDetails.Exception.Description
		}
		s.opts.ConsoleErrors("exception: " + msg)
	}
}

// run executes actions on the tab, bounded by the deadline and cancellation
// of ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("chrome: session closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tctx, cancel := context.WithCancel(s.tab)
	defer cancel()
	if d, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tctx, cancelDeadline = context.WithDeadline(tctx, d)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classify(err)
	}
	return nil
}

// classify maps protocol errors about vanished objects to browser.ErrStale.
func classify(err error) error {
	msg := err.Error()
	for _, s := range []string{
		"Could not find object with given id",
		"Cannot find context with specified id",
		"Execution context was destroyed",
		"Cannot find default execution context",
		"Node with given id does not belong to the document",
	} {
		if strings.Contains(msg, s) {
			return fmt.Errorf("%v: %w", err, browser.ErrStale)
		}
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.log.WithField("url", url).Debug("navigate")
	actions := []chromedp.Action{
		runtime.ReleaseObjectGroup(objectGroup),
		chromedp.Navigate(url),
	}
	if s.opts.NoAnimations {
		actions = append(actions, DisableCSSAnimations())
	}
	if err := s.run(ctx, actions...); err != nil {
		return fmt.Errorf("chrome: navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (s *Session) Query(ctx context.Context, css string) ([]browser.Element, error) {
	var doc *runtime.RemoteObject
	if err := s.run(ctx, chromedp.Evaluate(`document`, &doc, chromedp.EvalObjectGroup(objectGroup))); err != nil {
		return nil, err
	}
	if doc == nil || doc.ObjectID == "" {
		return nil, browser.ErrStale
	}
	return (&element{s: s, id: doc.ObjectID}).Query(ctx, css)
}

// ClearCookies removes every cookie of the browser.
func (s *Session) ClearCookies(ctx context.Context) error {
	return s.run(ctx, network.ClearBrowserCookies())
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	return nil
}
