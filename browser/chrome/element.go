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
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/qotd-e2e/browser"
)

const (
	jsQueryAll  = `function(sel) { return Array.from(this.querySelectorAll(sel)); }`
	jsClosest   = `function(sel) { return this.closest(sel); }`
	jsFollowing = `function(sel) {
		const doc = this.ownerDocument || document;
		for (const el of doc.querySelectorAll(sel)) {
			const pos = this.compareDocumentPosition(el);
			if ((pos & Node.DOCUMENT_POSITION_FOLLOWING) && !(pos & Node.DOCUMENT_POSITION_CONTAINED_BY)) {
				return el;
			}
		}
		return null;
	}`
	jsText = `function() {
		if (!this.isConnected) return {stale: true};
		return {t: typeof this.innerText === 'string' ? this.innerText : (this.textContent || '')};
	}`
	jsAttribute = `function(name) {
		if (name === 'value' && 'value' in this) return {v: String(this.value), ok: true};
		if ((name === 'href' || name === 'src' || name === 'action') && this.hasAttribute(name)) {
			return {v: String(this[name]), ok: true};
		}
		const v = this.getAttribute(name);
		return v === null ? {v: '', ok: false} : {v: v, ok: true};
	}`
	jsVisible = `function() {
		if (!this.isConnected) return false;
		if (typeof this.checkVisibility === 'function' &&
			!this.checkVisibility({opacityProperty: true, visibilityProperty: true})) return false;
		const r = this.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) return false;
		const style = window.getComputedStyle(this);
		return style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
	}`
	jsEnabled = `function() {
		if (this.disabled) return false;
		if (this.getAttribute('aria-disabled') === 'true') return false;
		return !this.closest('fieldset[disabled]');
	}`
	jsObscured = `function() {
		this.scrollIntoView({block: 'center', inline: 'center'});
		const r = this.getBoundingClientRect();
		const top = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
		return !!top && top !== this && !this.contains(top);
	}`
	jsClick = `function() {
		this.scrollIntoView({block: 'center', inline: 'center'});
		this.click();
	}`
	jsFocus = `function() { this.focus(); }`
	jsClear = `function() {
		this.value = '';
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
	}`
)

type element struct {
	s  *Session
	id runtime.RemoteObjectID
}

var _ browser.Element = (*element)(nil)

func (e *element) on(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
	return p.WithObjectID(e.id).WithObjectGroup(objectGroup)
}

func (e *element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.s.run(ctx, chromedp.CallFunctionOn(fn, res, e.on, args...))
}

// ref calls fn and wraps the returned node, or reports browser.ErrNotFound
// when it returned null.
func (e *element) ref(ctx context.Context, fn string, args ...any) (browser.Element, error) {
	var obj *runtime.RemoteObject
	if err := e.call(ctx, fn, &obj, args...); err != nil {
		return nil, err
	}
	if obj == nil || obj.ObjectID == "" || obj.Subtype == runtime.SubtypeNull || obj.Type == runtime.TypeUndefined {
		return nil, browser.ErrNotFound
	}
	return &element{s: e.s, id: obj.ObjectID}, nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var res struct {
		T     string `json:"t"`
		Stale bool   `json:"stale"`
	}
	if err := e.call(ctx, jsText, &res); err != nil {
		return "", err
	}
	if res.Stale {
		return "", browser.ErrStale
	}
	return res.T, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res struct {
		V  string `json:"v"`
		OK bool   `json:"ok"`
	}
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false, err
	}
	return res.V, res.OK, nil
}

func (e *element) flag(ctx context.Context, fn string) (bool, error) {
	var b bool
	err := e.call(ctx, fn, &b)
	return b, err
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	return e.flag(ctx, jsVisible)
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	return e.flag(ctx, jsEnabled)
}

func (e *element) Obscured(ctx context.Context) (bool, error) {
	return e.flag(ctx, jsObscured)
}

func (e *element) Click(ctx context.Context) error {
	return e.call(ctx, jsClick, nil)
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	return e.s.run(ctx,
		chromedp.CallFunctionOn(jsFocus, nil, e.on),
		chromedp.KeyEvent(text),
	)
}

func (e *element) Clear(ctx context.Context) error {
	return e.call(ctx, jsClear, nil)
}

func (e *element) Query(ctx context.Context, css string) ([]browser.Element, error) {
	var arr *runtime.RemoteObject
	if err := e.call(ctx, jsQueryAll, &arr, css); err != nil {
		return nil, err
	}
	if arr == nil || arr.ObjectID == "" {
		return nil, fmt.Errorf("chrome: query %q returned no array", css)
	}

	type indexed struct {
		i  int
		id runtime.RemoteObjectID
	}
	var items []indexed
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		props, _, _, exp, err := runtime.GetProperties(arr.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return exp
		}
		for _, p := range props {
			i, err := strconv.Atoi(p.Name)
			if err != nil || p.Value == nil || p.Value.ObjectID == "" {
				continue
			}
			items = append(items, indexed{i: i, id: p.Value.ObjectID})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b indexed) int { return cmp.Compare(a.i, b.i) })

	out := make([]browser.Element, len(items))
	for i, it := range items {
		out[i] = &element{s: e.s, id: it.id}
	}
	return out, nil
}

func (e *element) Closest(ctx context.Context, css string) (browser.Element, error) {
	return e.ref(ctx, jsClosest, css)
}

func (e *element) Following(ctx context.Context, css string) (browser.Element, error) {
	return e.ref(ctx, jsFollowing, css)
}
