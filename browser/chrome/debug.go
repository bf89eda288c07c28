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
	"fmt"

	"github.com/chromedp/chromedp"
)

// DisableCSSAnimations turns off transitions and animations on the current
// page so that elements reach their final position immediately.
func DisableCSSAnimations() chromedp.ActionFunc {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
			(() => {
				const style = document.createElement('style');
				style.innerHTML = '*{-webkit-transition-duration:0s!important;transition-duration:0s!important;-webkit-animation-duration:0s!important;animation-duration:0s!important;}';
				(document.head || document.documentElement).appendChild(style);
			})()
		`, nil).Do(ctx)
	})
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// HTML returns the serialized current document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		return "", err
	}
	return html, nil
}
