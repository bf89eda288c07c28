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

package verify

import (
	"fmt"
	"net/url"
	"strings"
)

// NonEmpty checks that the trimmed text is not empty.
func NonEmpty(what, text string) error {
	if strings.TrimSpace(text) == "" {
		return &AssertionFailed{Check: "content", Message: what + " is empty", Observed: fmt.Sprintf("%q", text)}
	}
	return nil
}

// LinkDomain parses raw and checks that its host is one of allowed or a
// subdomain of one of them. Only http and https links pass.
func LinkDomain(raw string, allowed []string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &StaleExtraction{What: "link target", Raw: raw, Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &AssertionFailed{
			Check:    "link domain",
			Message:  "link is not an http(s) URL",
			Observed: raw,
		}
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	for _, d := range allowed {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return u, nil
		}
	}
	return nil, &AssertionFailed{
		Check:    "link domain",
		Message:  fmt.Sprintf("host %s is not allow-listed", host),
		Observed: host,
		Expected: allowed,
	}
}
