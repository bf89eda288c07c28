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
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveArtifacts writes whatever debugging material s can produce (a PNG
// screenshot, the serialized document) to dir, named after name. It returns
// the paths written. Sessions that support neither write nothing.
func SaveArtifacts(ctx context.Context, s Session, dir, name string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	var (
		paths []string
		errs  []error
	)
	write := func(file string, data []byte) {
		p := filepath.Join(dir, file)
		if err := os.WriteFile(p, data, 0644); err != nil {
			errs = append(errs, err)
			return
		}
		paths = append(paths, p)
	}
	if ss, ok := s.(Screenshotter); ok {
		if buf, err := ss.Screenshot(ctx); err != nil {
			errs = append(errs, err)
		} else {
			write(name+".png", buf)
		}
	}
	if hd, ok := s.(HTMLDumper); ok {
		if html, err := hd.HTML(ctx); err != nil {
			errs = append(errs, err)
		} else {
			write(name+".html", []byte(html))
		}
	}
	return paths, errors.Join(errs...)
}
