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

package report

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/google/uuid"
)

// History stores past runs, one file per run.
type History struct {
	dir     string
	storage *storage.Storage
	mu      sync.Mutex
}

// OpenHistory returns the history kept in dir.
func OpenHistory(dir string) *History {
	return &History{
		dir:     dir,
		storage: storage.New(dir, nil),
	}
}

func runFile(id uuid.UUID) string {
	return filepath.Join("runs", id.String()+".json")
}

// Save stores r.
func (h *History) Save(r *Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.storage.SaveDataFile(runFile(r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// Load returns the run with the given ID, or an error satisfying
// errors.Is(err, os.ErrNotExist).
func (h *History) Load(id uuid.UUID) (*Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var r Run
	if err := h.storage.ReadDataFile(runFile(id), &r); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &r, nil
}

// List returns every stored run, oldest first. Unreadable files are logged
// and skipped.
func (h *History) List() ([]*Run, error) {
	files, err := os.ReadDir(filepath.Join(h.dir, "runs"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var runs []*Run
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := uuid.Parse(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		r, err := h.Load(id)
		if err != nil {
			log.Printf("History Warning: failed to load run %s: %v", id, err)
			continue
		}
		runs = append(runs, r)
	}
	slices.SortFunc(runs, func(a, b *Run) int {
		return a.Started.Compare(b.Started)
	})
	return runs, nil
}

// Latest returns the most recent stored run, or nil if there is none.
func (h *History) Latest() (*Run, error) {
	runs, err := h.List()
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[len(runs)-1], nil
}
