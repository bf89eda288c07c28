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

package targetapp

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/c2FmZQ/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	usersFile       = "users.json"
	leaderboardFile = "leaderboard.json"
	questionFile    = "question.json"
	submissionsFile = "submissions.json"
)

// User is an account that can sign in.
type User struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	PasswordHash []byte `json:"passwordHash"`
}

// Entry is one line of the leaderboard.
type Entry struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Question is the question of the day.
type Question struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Date  string `json:"date,omitempty"`
}

// Submission is a recent attempt, shown next to the leaderboard.
type Submission struct {
	Problem string `json:"problem"`
	User    string `json:"user"`
	Verdict string `json:"verdict"`
}

// Store holds the application data and persists every change.
type Store struct {
	storage    *storage.Storage
	bcryptCost int

	mu          sync.RWMutex
	users       map[string]User
	board       []Entry
	question    *Question
	submissions []Submission
	// renders counts dashboard renders per user. It is not persisted.
	renders map[string]int
}

// NewStore loads the data saved in s.
func NewStore(s *storage.Storage, bcryptCost int) (*Store, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	st := &Store{
		storage:    s,
		bcryptCost: bcryptCost,
		users:      make(map[string]User),
		renders:    make(map[string]int),
	}
	for name, v := range map[string]any{
		usersFile:       &st.users,
		leaderboardFile: &st.board,
		questionFile:    &st.question,
		submissionsFile: &st.submissions,
	} {
		if err := st.storage.ReadDataFile(name, v); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("ReadDataFile(%s): %w", name, err)
		}
	}
	return st, nil
}

func (st *Store) save(name string, v any) error {
	if err := st.storage.SaveDataFile(name, v); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// AddUser creates or replaces an account.
func (st *Store) AddUser(email, name, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return errors.New("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), st.bcryptCost)
	if err != nil {
		return fmt.Errorf("bcrypt: %w", err)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.users[email] = User{Email: email, Name: name, PasswordHash: hash}
	return st.save(usersFile, st.users)
}

// CheckPassword returns the user when the credentials match.
func (st *Store) CheckPassword(email, password string) (User, bool) {
	st.mu.RLock()
	u, ok := st.users[normalizeEmail(email)]
	st.mu.RUnlock()
	if !ok {
		return User{}, false
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return User{}, false
	}
	return u, true
}

// User returns the account with the given email.
func (st *Store) User(email string) (User, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	u, ok := st.users[normalizeEmail(email)]
	return u, ok
}

// SetPoints sets the score of name, adding it to the leaderboard if needed.
func (st *Store) SetPoints(name string, points int) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	i := slices.IndexFunc(st.board, func(e Entry) bool { return e.Name == name })
	if i < 0 {
		st.board = append(st.board, Entry{Name: name, Points: points})
	} else {
		st.board[i].Points = points
	}
	return st.save(leaderboardFile, st.board)
}

// Leaderboard returns the entries by decreasing points, ties by name.
func (st *Store) Leaderboard() []Entry {
	st.mu.RLock()
	out := slices.Clone(st.board)
	st.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b Entry) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// SetQuestion replaces the question of the day.
func (st *Store) SetQuestion(q Question) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.question = &q
	return st.save(questionFile, st.question)
}

// Question returns the question of the day, if one is set.
func (st *Store) Question() (Question, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.question == nil {
		return Question{}, false
	}
	return *st.question, true
}

// AddSubmission records a recent attempt. Only the last ten are kept.
func (st *Store) AddSubmission(s Submission) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.submissions = append([]Submission{s}, st.submissions...)
	if len(st.submissions) > 10 {
		st.submissions = st.submissions[:10]
	}
	return st.save(submissionsFile, st.submissions)
}

// Submissions returns the recent attempts, newest first.
func (st *Store) Submissions() []Submission {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slices.Clone(st.submissions)
}

// CountRender records a dashboard render for email and returns the number
// of renders before this one.
func (st *Store) CountRender(email string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := st.renders[email]
	st.renders[email] = n + 1
	return n
}

// ResetRenders forgets the dashboard renders of email.
func (st *Store) ResetRenders(email string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.renders, email)
}

// Seed fills an empty store with a demo account, a leaderboard and a
// question.
func (st *Store) Seed(email, password string) error {
	st.mu.RLock()
	empty := len(st.users) == 0
	st.mu.RUnlock()
	if !empty {
		return nil
	}
	if err := st.AddUser(email, "Demo User", password); err != nil {
		return err
	}
	for _, e := range []Entry{
		{"PES1UG22CS001", 140},
		{"PES1UG22CS117", 95},
		{"PES1UG22CS042", 95},
		{"PES1UG22CS230", 60},
		{"PES1UG22CS305", 15},
	} {
		if err := st.SetPoints(e.Name, e.Points); err != nil {
			return err
		}
	}
	for _, s := range []Submission{
		{"4A Watermelon", "PES1UG22CS230", "ACCEPTED"},
		{"1A Theatre Square", "PES1UG22CS117", "REJECTED"},
		{"1A Theatre Square", "PES1UG22CS001", "ACCEPTED"},
	} {
		if err := st.AddSubmission(s); err != nil {
			return err
		}
	}
	return st.SetQuestion(Question{
		Title: "Theatre Square",
		Link:  "https://codeforces.com/problemset/problem/1/A",
	})
}
