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

package flows

import (
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ttbt-io/qotd-e2e/wait"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultContentTimeout    = 20 * time.Second
)

// Selectors locate the parts of the target application's pages.
type Selectors struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Submit   string `yaml:"submit"`

	// HeaderRow matches the leaderboard header row. It is narrowed to the
	// rows that have HeaderCell cells and whose text contains UserColumn
	// then PointsColumn.
	HeaderRow    string `yaml:"header_row"`
	HeaderCell   string `yaml:"header_cell"`
	UserColumn   string `yaml:"user_column"`
	PointsColumn string `yaml:"points_column"`
	Table        string `yaml:"table"`
	Rows         string `yaml:"rows"`
	Cell         string `yaml:"cell"`

	QOTDHeading     string `yaml:"qotd_heading"`
	QOTDHeadingText string `yaml:"qotd_heading_text"`
	QOTDTitle       string `yaml:"qotd_title"`
	SolveLink       string `yaml:"solve_link"`
	SolveLinkText   string `yaml:"solve_link_text"`
}

// DefaultSelectors match the reference target application.
func DefaultSelectors() Selectors {
	return Selectors{
		Email:           "input[name='email']",
		Password:        "input[name='password']",
		Submit:          "button[type='submit']",
		HeaderRow:       "tr",
		HeaderCell:      "th",
		UserColumn:      "User",
		PointsColumn:    "Points",
		Table:           "table",
		Rows:            "tbody tr",
		Cell:            "td",
		QOTDHeading:     "h2",
		QOTDHeadingText: "Question of the Day",
		QOTDTitle:       "p",
		SolveLink:       "a",
		SolveLinkText:   "Solve Now",
	}
}

// Config holds the plain parameters every flow runs with.
type Config struct {
	BaseURL       string
	LoginPath     string
	DashboardPath string
	Email         string
	Password      string

	// Wait bounds every wait that has no more specific timeout.
	Wait wait.Spec
	// NavigationTimeout bounds the wait for the dashboard after login.
	NavigationTimeout time.Duration
	// ContentTimeout bounds the wait for asynchronously loaded content.
	ContentTimeout time.Duration

	Selectors Selectors

	// InvalidMarkers are placeholder texts that mean "not loaded yet".
	InvalidMarkers []string
	// ErrorMarkers are texts that mean loading failed for good.
	ErrorMarkers []string
	// AcceptTitle, when set, must match the question title.
	AcceptTitle *regexp.Regexp
	// AllowedDomains are the hosts the "Solve Now" link may point to.
	AllowedDomains []string

	// ArtifactsDir receives a screenshot and the document of a failed step.
	ArtifactsDir string
	Logger       logrus.FieldLogger
}

// WithDefaults returns c with every zero field set to its default value.
func (c Config) WithDefaults() Config {
	if c.LoginPath == "" {
		c.LoginPath = "/auth"
	}
	if c.DashboardPath == "" {
		c.DashboardPath = "/dashboard"
	}
	if c.Wait.Timeout == 0 {
		c.Wait.Timeout = wait.DefaultTimeout
	}
	if c.Wait.Interval == 0 {
		c.Wait.Interval = wait.DefaultInterval
	}
	if c.NavigationTimeout == 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.ContentTimeout == 0 {
		c.ContentTimeout = DefaultContentTimeout
	}
	def := DefaultSelectors()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	s := &c.Selectors
	fill(&s.Email, def.Email)
	fill(&s.Password, def.Password)
	fill(&s.Submit, def.Submit)
	fill(&s.HeaderRow, def.HeaderRow)
	fill(&s.HeaderCell, def.HeaderCell)
	fill(&s.UserColumn, def.UserColumn)
	fill(&s.PointsColumn, def.PointsColumn)
	fill(&s.Table, def.Table)
	fill(&s.Rows, def.Rows)
	fill(&s.Cell, def.Cell)
	fill(&s.QOTDHeading, def.QOTDHeading)
	fill(&s.QOTDHeadingText, def.QOTDHeadingText)
	fill(&s.QOTDTitle, def.QOTDTitle)
	fill(&s.SolveLink, def.SolveLink)
	fill(&s.SolveLinkText, def.SolveLinkText)
	if c.InvalidMarkers == nil {
		c.InvalidMarkers = []string{"Loading"}
	}
	if c.ErrorMarkers == nil {
		c.ErrorMarkers = []string{"Failed to fetch"}
	}
	if len(c.AllowedDomains) == 0 {
		c.AllowedDomains = []string{"codeforces.com"}
	}
	return c
}

func (c Config) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func (c Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// waitFor returns the options of a wait bounded by timeout, or by the
// default wait timeout when timeout is zero.
func (c Config) waitFor(timeout time.Duration, log logrus.FieldLogger) []wait.Option {
	spec := c.Wait
	if timeout > 0 {
		spec.Timeout = timeout
	}
	spec.Logger = log
	return []wait.Option{wait.WithSpec(spec)}
}
