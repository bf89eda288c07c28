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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttbt-io/qotd-e2e/flows"
)

func env(kv map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := kv[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "qotd-e2e.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0600))
	return p
}

func TestDefaultIsValid(t *testing.T) {
	c, err := Load("", env(nil))
	require.NoError(t, err)
	assert.NoError(t, c.Validate())
	assert.Equal(t, Default(), c)
}

func TestPrecedence(t *testing.T) {
	p := writeFile(t, `
base_url: https://staging.example.com
email: file@example.com
timeout: 20s
engine: static
allowed_domains: [codeforces.com, codeforces.ml]
selectors:
  submit: "#login"
`)
	c, err := Load(p, env(map[string]string{
		"QOTD_E2E_EMAIL":         "env@example.com",
		"QOTD_E2E_POLL_INTERVAL": "250ms",
		"QOTD_E2E_FLOWS":         "leaderboard,question-of-the-day",
	}))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, "https://staging.example.com", c.BaseURL)
	assert.Equal(t, "env@example.com", c.Email)
	assert.Equal(t, 20*time.Second, c.Timeout)
	assert.Equal(t, 250*time.Millisecond, c.PollInterval)
	assert.Equal(t, EngineStatic, c.Engine)
	assert.Equal(t, []string{"codeforces.com", "codeforces.ml"}, c.AllowedDomains)
	assert.Equal(t, "#login", c.Selectors.Submit)
	// Untouched selectors keep their defaults.
	assert.Equal(t, "input[name='email']", c.Selectors.Email)

	var names []string
	for _, f := range c.SelectedFlows() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{flows.LeaderboardFlow, flows.QOTDFlow}, names)
}

func TestUnknownField(t *testing.T) {
	p := writeFile(t, "base_ulr: https://example.com\n")
	_, err := Load(p, env(nil))
	assert.ErrorContains(t, err, "base_ulr")
}

func TestEmptyFile(t *testing.T) {
	c, err := Load(writeFile(t, ""), env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), env(nil))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestBadEnvironment(t *testing.T) {
	_, err := Load("", env(map[string]string{"QOTD_E2E_TIMEOUT": "soon"}))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"relative base url", func(c *Config) { c.BaseURL = "/dashboard" }, "base_url"},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://example.com" }, "base_url"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"interval too long", func(c *Config) { c.PollInterval = c.Timeout }, "interval"},
		{"content timeout", func(c *Config) { c.ContentTimeout = c.PollInterval }, "content_timeout"},
		{"engine", func(c *Config) { c.Engine = "firefox" }, "engine"},
		{"flow", func(c *Config) { c.Flows = []string{"signup"} }, "signup"},
		{"title pattern", func(c *Config) { c.AcceptTitle = "(" }, "accept_title"},
		{"domains", func(c *Config) { c.AllowedDomains = nil }, "allowed_domains"},
		{"log level", func(c *Config) { c.LogLevel = "chatty" }, "log_level"},
		{"empty error marker", func(c *Config) { c.ErrorMarkers = []string{""} }, "error_markers"},
		{"empty invalid marker", func(c *Config) { c.InvalidMarkers = []string{"Loading", ""} }, "invalid_markers"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			assert.ErrorContains(t, c.Validate(), tc.want)
		})
	}
}

func TestValidateErrorOrder(t *testing.T) {
	c := Default()
	c.NavigationTimeout = c.PollInterval
	c.ContentTimeout = c.PollInterval
	want := c.Validate().Error()
	for range 20 {
		assert.Equal(t, want, c.Validate().Error())
	}
	assert.Less(t, strings.Index(want, "navigation_timeout"), strings.Index(want, "content_timeout"))
}

func TestFlowConfig(t *testing.T) {
	c := Default()
	c.AcceptTitle = `^\w`
	c.Timeout = 5 * time.Second
	fc := c.FlowConfig(nil)
	assert.Equal(t, 5*time.Second, fc.Wait.Timeout)
	assert.Equal(t, c.PollInterval, fc.Wait.Interval)
	require.NotNil(t, fc.AcceptTitle)
	assert.True(t, fc.AcceptTitle.MatchString("Two Sum"))
	assert.Equal(t, []string{"codeforces.com"}, fc.AllowedDomains)
	assert.Equal(t, "/dashboard", fc.DashboardPath)
}
