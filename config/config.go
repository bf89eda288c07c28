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

// Package config loads the harness configuration. Values come from, in
// increasing order of precedence: built-in defaults, an optional YAML file,
// QOTD_E2E_* environment variables, and command line flags (applied by the
// caller).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ttbt-io/qotd-e2e/flows"
	"github.com/ttbt-io/qotd-e2e/wait"
)

const (
	EngineChrome = "chrome"
	EngineStatic = "static"
)

// Config is the complete harness configuration.
type Config struct {
	BaseURL       string `yaml:"base_url"`
	LoginPath     string `yaml:"login_path"`
	DashboardPath string `yaml:"dashboard_path"`
	Email         string `yaml:"email"`
	Password      string `yaml:"password"`

	// Engine selects the browser.Session implementation: chrome or static.
	Engine string `yaml:"engine"`
	// ChromeURL is the DevTools endpoint of a running browser. A local
	// headless Chrome is started when empty.
	ChromeURL string `yaml:"chrome_url"`
	Headful   bool   `yaml:"headful"`

	Timeout           time.Duration `yaml:"timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ContentTimeout    time.Duration `yaml:"content_timeout"`

	// Flows lists the flows to run, all of them when empty.
	Flows          []string `yaml:"flows"`
	InvalidMarkers []string `yaml:"invalid_markers"`
	ErrorMarkers   []string `yaml:"error_markers"`
	// AcceptTitle is a regular expression the question title must match.
	AcceptTitle    string   `yaml:"accept_title"`
	AllowedDomains []string `yaml:"allowed_domains"`

	Selectors flows.Selectors `yaml:"selectors"`

	ArtifactsDir string `yaml:"artifacts_dir"`
	HistoryDir   string `yaml:"history_dir"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:           "http://localhost:3000",
		LoginPath:         "/auth",
		DashboardPath:     "/dashboard",
		Engine:            EngineChrome,
		Timeout:           wait.DefaultTimeout,
		PollInterval:      wait.DefaultInterval,
		NavigationTimeout: flows.DefaultNavigationTimeout,
		ContentTimeout:    flows.DefaultContentTimeout,
		InvalidMarkers:    []string{"Loading"},
		ErrorMarkers:      []string{"Failed to fetch"},
		AllowedDomains:    []string{"codeforces.com"},
		Selectors:         flows.DefaultSelectors(),
		LogLevel:          "info",
	}
}

// Load returns the defaults overridden by the YAML file at path (if path is
// not empty) and then by the environment seen through lookup. A nil lookup
// reads the process environment.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	if path != "" {
		if err := c.ApplyFile(path); err != nil {
			return c, err
		}
	}
	if err := c.ApplyEnv(lookup); err != nil {
		return c, err
	}
	return c, nil
}

// ApplyFile overrides c with the fields set in a YAML file. Unknown fields
// are rejected.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// envOverrides lists the environment variables. Nil fields were not set.
type envOverrides struct {
	BaseURL      *string        `envconfig:"QOTD_E2E_BASE_URL"`
	Email        *string        `envconfig:"QOTD_E2E_EMAIL"`
	Password     *string        `envconfig:"QOTD_E2E_PASSWORD"`
	Engine       *string        `envconfig:"QOTD_E2E_ENGINE"`
	ChromeURL    *string        `envconfig:"QOTD_E2E_CHROME_URL"`
	Timeout      *time.Duration `envconfig:"QOTD_E2E_TIMEOUT"`
	PollInterval *time.Duration `envconfig:"QOTD_E2E_POLL_INTERVAL"`
	ArtifactsDir *string        `envconfig:"QOTD_E2E_ARTIFACTS_DIR"`
	HistoryDir   *string        `envconfig:"QOTD_E2E_HISTORY_DIR"`
	Flows        []string       `envconfig:"QOTD_E2E_FLOWS"`
	LogLevel     *string        `envconfig:"QOTD_E2E_LOG_LEVEL"`
}

// ApplyEnv overrides c with the QOTD_E2E_* variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var env envOverrides
	if err := envconfig.Process("", &env, lookup); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.BaseURL, env.BaseURL)
	set(&c.Email, env.Email)
	set(&c.Password, env.Password)
	set(&c.Engine, env.Engine)
	set(&c.ChromeURL, env.ChromeURL)
	set(&c.ArtifactsDir, env.ArtifactsDir)
	set(&c.HistoryDir, env.HistoryDir)
	set(&c.LogLevel, env.LogLevel)
	if env.Timeout != nil {
		c.Timeout = *env.Timeout
	}
	if env.PollInterval != nil {
		c.PollInterval = *env.PollInterval
	}
	if env.Flows != nil {
		c.Flows = env.Flows
	}
	return nil
}

// WaitSpec returns the default bounds of every wait.
func (c Config) WaitSpec() wait.Spec {
	return wait.Spec{Timeout: c.Timeout, Interval: c.PollInterval}
}

// Validate checks the configuration before anything runs.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("base_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https", u.Host == "":
		errs = append(errs, fmt.Errorf("base_url: %q is not an absolute http(s) URL", c.BaseURL))
	}
	if err := c.WaitSpec().Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"navigation_timeout", c.NavigationTimeout},
		{"content_timeout", c.ContentTimeout},
	} {
		if t.d <= c.PollInterval {
			errs = append(errs, fmt.Errorf("%s: %v must be longer than poll_interval %v", t.name, t.d, c.PollInterval))
		}
	}
	switch c.Engine {
	case EngineChrome, EngineStatic:
	default:
		errs = append(errs, fmt.Errorf("engine: unknown engine %q", c.Engine))
	}
	for _, f := range c.Flows {
		if _, ok := flows.Lookup(f); !ok {
			errs = append(errs, fmt.Errorf("flows: unknown flow %q", f))
		}
	}
	if c.AcceptTitle != "" {
		if _, err := regexp.Compile(c.AcceptTitle); err != nil {
			errs = append(errs, fmt.Errorf("accept_title: %w", err))
		}
	}
	for _, m := range []struct {
		name    string
		markers []string
	}{
		{"invalid_markers", c.InvalidMarkers},
		{"error_markers", c.ErrorMarkers},
	} {
		if slices.Contains(m.markers, "") {
			errs = append(errs, fmt.Errorf("%s: markers must not be empty", m.name))
		}
	}
	if len(c.AllowedDomains) == 0 {
		errs = append(errs, errors.New("allowed_domains: at least one domain is required"))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// FlowConfig converts c into the parameters of the flows. c must be valid.
func (c Config) FlowConfig(logger logrus.FieldLogger) flows.Config {
	fc := flows.Config{
		BaseURL:           c.BaseURL,
		LoginPath:         c.LoginPath,
		DashboardPath:     c.DashboardPath,
		Email:             c.Email,
		Password:          c.Password,
		Wait:              c.WaitSpec(),
		NavigationTimeout: c.NavigationTimeout,
		ContentTimeout:    c.ContentTimeout,
		Selectors:         c.Selectors,
		InvalidMarkers:    c.InvalidMarkers,
		ErrorMarkers:      c.ErrorMarkers,
		AllowedDomains:    c.AllowedDomains,
		ArtifactsDir:      c.ArtifactsDir,
		Logger:            logger,
	}
	if c.AcceptTitle != "" {
		fc.AcceptTitle = regexp.MustCompile(c.AcceptTitle)
	}
	return fc.WithDefaults()
}

// SelectedFlows returns the flows to run, in their default order.
func (c Config) SelectedFlows() []flows.Flow {
	all := flows.All()
	if len(c.Flows) == 0 {
		return all
	}
	want := make(map[string]bool, len(c.Flows))
	for _, f := range c.Flows {
		want[f] = true
	}
	var out []flows.Flow
	for _, f := range all {
		if want[f.Name] {
			out = append(out, f)
		}
	}
	return out
}
