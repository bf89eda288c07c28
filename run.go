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

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ttbt-io/qotd-e2e/browser"
	"github.com/ttbt-io/qotd-e2e/browser/chrome"
	"github.com/ttbt-io/qotd-e2e/browser/static"
	"github.com/ttbt-io/qotd-e2e/config"
	"github.com/ttbt-io/qotd-e2e/flows"
	"github.com/ttbt-io/qotd-e2e/report"
)

// loadConfig reads the configuration named by the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, nil)
	if err != nil {
		return cfg, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func newRunCommand() *cobra.Command {
	var (
		baseURL      string
		email        string
		password     string
		engine       string
		chromeURL    string
		headful      bool
		timeout      time.Duration
		pollInterval time.Duration
		flowNames    []string
		artifactsDir string
		historyDir   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the verification flows",
		Long: `Run the verification flows against the target site, one fresh browser
session per flow, and print a PASS/FAIL line per flow.

The exit code is 0 when every flow passed, 1 when a flow failed and 2 on
configuration or runtime errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			f := cmd.Flags()
			set := func(name string, dst *string, v string) {
				if f.Changed(name) {
					*dst = v
				}
			}
			set("base-url", &cfg.BaseURL, baseURL)
			set("email", &cfg.Email, email)
			set("password", &cfg.Password, password)
			set("engine", &cfg.Engine, engine)
			set("chrome-url", &cfg.ChromeURL, chromeURL)
			set("artifacts-dir", &cfg.ArtifactsDir, artifactsDir)
			set("history-dir", &cfg.HistoryDir, historyDir)
			if f.Changed("headful") {
				cfg.Headful = headful
			}
			if f.Changed("timeout") {
				cfg.Timeout = timeout
			}
			if f.Changed("poll-interval") {
				cfg.PollInterval = pollInterval
			}
			if f.Changed("flow") {
				cfg.Flows = flowNames
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}
			log := newLogger(cfg, cmd.ErrOrStderr())
			return execRun(cmd.Context(), cfg, openSession, log, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Base URL of the site under test")
	cmd.Flags().StringVar(&email, "email", "", "Email of the test account")
	cmd.Flags().StringVar(&password, "password", "", "Password of the test account")
	cmd.Flags().StringVar(&engine, "engine", "", "Browser engine: chrome or static")
	cmd.Flags().StringVar(&chromeURL, "chrome-url", "", "DevTools URL of a running browser (default: start headless Chrome)")
	cmd.Flags().BoolVar(&headful, "headful", false, "Show the browser window")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Default wait timeout")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "Interval between condition checks")
	cmd.Flags().StringSliceVar(&flowNames, "flow", nil, "Flows to run (authentication, leaderboard, question-of-the-day)")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "", "Directory for screenshots and documents of failed steps")
	cmd.Flags().StringVar(&historyDir, "history-dir", "", "Directory where run results are kept")
	return cmd
}

// sessionOpener returns a new browser session for one flow.
type sessionOpener func(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (browser.Session, error)

func openSession(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (browser.Session, error) {
	switch cfg.Engine {
	case config.EngineStatic:
		s, err := static.New(static.Options{UserAgent: "qotd-e2e/" + version})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.EngineChrome:
		s, err := chrome.New(ctx, chrome.Options{
			RemoteURL:    cfg.ChromeURL,
			Headful:      cfg.Headful,
			NoAnimations: true,
			ConsoleErrors: func(msg string) {
				log.WithField("source", "console").Warn(msg)
			},
			Logger: log,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
}

// execRun runs the selected flows, prints the summary, and records the run
// in the history when one is configured.
func execRun(ctx context.Context, cfg config.Config, open sessionOpener, log *logrus.Logger, out io.Writer) error {
	run := runFlows(ctx, cfg, open, log)
	if err := run.WriteSummary(out); err != nil {
		return err
	}

	if cfg.HistoryDir != "" {
		h := report.OpenHistory(cfg.HistoryDir)
		prev, err := h.Latest()
		if err != nil {
			log.WithError(err).Warn("cannot read run history")
		}
		if regressed := run.Regressions(prev); len(regressed) > 0 {
			fmt.Fprintf(out, "regressions since run %s: %v\n", prev.ID, regressed)
		}
		if err := h.Save(run); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if !run.Passed() {
		return &FlowFailureError{Failed: run.Failed()}
	}
	return nil
}

// runFlows runs each selected flow to completion in its own session.
func runFlows(ctx context.Context, cfg config.Config, open sessionOpener, log *logrus.Logger) *report.Run {
	run := report.NewRun(cfg.BaseURL, cfg.Engine)
	fc := cfg.FlowConfig(log)
	for _, f := range cfg.SelectedFlows() {
		if ctx.Err() != nil {
			break
		}
		flog := log.WithField("flow", f.Name)
		s, err := open(ctx, cfg, flog)
		if err != nil {
			flog.WithError(err).Error("cannot open browser session")
			run.Add(&flows.Result{
				Flow:        f.Name,
				Final:       flows.Failed,
				Transitions: []flows.State{flows.Init, flows.Failed},
				Started:     time.Now(),
				Err:         &flows.StepError{Flow: f.Name, Step: "open browser session", State: flows.Init, Err: err},
			})
			continue
		}
		res := f.Run(ctx, s, fc)
		if err := s.Close(); err != nil {
			flog.WithError(err).Warn("cannot close browser session")
		}
		run.Add(res)
	}
	return run
}

func newHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the results of past runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if dir, _ := cmd.Flags().GetString("history-dir"); dir != "" {
				cfg.HistoryDir = dir
			}
			if cfg.HistoryDir == "" {
				return fmt.Errorf("no history directory: set --history-dir or QOTD_E2E_HISTORY_DIR")
			}
			runs, err := report.OpenHistory(cfg.HistoryDir).List()
			if err != nil {
				return err
			}
			if limit > 0 && len(runs) > limit {
				runs = runs[len(runs)-limit:]
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				status := "PASS"
				if !r.Passed() {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%s  %s  %s  %-6s %s", r.Started.Local().Format(time.DateTime), r.ID, status, r.Engine, r.BaseURL)
				if failed := r.Failed(); len(failed) > 0 {
					fmt.Fprintf(out, "  failed: %v", failed)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().String("history-dir", "", "Directory where run results are kept")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}
