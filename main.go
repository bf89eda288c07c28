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

// qotd-e2e drives a question of the day site through a browser and checks
// that signing in works, that the leaderboard is ranked and that the
// question of the day loads with a valid link.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes
const (
	ExitSuccess    = 0 // Every flow passed
	ExitFlowFailed = 1 // One or more flows failed
	ExitError      = 2 // Configuration or runtime error
)

var version = "dev"

// FlowFailureError means the harness ran but at least one flow failed.
type FlowFailureError struct {
	Failed []string
}

func (e *FlowFailureError) Error() string {
	return fmt.Sprintf("%d flow(s) failed: %s", len(e.Failed), strings.Join(e.Failed, ", "))
}

// exitCode maps the result of a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ff *FlowFailureError
	if errors.As(err, &ff) {
		return ExitFlowFailed
	}
	return ExitError
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qotd-e2e",
		Short: "End-to-end verification of a question of the day site",
		Long: `qotd-e2e drives a live web client through a browser and verifies three
user journeys: authentication, the ranked leaderboard, and the question of
the day with its "Solve Now" link.

Configuration comes from built-in defaults, an optional YAML file (--config),
QOTD_E2E_* environment variables, and flags, in increasing precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newHistoryCommand())
	cmd.AddCommand(newServeDemoCommand())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
