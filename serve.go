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
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/spf13/cobra"

	"github.com/ttbt-io/qotd-e2e/targetapp"
)

func newServeDemoCommand() *cobra.Command {
	var (
		opts    targetapp.Options
		tlsCert string
		tlsKey  string
	)
	cmd := &cobra.Command{
		Use:   "serve-demo",
		Short: "Serve the demo question of the day site",
		Long: `Serve a small question of the day site that the flows can be run against.

The site signs in the demo account (--demo-email, --demo-password), renders a
leaderboard and the question of the day, and can simulate slow or broken
content with --loading-renders, --qotd-delay, --unsorted and --fail-qotd.

Data is stored unencrypted unless QOTD_E2E_MASTER_KEY is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tlsCert != "" && tlsKey != "" {
				cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
				if err != nil {
					return fmt.Errorf("failed to load TLS cert/key: %w", err)
				}
				opts.Cert = &cert
			}
			masterKey, err := loadMasterKey(opts.DataDir)
			if err != nil {
				return err
			}
			st := storage.New(opts.DataDir, masterKey)
			st.EnableCompression(true)
			opts.Storage = st

			server, err := targetapp.StartServer(opts)
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s (sign in as %s)\n", server.URL(), opts.DemoEmail)

			<-cmd.Context().Done()

			log.Println("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Println("Gracefully stopped.")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Addr, "addr", "127.0.0.1:3000", "The TCP address to listen to")
	f.StringVar(&opts.DataDir, "data-dir", "data", "Directory for the site data")
	f.StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate")
	f.StringVar(&tlsKey, "tls-key", "", "Path to TLS key")
	f.BoolVar(&opts.Debug, "debug", false, "Enable debug logging")
	f.StringVar(&opts.DemoEmail, "demo-email", targetapp.DefaultDemoEmail, "Email of the seeded account")
	f.StringVar(&opts.DemoPassword, "demo-password", targetapp.DefaultDemoPassword, "Password of the seeded account")
	f.IntVar(&opts.LoadingRenders, "loading-renders", 2, "Dashboard renders that show the question placeholder")
	f.DurationVar(&opts.QOTDDelay, "qotd-delay", time.Second, "Delay before the question is pushed to the page")
	f.BoolVar(&opts.UnsortedLeaderboard, "unsorted", false, "Render the leaderboard in the wrong order")
	f.BoolVar(&opts.FailQOTD, "fail-qotd", false, "Make the question of the day fail to load")
	return cmd
}

// loadMasterKey returns the encryption key of dataDir when
// QOTD_E2E_MASTER_KEY is set, creating it on first use.
func loadMasterKey(dataDir string) (crypto.MasterKey, error) {
	keyFile := filepath.Join(dataDir, "master.key")
	passphrase := os.Getenv("QOTD_E2E_MASTER_KEY")
	if passphrase == "" {
		if _, err := os.Stat(keyFile); err == nil {
			return nil, fmt.Errorf("%s exists but QOTD_E2E_MASTER_KEY is not set", keyFile)
		}
		log.Println("Warning: No QOTD_E2E_MASTER_KEY provided. Data will be stored UNENCRYPTED.")
		return nil, nil
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}
	masterKey, err := crypto.ReadMasterKey([]byte(passphrase), keyFile)
	if err == nil {
		log.Println("Loaded master encryption key.")
		return masterKey, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}
	log.Println("Initializing new master encryption key...")
	if masterKey, err = crypto.CreateMasterKey(); err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
		return nil, fmt.Errorf("failed to save master key: %w", err)
	}
	return masterKey, nil
}
