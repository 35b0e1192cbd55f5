// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frontdesk-dev/frontdesk/internal/config"
	"github.com/frontdesk-dev/frontdesk/internal/store/sqlite"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

func newInitDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "initdb",
		Short: "Initialize the clinic database",
		Long:  "Create the SQLite schema at the configured storage path. With --seed, also load the demo services so the agent has something to offer.",
		RunE:  runInitDB,
	}

	cmd.Flags().Bool("seed", false, "load demo services after creating the schema")

	return cmd
}

func runInitDB(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	st, err := sqlite.NewClinicStore(cfg.Storage.Path)
	if err != nil {
		return fderr.Wrapf(err, fderr.CodeCLISetupFailure, "initializing database at %s", cfg.Storage.Path)
	}
	defer func() { _ = st.Close() }()

	fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.Storage.Path)

	if seed, _ := cmd.Flags().GetBool("seed"); seed {
		if err := st.Seed(cmd.Context()); err != nil {
			return fderr.Wrapf(err, fderr.CodeCLISetupFailure, "seeding demo services")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "demo services seeded")
	}

	return nil
}
