// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/frontdesk-dev/frontdesk/internal/config"
	"github.com/frontdesk-dev/frontdesk/internal/server"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the frontdesk gateway",
		Long:  "Load configuration, wire the store, tools, and turn loop, and serve the HTTP chat gateway until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Server.Listen = listen
	}

	app, err := WireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.AllowedOrigins,
	})
	if err != nil {
		return err
	}
	srv.RegisterTurnRunner(app.Loop)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "frontdesk gateway listening on %s\n", cfg.Server.Listen)
	return srv.Start(ctx)
}
