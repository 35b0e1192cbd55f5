// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frontdesk-dev/frontdesk/internal/agent"
	"github.com/frontdesk-dev/frontdesk/internal/config"
	fderr "github.com/frontdesk-dev/frontdesk/pkg/errors"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Run one reception turn from the terminal",
		Long:  "Send a single message through the local turn loop and print the streamed output. Useful for trying the agent without the HTTP gateway.",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runChat,
	}

	cmd.Flags().StringP("phone", "p", "", "caller phone, used as the conversation key")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Live.Endpoint == "" {
		return fderr.New(fderr.CodeCLIInputInvalid,
			"live.endpoint is not configured; set it in the config file or FRONTDESK_LIVE_ENDPOINT")
	}

	app, err := WireApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	phone, _ := cmd.Flags().GetString("phone")
	message := strings.Join(args, " ")

	fragments, err := app.Loop.RunTurn(cmd.Context(), phone, message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for f := range fragments {
		switch f.Kind {
		case agent.FragmentText:
			fmt.Fprint(out, f.Text)
		case agent.FragmentNotice, agent.FragmentIncomplete:
			fmt.Fprintf(out, "\n[%s] %s\n", f.Kind, f.Text)
		case agent.FragmentDone:
			fmt.Fprintln(out)
		}
	}
	return nil
}
