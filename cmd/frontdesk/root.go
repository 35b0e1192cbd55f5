// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Frontdesk Contributors

package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root frontdesk command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "frontdesk",
		Short:         "Frontdesk: conversational clinic reception agent",
		Long:          "Frontdesk is a bilingual reception agent gateway: it drives a streaming inference backend, books and manages clinic appointments through tools, and keeps per-caller conversation memory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// FRONTDESK_-prefixed environment variables and the config file cover
	// the same keys; flags win.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")

	// Register subcommands
	root.AddCommand(
		newStartCmd(),
		newChatCmd(),
		newInitDBCmd(),
		newVersionCmd(),
	)

	return root
}
