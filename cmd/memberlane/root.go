// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Memberlane Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the memberlane CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memberlane",
		Short: "Memberlane - account registration and session service",
		Long: `Memberlane is an account registration and session service with
argon2id password verifiers and opaque cookie-backed sessions.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
