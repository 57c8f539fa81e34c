// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/patentchat/internal/gateway"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	verbose    bool
	json       bool
}

// NewRootCmd builds the patentchat command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "patentchat",
		Short: "Terminal client for the patent chatbot",
		Long: "patentchat talks to the patent analysis chatbot backend.\n" +
			"Run without arguments to open the full-screen chat.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configureColors()
			configureLogging(cmd.ErrOrStderr(), opts.verbose)
			gateway.UserAgent = "patentchat/" + Version
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts, true)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.patentchat/config.toml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log diagnostics to stderr")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print machine-readable JSON")

	cmd.AddCommand(newTUICmd(opts))
	cmd.AddCommand(newREPLCmd(opts))
	cmd.AddCommand(newAskCmd(opts))
	cmd.AddCommand(newSessionsCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newDeleteCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newCacheCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(newDevServerCmd(opts))
	cmd.AddCommand(newVersionCmd(opts))
	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return execute(NewRootCmd())
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// configureLogging routes the standard logger. Line-mode commands stay quiet
// unless verbose is set; the TUI redirects to its log file later.
func configureLogging(stderr io.Writer, verbose bool) {
	log.SetFlags(log.LstdFlags)
	if verbose || os.Getenv("PATENTCHAT_VERBOSE") != "" {
		log.SetOutput(stderr)
		return
	}
	log.SetOutput(io.Discard)
}

func newVersionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.json {
				return NewJSONResponse("version", map[string]string{
					"version": Version,
					"commit":  Commit,
					"date":    Date,
				}).Write(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "patentchat %s (commit: %s, built: %s)\n", Version, Commit, Date)
			return nil
		},
	}
}

// fail reports err in the selected output mode and returns it so cobra sets
// the exit code.
func fail(cmd *cobra.Command, opts *globalOptions, name string, err error) error {
	if opts.json {
		NewJSONErrorResponse(name, err).Write(cmd.OutOrStdout())
		cmd.SilenceErrors = true
	}
	return err
}
