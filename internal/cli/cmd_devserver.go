// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/patentchat/internal/devserver"
	"github.com/jeranaias/patentchat/internal/gateway"
)

// devServerFlags holds the devserver command's flags.
type devServerFlags struct {
	host      string
	port      int
	basePath  string
	token     string
	latency   time.Duration
	failEvery int
}

func newDevServerCmd(opts *globalOptions) *cobra.Command {
	flags := &devServerFlags{}

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory chatbot backend for local testing",
		Long: "Run an in-memory chatbot backend that echoes questions.\n" +
			"It speaks the same HTTP API as the real server.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevServer(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.host, "host", "127.0.0.1", "interface to listen on")
	cmd.Flags().IntVarP(&flags.port, "port", "p", 8000, "port to listen on")
	cmd.Flags().StringVar(&flags.basePath, "base-path", gateway.DefaultBasePath, "route prefix")
	cmd.Flags().StringVar(&flags.token, "token", "", "require this bearer token")
	cmd.Flags().DurationVar(&flags.latency, "latency", 0, "delay every answer")
	cmd.Flags().IntVar(&flags.failEvery, "fail-every", 0, "fail every n-th question with HTTP 500")
	return cmd
}

func runDevServer(cmd *cobra.Command, flags *devServerFlags) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return devserver.Start(ctx, devserver.StartOpts{
		Addr: net.JoinHostPort(flags.host, strconv.Itoa(flags.port)),
		Options: devserver.Options{
			BasePath:  flags.basePath,
			Token:     flags.token,
			Latency:   flags.latency,
			FailEvery: flags.failEvery,
		},
		Out: cmd.OutOrStdout(),
	})
}
