// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/patentchat/internal/ui/styles"
)

func newCacheCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local chat cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached session list and transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd, opts)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print where the cache is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCachePath(cmd, opts)
		},
	})
	return cmd
}

func runCacheClear(cmd *cobra.Command, opts *globalOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "cache clear", err)
	}
	defer a.Close()

	a.vm.ClearCache()
	if opts.json {
		return NewJSONResponse("cache clear", map[string]string{"path": a.storePath()}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Cache cleared: "+a.storePath()))
	return nil
}

func runCachePath(cmd *cobra.Command, opts *globalOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return fail(cmd, opts, "cache path", err)
	}
	defer a.Close()

	if opts.json {
		return NewJSONResponse("cache path", map[string]string{
			"backend": a.cfg.Cache.Backend,
			"path":    a.storePath(),
		}).Write(cmd.OutOrStdout())
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.storePath())
	return nil
}
