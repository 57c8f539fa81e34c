// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jeranaias/patentchat/internal/config"
	"github.com/jeranaias/patentchat/internal/ui/styles"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}
	cmd.AddCommand(newConfigPathCmd(opts))
	cmd.AddCommand(newConfigShowCmd(opts))
	cmd.AddCommand(newConfigInitCmd(opts))
	cmd.AddCommand(newConfigSetTokenCmd(opts))
	return cmd
}

// configFile is the file config init and set-token write.
func configFile(opts *globalOptions) (string, error) {
	if opts.configPath == "" {
		return config.ConfigPathTOML()
	}
	switch strings.ToLower(filepath.Ext(opts.configPath)) {
	case ".json", ".yaml", ".yml":
		return "", fmt.Errorf("%s: only TOML config files can be written", opts.configPath)
	}
	return opts.configPath, nil
}

// loadFileOnly reads path without environment overrides so that saving does
// not persist values that only came from the environment.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := config.LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg, nil
}

func newConfigPathCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile(opts)
			if err != nil {
				return fail(cmd, opts, "config path", err)
			}
			_, statErr := os.Stat(path)
			if opts.json {
				return NewJSONResponse("config path", map[string]interface{}{
					"path":   path,
					"exists": statErr == nil,
				}).Write(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newConfigShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (token redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return fail(cmd, opts, "config show", err)
			}
			if opts.json {
				safe := cfg.Clone()
				if safe.Server.Token != "" {
					safe.Server.Token = "[REDACTED]"
				}
				return NewJSONResponse("config show", safe).Write(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	}
}

func newConfigInitCmd(opts *globalOptions) *cobra.Command {
	var (
		url   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile(opts)
			if err != nil {
				return fail(cmd, opts, "config init", err)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fail(cmd, opts, "config init", fmt.Errorf("%s already exists (use --force to overwrite)", path))
			}

			cfg := config.Default()
			if url != "" {
				cfg.Server.URL = url
			}
			if err := cfg.Validate(); err != nil {
				return fail(cmd, opts, "config init", err)
			}
			if err := config.SaveTOML(cfg, path); err != nil {
				return fail(cmd, opts, "config init", err)
			}

			if opts.json {
				return NewJSONResponse("config init", map[string]string{"path": path}).Write(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Wrote "+path))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "chatbot server URL")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigSetTokenCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-token",
		Short: "Store the API token in the config file",
		Long: "Store the API token in the config file.\n" +
			"The token is read without echo from the terminal, or as one line from stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFile(opts)
			if err != nil {
				return fail(cmd, opts, "config set-token", err)
			}
			token, err := readToken(cmd)
			if err != nil {
				return fail(cmd, opts, "config set-token", err)
			}

			cfg, err := loadFileOnly(path)
			if err != nil {
				return fail(cmd, opts, "config set-token", err)
			}
			cfg.Server.Token = token
			if err := config.SaveTOML(cfg, path); err != nil {
				return fail(cmd, opts, "config set-token", err)
			}

			if opts.json {
				return NewJSONResponse("config set-token", map[string]string{"path": path}).Write(cmd.OutOrStdout())
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Token saved to "+path))
			return nil
		},
	}
}

// readToken reads a secret from the terminal without echo, or one line from
// piped stdin.
func readToken(cmd *cobra.Command) (string, error) {
	var token string
	if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "API token: ")
		raw, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		token = string(raw)
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		token = line
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}
