// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/patentchat/internal/ui/chat"
	"github.com/jeranaias/patentchat/internal/ui/repl"
	"github.com/jeranaias/patentchat/internal/ui/styles"
)

func newTUICmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts, false)
		},
	}
}

func newREPLCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat line by line without the full-screen UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, opts)
		},
	}
}

// runTUI starts the bubbletea chat screen. Without a terminal on both ends it
// falls back to the line-mode loop when fallback is set.
func runTUI(cmd *cobra.Command, opts *globalOptions, fallback bool) error {
	if !IsTTY() || !IsStdoutTTY() {
		if !fallback {
			return &TTYRequiredError{Operation: "open the chat screen"}
		}
		log.Printf("TUI_FALLBACK | reason=no_tty")
		return runREPL(cmd, opts)
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	logPath, err := a.cfg.LogPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := tea.LogToFile(logPath, "patentchat")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	a.watchCache()

	theme := styles.NewTheme(a.cfg.UI.Theme)
	screen := chat.New(theme, a.vm, a.vm.SendMessage).
		WithMarkdown(a.cfg.UI.Markdown).
		WithSidebarWidth(a.cfg.UI.SidebarWidth)

	p := tea.NewProgram(screen,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)
	log.Printf("TUI_START | version=%s", Version)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat screen: %w", err)
	}
	return nil
}

// runREPL runs the line-mode loop on stdin and stdout.
func runREPL(cmd *cobra.Command, opts *globalOptions) error {
	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	a.watchCache()

	return repl.New(a.vm, cmd.OutOrStdout()).Run(cmd.Context())
}
