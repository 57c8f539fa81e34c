// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/patentchat/internal/ui/styles"
)

// Shared styles for command output. Colors are dropped automatically when
// configureColors selects the Ascii profile.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	labelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	dimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)
)
