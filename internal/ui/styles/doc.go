// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the patentchat TUI.

All colors use Lip Gloss AdaptiveColor so a single palette serves dark and
light terminals.

# Color System (colors.go)

  - Purple - assistant messages, focused sidebar
  - Cyan - brand, user messages, key hints
  - Rose - errors and failed sends
  - Amber - slow history loads
  - PatentColor - application numbers found in answers

Every colored status also carries an ASCII indicator ([OK], [X], [!], [i])
through RenderSuccess, RenderError, RenderWarning and RenderInfo.

# Theme System (theme.go)

NewTheme builds every lipgloss.Style used by the chat screen. The mode comes
from config (ui.theme): "dark", "light", or "auto", which queries the
terminal background through termenv.

	theme := styles.NewTheme(cfg.UI.Theme)
	header := theme.HeaderTitle.Render("patentchat")

# Animations (animations.go)

Spinner frame sets used with bubbles/spinner, and the caption shown while an
answer is pending.
*/
package styles
